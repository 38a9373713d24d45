package synth

import (
	"sort"
	"strconv"
	"strings"
)

// ifElseInfo is the sorted, deduplicated set of iterations a
// conditional contribution guards on.
type ifElseInfo struct {
	iterations []int
}

// ifElseCache memoizes ifElseInfo by iteration subset, so contributions
// that happen to guard on the same subset (a common case: every column
// of a row sharing one loop's populated-iteration gap pattern) reuse
// the same parsed, sorted subset instead of re-deriving it.
type ifElseCache struct {
	byKey map[string]*ifElseInfo
}

func newIfElseCache() *ifElseCache {
	return &ifElseCache{byKey: make(map[string]*ifElseInfo)}
}

func subsetKey(populated map[int]int) string {
	iters := make([]int, 0, len(populated))
	for it := range populated {
		iters = append(iters, it)
	}
	sort.Ints(iters)
	parts := make([]string, len(iters))
	for i, it := range iters {
		parts[i] = strconv.Itoa(it)
	}
	return strings.Join(parts, ",")
}

func (c *ifElseCache) get(populated map[int]int) *ifElseInfo {
	key := subsetKey(populated)
	if info, ok := c.byKey[key]; ok {
		return info
	}
	iters := make([]int, 0, len(populated))
	for it := range populated {
		iters = append(iters, it)
	}
	sort.Ints(iters)
	info := &ifElseInfo{iterations: iters}
	c.byKey[key] = info
	return info
}
