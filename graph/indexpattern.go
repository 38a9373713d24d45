package graph

import (
	"math"
	"sort"
)

// PatternKind tags the closed set of IndexPattern variants.
type PatternKind int

const (
	LinearPattern PatternKind = iota
	SectionedPattern
	Random1DPattern
	Random2DPattern
	Plane2DPattern
)

// Section is one piece of a SectionedPattern, valid for iterations in
// [FromIter, next section's FromIter) (or to infinity for the last one).
type Section struct {
	FromIter int
	Pattern  *IndexPattern
}

// IndexPattern is a closed-form description of how an original index
// varies with the iteration counter. The narrowest variant that fits a
// sample set is preferred by DetectIndexPattern: Linear, then Sectioned,
// then Random. Random2D/Plane2D describe a second, independent axis (e.g. a
// two-dimensional original index composed of a row and a column
// sub-pattern) and are populated by callers that compose two detected
// 1-D patterns rather than by DetectIndexPattern itself, which only ever sees a
// single iteration->value sample map.
type IndexPattern struct {
	Kind PatternKind

	// Linear: value = (Slope*iter + Offset) / Divisor, only defined
	// where the division is exact.
	Slope, Offset, Divisor int

	// Sectioned: ordered, non-overlapping ranges.
	Sections []Section

	// Random1D: explicit iteration -> value map.
	Values map[int]int

	// Random2D / Plane2D: combine two independent-axis patterns.
	X, Z *IndexPattern
}

// Evaluate returns (value, true) if iter is populated by the pattern, or
// (0, false) if iter falls in a gap (a Sectioned/Random1D gap, or a
// Linear iteration where the division is not exact). Random2D/Plane2D
// always report (0, false) here; they are evaluated with EvaluateXZ.
func (p *IndexPattern) Evaluate(iter int) (int, bool) {
	switch p.Kind {
	case LinearPattern:
		if p.Divisor == 0 {
			return 0, false
		}
		num := p.Slope*iter + p.Offset
		if num%p.Divisor != 0 {
			return 0, false
		}
		return num / p.Divisor, true
	case SectionedPattern:
		for i, s := range p.Sections {
			to := math.MaxInt
			if i+1 < len(p.Sections) {
				to = p.Sections[i+1].FromIter
			}
			if iter >= s.FromIter && iter < to {
				return s.Pattern.Evaluate(iter)
			}
		}
		return 0, false
	case Random1DPattern:
		v, ok := p.Values[iter]
		return v, ok
	default:
		// Random2D/Plane2D need a (x,z) pair, not a bare iteration; use
		// EvaluateXZ for those.
		return 0, false
	}
}

// EvaluateXZ evaluates a Random2D or Plane2D pattern over a pair of
// independent axis values, e.g. (row iteration, column iteration).
func (p *IndexPattern) EvaluateXZ(x, z int) (int, bool) {
	switch p.Kind {
	case Plane2DPattern:
		vx, ok := p.X.Evaluate(x)
		if !ok {
			return 0, false
		}
		vz, ok := p.Z.Evaluate(z)
		if !ok {
			return 0, false
		}
		return vx + vz, true
	case Random2DPattern:
		// Random2D has no detector in this module (no 2-D sample set
		// arises from the 1-D sparsity analysis in loop); modeled for
		// data-model completeness only.
		return 0, false
	default:
		return 0, false
	}
}

// DetectIndexPattern infers the narrowest IndexPattern describing
// samples (an iteration -> value map), trying Linear first, then
// Sectioned, then falling back to Random1D.
func DetectIndexPattern(samples map[int]int) *IndexPattern {
	if len(samples) == 0 {
		return &IndexPattern{Kind: Random1DPattern, Values: map[int]int{}}
	}

	iters := make([]int, 0, len(samples))
	for it := range samples {
		iters = append(iters, it)
	}
	sort.Ints(iters)

	if lp, ok := fitLinear(iters, samples); ok {
		return lp
	}

	if sp, ok := fitSectioned(iters, samples); ok {
		return sp
	}

	cp := make(map[int]int, len(samples))
	for k, v := range samples {
		cp[k] = v
	}
	return &IndexPattern{Kind: Random1DPattern, Values: cp}
}

// fitLinear checks whether value = (slope*iter + offset) holds exactly
// (divisor fixed at 1) across every sample, deriving slope/offset from
// the first two distinct iterations.
func fitLinear(iters []int, samples map[int]int) (*IndexPattern, bool) {
	if len(iters) == 1 {
		it := iters[0]
		return &IndexPattern{Kind: LinearPattern, Slope: 0, Offset: samples[it], Divisor: 1}, true
	}
	i0, i1 := iters[0], iters[1]
	v0, v1 := samples[i0], samples[i1]
	if i1 == i0 {
		return nil, false
	}
	num := v1 - v0
	den := i1 - i0
	// Require an exact integer slope so Evaluate's exact-division check
	// is meaningful for every iteration, not just the two samples used
	// to derive it.
	if num%den != 0 {
		return nil, false
	}
	slope := num / den
	offset := v0 - slope*i0
	for _, it := range iters {
		if slope*it+offset != samples[it] {
			return nil, false
		}
	}
	return &IndexPattern{Kind: LinearPattern, Slope: slope, Offset: offset, Divisor: 1}, true
}

// fitSectioned greedily partitions the sample set into maximal runs,
// each independently linear, and accepts the split only when there are
// at least four samples and the split yields at least two sections.
func fitSectioned(iters []int, samples map[int]int) (*IndexPattern, bool) {
	if len(iters) < 4 {
		return nil, false
	}
	var sections []Section
	i := 0
	for i < len(iters) {
		j := i + 1
		// Extend the run while it stays linear extending from iters[i].
		for j < len(iters) {
			run := iters[i : j+1]
			if _, ok := fitLinear(run, samples); !ok {
				break
			}
			j++
		}
		run := iters[i:j]
		lp, ok := fitLinear(run, samples)
		if !ok {
			return nil, false
		}
		sections = append(sections, Section{FromIter: iters[i], Pattern: lp})
		i = j
	}
	if len(sections) < 2 {
		return nil, false
	}
	return &IndexPattern{Kind: SectionedPattern, Sections: sections}, true
}
