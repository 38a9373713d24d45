package loop

import (
	"sort"

	"github.com/symbolicad/cgraph/diag"
)

// RowInfo classifies one loop tape equation's contributions to a target
// Jacobian.
type RowInfo struct {
	// IndexedPositions[tapeJ] is a length-N vector of compressed
	// positions, one per iteration; nnz (Result.NNZ) marks an iteration
	// where tapeJ is absent.
	IndexedPositions map[int][]int

	// NonIndexedPositions[origJ] is a length-N vector of compressed
	// positions, nnz where origJ is absent at that iteration.
	NonIndexedPositions map[int][]int

	// NonIndexedEvals is the set of original columns needing a direct
	// (non-indexed) tape-column evaluation.
	NonIndexedEvals map[int]bool

	// TmpEvals[origJ] is the set of no-loop temporaries whose upstream
	// dependency on origJ contributes to this row.
	TmpEvals map[int]map[int]bool
}

func newRowInfo() *RowInfo {
	return &RowInfo{
		IndexedPositions:    make(map[int][]int),
		NonIndexedPositions: make(map[int][]int),
		NonIndexedEvals:     make(map[int]bool),
		TmpEvals:            make(map[int]map[int]bool),
	}
}

func (r *RowInfo) indexedSlot(tapeJ, n, nnz int) []int {
	v, ok := r.IndexedPositions[tapeJ]
	if !ok {
		v = make([]int, n)
		for i := range v {
			v[i] = nnz
		}
		r.IndexedPositions[tapeJ] = v
	}
	return v
}

func (r *RowInfo) nonIndexedSlot(origJ, n, nnz int) []int {
	v, ok := r.NonIndexedPositions[origJ]
	if !ok {
		v = make([]int, n)
		for i := range v {
			v[i] = nnz
		}
		r.NonIndexedPositions[origJ] = v
	}
	return v
}

// Result is the full output of AnalyzeSparseJacobianWithLoops.
type Result struct {
	NNZ int

	NoLoopEvalSparsity   map[int]map[int]bool  // tapeEq -> set<origJ>
	NoLoopEvalLocations  map[int]map[int][]int // tapeEq -> origJ -> positions
	LoopEvalSparsities   map[int]map[int]map[int]bool // loopID -> tapeI -> set<tapeJ>
	LoopEqInfo           map[int]map[int]*RowInfo     // loopID -> tapeI -> RowInfo
}

func newResult(nnz int) *Result {
	return &Result{
		NNZ:                 nnz,
		NoLoopEvalSparsity:  make(map[int]map[int]bool),
		NoLoopEvalLocations: make(map[int]map[int][]int),
		LoopEvalSparsities:  make(map[int]map[int]map[int]bool),
		LoopEqInfo:          make(map[int]map[int]*RowInfo),
	}
}

func (res *Result) rowInfo(loopID, tapeI int) *RowInfo {
	byTapeI, ok := res.LoopEqInfo[loopID]
	if !ok {
		byTapeI = make(map[int]*RowInfo)
		res.LoopEqInfo[loopID] = byTapeI
	}
	ri, ok := byTapeI[tapeI]
	if !ok {
		ri = newRowInfo()
		byTapeI[tapeI] = ri
	}
	return ri
}

func (res *Result) addLoopSparsity(loopID, tapeI, tapeJ int) {
	byTapeI, ok := res.LoopEvalSparsities[loopID]
	if !ok {
		byTapeI = make(map[int]map[int]bool)
		res.LoopEvalSparsities[loopID] = byTapeI
	}
	set, ok := byTapeI[tapeI]
	if !ok {
		set = make(map[int]bool)
		byTapeI[tapeI] = set
	}
	set[tapeJ] = true
}

// claim records that compressed position e belongs to (i, j); it is used
// both to detect a single (i,j) being classified twice (RepeatedJacobianElement)
// and to detect two distinct triples aiming at the same e (a malformed
// input), matching testable property 6: exactly one output structure
// ever claims any given e.
type claim struct{ i, j int }

// AnalyzeSparseJacobianWithLoops classifies every (row, col, position)
// triple of a target Jacobian's sparsity into its owning loop (or the
// no-loop model), and, within a loop, into indexed/non-indexed/
// temporary-mediated contributions.
func AnalyzeSparseJacobianWithLoops(rows, cols, positions []int, models []*Model, noLoop *NoLoopModel, nnz int) (*Result, error) {
	if len(rows) != len(cols) || len(cols) != len(positions) {
		return nil, diag.New(diag.InvalidInput, "rows, cols and positions must have the same length")
	}

	res := newResult(nnz)
	claimed := make(map[int]claim)

	claimOnce := func(e, i, j int) error {
		if prev, ok := claimed[e]; ok {
			return repeatedElement(prev.i, prev.j)
		}
		claimed[e] = claim{i: i, j: j}
		return nil
	}

	for k := range rows {
		i, j, e := rows[k], cols[k], positions[k]

		loopModel, ref, owned := ownerLoop(models, i)
		if !owned {
			if noLoop == nil {
				return nil, diag.New(diag.InvalidInput, "equation %d is not owned by any loop and no no-loop model was supplied", i)
			}
			il, ok := noLoop.TapeRowOf[i]
			if !ok {
				return nil, diag.New(diag.InvalidInput, "no-loop model has no tape row for equation %d", i)
			}
			if err := claimOnce(e, i, j); err != nil {
				return nil, err
			}
			addNoLoopSparsity(res, il, j)
			addNoLoopLocation(res, il, j, e)
			continue
		}

		if err := classifyLoopElement(res, loopModel, ref, noLoop, i, j, e, claimOnce); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func ownerLoop(models []*Model, i int) (*Model, OriginalRef, bool) {
	for _, m := range models {
		if ref, ok := m.OriginalToTape[i]; ok {
			return m, ref, true
		}
	}
	return nil, OriginalRef{}, false
}

func addNoLoopSparsity(res *Result, il, j int) {
	set, ok := res.NoLoopEvalSparsity[il]
	if !ok {
		set = make(map[int]bool)
		res.NoLoopEvalSparsity[il] = set
	}
	set[j] = true
}

func addNoLoopLocation(res *Result, il, j, e int) {
	byJ, ok := res.NoLoopEvalLocations[il]
	if !ok {
		byJ = make(map[int][]int)
		res.NoLoopEvalLocations[il] = byJ
	}
	byJ[j] = append(byJ[j], e)
}

func classifyLoopElement(res *Result, m *Model, ref OriginalRef, noLoop *NoLoopModel, i, j, e int, claimOnce func(e, i, j int) error) error {
	tapeI, iter := ref.TapeEq, ref.Iteration
	rowSparsity := m.Sparsity[tapeI]

	// (a) indexed contributions: every tapeJ whose Indexed[tapeJ][iter] == j.
	var indexedTapeJs []int
	for tapeJ := range rowSparsity {
		byIter, ok := m.Indexed[tapeJ]
		if !ok {
			continue
		}
		if origJ, ok := byIter[iter]; ok && origJ == j {
			indexedTapeJs = append(indexedTapeJs, tapeJ)
		}
	}
	sort.Ints(indexedTapeJs)

	// (b) non-indexed direct contribution.
	bMatchTapeJ := -1
	for tapeJ := range rowSparsity {
		if origJ, ok := m.NonIndexed[tapeJ]; ok && origJ == j {
			bMatchTapeJ = tapeJ
			break
		}
	}

	// (c) temporary-mediated contributions.
	var tempTapeJs []int
	var tempKs []int
	if noLoop != nil {
		for tapeJ := range rowSparsity {
			tempK, ok := m.Temporary[tapeJ]
			if !ok {
				continue
			}
			if deps, ok := noLoop.TempDependsOnJ[tempK]; ok && deps[j] {
				tempTapeJs = append(tempTapeJs, tapeJ)
				tempKs = append(tempKs, tempK)
			}
		}
	}

	hasNonIndexed := bMatchTapeJ >= 0 || len(tempKs) > 0

	if len(indexedTapeJs) > 1 {
		return repeatedElement(i, j)
	}

	ri := res.rowInfo(m.ID, tapeI)

	// An indexed match takes the slot for this iteration; non-indexed and
	// temporary-mediated matches of the same column are not recorded for it.
	switch {
	case len(indexedTapeJs) == 1:
		tapeJ := indexedTapeJs[0]
		slot := ri.indexedSlot(tapeJ, m.N, res.NNZ)
		if slot[iter] != res.NNZ {
			return repeatedElement(i, j)
		}
		if err := claimOnce(e, i, j); err != nil {
			return err
		}
		slot[iter] = e
		res.addLoopSparsity(m.ID, tapeI, tapeJ)

	case hasNonIndexed:
		slot := ri.nonIndexedSlot(j, m.N, res.NNZ)
		if slot[iter] != res.NNZ {
			return repeatedElement(i, j)
		}
		if err := claimOnce(e, i, j); err != nil {
			return err
		}
		slot[iter] = e
		ri.NonIndexedEvals[j] = true
		if bMatchTapeJ >= 0 {
			res.addLoopSparsity(m.ID, tapeI, bMatchTapeJ)
		}
		for idx, tempK := range tempKs {
			set, ok := ri.TmpEvals[j]
			if !ok {
				set = make(map[int]bool)
				ri.TmpEvals[j] = set
			}
			set[tempK] = true
			res.addLoopSparsity(m.ID, tapeI, tempTapeJs[idx])
		}

	default:
		return diag.New(diag.InvalidInput,
			"no loop classification found for equation %d, column %d", i, j)
	}

	return nil
}

func repeatedElement(i, j int) *diag.Error {
	e := diag.New(diag.RepeatedJacobianElement, "repeated Jacobian element")
	e.EquationI = i
	e.ColumnJ = j
	return e
}
