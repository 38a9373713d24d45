// Package synth re-emits a sparse Jacobian, already classified by the
// loop package's sparsity analyzer, as a fresh operation graph: one
// LoopStart/LoopEnd-delimited fragment per repeated equation pattern,
// plus a flat pass for whatever no loop owns. A loop's body is recorded
// once, with indexed independents standing in for "the value that
// varies by iteration", and the generated control flow (a real for-loop
// in emitted C, out of this module's scope) supplies the repetition.
package synth

import (
	"sort"

	"github.com/symbolicad/cgraph/cg"
	"github.com/symbolicad/cgraph/diag"
	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/host"
	"github.com/symbolicad/cgraph/loop"
	"github.com/symbolicad/cgraph/op"
)

// LoopTapes supplies, for each loop.Model (keyed by its ID), the host
// AD library's recording of that loop's single-iteration body as a
// Tape over the CG scalar type: replaying it builds new graph nodes
// instead of numbers.
type LoopTapes map[int]host.Tape[cg.CG]

// PrepareSparseJacobianWithLoops builds a compressed Jacobian (length
// analysis.NNZ) as a slice of CG expressions recorded on h: a no-loop
// pass over noLoopTape for everything analysis assigned outside any
// loop, and one loop fragment per entry of models for everything
// analysis assigned to that loop.
//
// x is the graph's independent vector, already wrapped as CG so every
// intermediate this function builds is a node on h. noLoopTape may be
// nil only when analysis has no no-loop contributions and no loop
// references a no-loop temporary. forward selects which mode each
// Tape.SparseJacobian call is asked to use.
func PrepareSparseJacobianWithLoops(
	h *graph.CodeHandler,
	x []cg.CG,
	models []*loop.Model,
	analysis *loop.Result,
	noLoopModel *loop.NoLoopModel,
	noLoopTape host.Tape[cg.CG],
	loopTapes LoopTapes,
	forward bool,
) ([]cg.CG, error) {
	out := make([]cg.CG, analysis.NNZ)
	assigned := make([]bool, analysis.NNZ)
	// py is the reverse-mode seed weight every contribution is scaled
	// by. This entry point exposes no seed parameter of its own, so py
	// is fixed at the multiplicative identity.
	py := cg.NewParameter(1)

	noLoopOut, err := runNoLoopPass(h, x, noLoopModel, noLoopTape, analysis, forward, py, out, assigned)
	if err != nil {
		return nil, err
	}

	ifElse := newIfElseCache()
	ids := make([]int, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	sort.Ints(ids)
	byID := make(map[int]*loop.Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}

	for _, id := range ids {
		m := byID[id]
		tape, ok := loopTapes[m.ID]
		if !ok {
			return nil, diag.New(diag.InvalidInput, "no tape supplied for loop %d", m.ID)
		}
		if err := runLoopPass(h, x, m, analysis, noLoopOut, tape, forward, py, ifElse, out, assigned); err != nil {
			return nil, err
		}
	}

	for e, ok := range assigned {
		if !ok {
			return nil, diag.New(diag.InvalidInput, "Jacobian position %d was never classified", e)
		}
	}
	return out, nil
}

// noLoopOutputs carries what the loop pass needs from the no-loop
// tape: each referenced temporary's zero-order value, and its
// Jacobian row against the original columns it depends on.
type noLoopOutputs struct {
	tmps map[int]cg.CG
	dzDx map[int]map[int]cg.CG
}

func runNoLoopPass(
	h *graph.CodeHandler,
	x []cg.CG,
	noLoopModel *loop.NoLoopModel,
	tape host.Tape[cg.CG],
	analysis *loop.Result,
	forward bool,
	py cg.CG,
	out []cg.CG,
	assigned []bool,
) (*noLoopOutputs, error) {
	res := &noLoopOutputs{tmps: make(map[int]cg.CG), dzDx: make(map[int]map[int]cg.CG)}

	needsTape := len(analysis.NoLoopEvalSparsity) > 0 || (noLoopModel != nil && len(noLoopModel.TempDependsOnJ) > 0)
	if !needsTape {
		return res, nil
	}
	if noLoopModel == nil || tape == nil {
		return nil, diag.New(diag.InvalidInput, "Jacobian has no-loop contributions but no no-loop tape was supplied")
	}

	dep, err := tape.Forward0(x)
	if err != nil {
		return nil, diag.New(diag.InvalidInput, "no-loop tape forward evaluation failed").Wrap(err)
	}
	for tempK, il := range noLoopModel.TempTapeRowOf {
		if il < 0 || il >= len(dep) {
			return nil, diag.New(diag.InvalidInput, "no-loop tape has no dependent row %d for temporary %d", il, tempK)
		}
		res.tmps[tempK] = dep[il]
	}

	if len(analysis.NoLoopEvalSparsity) > 0 {
		rows, cols, sparsity := flattenBoolSparsity(analysis.NoLoopEvalSparsity)
		vals, err := tape.SparseJacobian(x, sparsity, rows, cols, !forward)
		if err != nil {
			return nil, diag.New(diag.InvalidInput, "no-loop sparse Jacobian failed").Wrap(err)
		}
		for k, val := range vals {
			il, j := rows[k], cols[k]
			weighted := val.Mul(py)
			locs, ok := analysis.NoLoopEvalLocations[il]
			if !ok {
				continue
			}
			positions, ok := locs[j]
			if !ok {
				continue
			}
			for _, e := range positions {
				out[e] = weighted
				assigned[e] = true
			}
		}
	}

	if len(noLoopModel.TempDependsOnJ) > 0 {
		rows, cols, sparsity, tempKOfRow, err := flattenTempSparsity(noLoopModel)
		if err != nil {
			return nil, err
		}
		vals, err := tape.SparseJacobian(x, sparsity, rows, cols, !forward)
		if err != nil {
			return nil, diag.New(diag.InvalidInput, "no-loop temporary sparse Jacobian failed").Wrap(err)
		}
		for k, val := range vals {
			il, j := rows[k], cols[k]
			tempK := tempKOfRow[il]
			byJ, ok := res.dzDx[tempK]
			if !ok {
				byJ = make(map[int]cg.CG)
				res.dzDx[tempK] = byJ
			}
			byJ[j] = val
		}
	}

	return res, nil
}

func runLoopPass(
	h *graph.CodeHandler,
	x []cg.CG,
	m *loop.Model,
	analysis *loop.Result,
	noLoopOut *noLoopOutputs,
	tape host.Tape[cg.CG],
	forward bool,
	py cg.CG,
	ifElse *ifElseCache,
	out []cg.CG,
	assigned []bool,
) error {
	iterDecl := h.MustNewNode(op.IndexDeclare, nil)
	loopStart := h.MustNewNode(op.LoopStart, []graph.Argument{graph.NodeArg(iterDecl)}, m.N)
	iterOp := h.MustNewNode(op.IndexOp, []graph.Argument{graph.NodeArg(loopStart)})
	iterCG := cg.NewVariable(h, iterOp, 0, false)

	xl := make([]cg.CG, len(m.TapeIndepOrder))
	for k, tapeJ := range m.TapeIndepOrder {
		v, err := buildTapeIndependent(h, m, iterOp, tapeJ, x, noLoopOut)
		if err != nil {
			return err
		}
		xl[k] = v
	}

	rowSparsity, ok := analysis.LoopEvalSparsities[m.ID]
	var dyiDxtape map[int]map[int]cg.CG
	if ok && len(rowSparsity) > 0 {
		tapeRows, tapeCols, sparsity := flattenBoolSparsity(rowSparsity)
		vals, err := tape.SparseJacobian(xl, sparsity, tapeRows, tapeCols, !forward)
		if err != nil {
			return diag.New(diag.InvalidInput, "loop %d sparse Jacobian failed", m.ID).Wrap(err)
		}
		dyiDxtape = make(map[int]map[int]cg.CG)
		for k, val := range vals {
			tapeI, tapeJ := tapeRows[k], tapeCols[k]
			byJ, ok := dyiDxtape[tapeI]
			if !ok {
				byJ = make(map[int]cg.CG)
				dyiDxtape[tapeI] = byJ
			}
			byJ[tapeJ] = val
		}
	}

	origJToTapeJ := invertMap(m.NonIndexed)
	tempKToTapeJ := invertMap(m.Temporary)

	var contribs []cg.CG
	var patternIDs []int
	var positionsPerContrib [][]int

	tapeIs := sortedIntKeysFromRowInfo(analysis.LoopEqInfo[m.ID])
	for _, tapeI := range tapeIs {
		ri := analysis.LoopEqInfo[m.ID][tapeI]

		for _, tapeJ := range sortedIntKeysFromIntSlice(ri.IndexedPositions) {
			val, ok := jacEntry(dyiDxtape, tapeI, tapeJ)
			if !ok {
				return diag.New(diag.InvalidInput, "loop %d: no tape Jacobian entry for (%d,%d)", m.ID, tapeI, tapeJ)
			}
			weighted := val.Mul(py)
			positions := ri.IndexedPositions[tapeJ]
			value, patID := finalizeContribution(h, iterCG, weighted, positions, analysis.NNZ, ifElse)
			contribs = append(contribs, value)
			patternIDs = append(patternIDs, patID)
			positionsPerContrib = append(positionsPerContrib, positions)
		}

		for _, j := range sortedIntKeysFromIntSlice(ri.NonIndexedPositions) {
			value, have := cg.CG{}, false
			if tapeJ, ok := origJToTapeJ[j]; ok {
				if v, ok := jacEntry(dyiDxtape, tapeI, tapeJ); ok {
					value, have = v, true
				}
			}
			if temps, ok := ri.TmpEvals[j]; ok {
				tempKs := make([]int, 0, len(temps))
				for tempK := range temps {
					tempKs = append(tempKs, tempK)
				}
				sort.Ints(tempKs)
				for _, tempK := range tempKs {
					tapeJ, ok := tempKToTapeJ[tempK]
					if !ok {
						return diag.New(diag.InvalidInput, "loop %d: temporary %d has no tape column", m.ID, tempK)
					}
					dYdTape, ok := jacEntry(dyiDxtape, tapeI, tapeJ)
					if !ok {
						return diag.New(diag.InvalidInput, "loop %d: no tape Jacobian entry for (%d,%d)", m.ID, tapeI, tapeJ)
					}
					dZdX, ok := noLoopOut.dzDx[tempK][j]
					if !ok {
						return diag.New(diag.InvalidInput, "no no-loop Jacobian entry for temporary %d, column %d", tempK, j)
					}
					term := dYdTape.Mul(dZdX)
					if have {
						value = value.Add(term)
					} else {
						value, have = term, true
					}
				}
			}
			if !have {
				return diag.New(diag.InvalidInput, "loop %d: non-indexed contribution at column %d has no source", m.ID, j)
			}
			weighted := value.Mul(py)
			positions := ri.NonIndexedPositions[j]
			finalValue, patID := finalizeContribution(h, iterCG, weighted, positions, analysis.NNZ, ifElse)
			contribs = append(contribs, finalValue)
			patternIDs = append(patternIDs, patID)
			positionsPerContrib = append(positionsPerContrib, positions)
		}
	}

	if len(contribs) == 0 {
		return nil
	}

	loopEndArgs := make([]graph.Argument, len(contribs))
	for i, c := range contribs {
		loopEndArgs[i] = cg.Arg(c)
	}
	loopEndInfo := make([]int, 0, 1+len(patternIDs))
	loopEndInfo = append(loopEndInfo, 1) // assign-or-add flag: 1 = add (Jacobian accumulation)
	loopEndInfo = append(loopEndInfo, patternIDs...)
	loopEnd := h.MustNewNode(op.LoopEnd, loopEndArgs, loopEndInfo...)

	moveNonIndexedOutsideLoop(h, loopStart, loopEnd, iterOp)

	for _, positions := range positionsPerContrib {
		for _, e := range positions {
			if e == analysis.NNZ {
				continue
			}
			ref := h.MustNewNode(op.DependentRefRhs, []graph.Argument{graph.NodeArg(loopEnd)}, e)
			out[e] = cg.NewVariable(h, ref, 0, false)
			assigned[e] = true
		}
	}

	return nil
}

func buildTapeIndependent(h *graph.CodeHandler, m *loop.Model, iterOp *graph.OperationNode, tapeJ int, x []cg.CG, noLoopOut *noLoopOutputs) (cg.CG, error) {
	if byIter, ok := m.Indexed[tapeJ]; ok {
		pattern := graph.DetectIndexPattern(byIter)
		patID := h.ManageIndexPattern(pattern)
		assignNode := h.MustNewNode(op.IndexAssign, []graph.Argument{graph.NodeArg(iterOp)}, patID)
		return cg.NewVariable(h, assignNode, 0, false), nil
	}
	if origJ, ok := m.NonIndexed[tapeJ]; ok {
		if origJ < 0 || origJ >= len(x) {
			return cg.CG{}, diag.New(diag.InvalidInput, "loop %d: tape column %d maps to out-of-range original column %d", m.ID, tapeJ, origJ)
		}
		return x[origJ], nil
	}
	if tempK, ok := m.Temporary[tapeJ]; ok {
		v, ok := noLoopOut.tmps[tempK]
		if !ok {
			return cg.CG{}, diag.New(diag.InvalidInput, "loop %d: tape column %d needs temporary %d, which was not supplied", m.ID, tapeJ, tempK)
		}
		return v, nil
	}
	return cg.CG{}, diag.New(diag.InvalidInput, "loop %d: tape column %d has no classification", m.ID, tapeJ)
}

// finalizeContribution wraps weighted in a conditional guard if it is
// only defined at a strict subset of the loop's N iterations, and
// returns the managed output-position pattern id alongside it.
func finalizeContribution(h *graph.CodeHandler, iterCG cg.CG, weighted cg.CG, positions []int, nnz int, ifElse *ifElseCache) (cg.CG, int) {
	populated := populatedMap(positions, nnz)
	value := weighted
	if len(populated) < len(positions) {
		value = buildConditional(iterCG, populated, weighted, ifElse)
	}
	pattern := graph.DetectIndexPattern(populated)
	patID := h.ManageIndexPattern(pattern)
	return value, patID
}

func buildConditional(iterCG cg.CG, populated map[int]int, value cg.CG, cache *ifElseCache) cg.CG {
	info := cache.get(populated)
	acc := cg.NewParameter(0)
	for _, k := range info.iterations {
		acc = cg.CondExp(cg.CompareEq, iterCG, cg.NewParameter(float64(k)), value, acc)
	}
	return acc
}

func populatedMap(positions []int, nnz int) map[int]int {
	m := make(map[int]int)
	for iter, e := range positions {
		if e != nnz {
			m[iter] = e
		}
	}
	return m
}

func jacEntry(m map[int]map[int]cg.CG, i, j int) (cg.CG, bool) {
	byJ, ok := m[i]
	if !ok {
		return cg.CG{}, false
	}
	v, ok := byJ[j]
	return v, ok
}

func invertMap(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func flattenBoolSparsity(m map[int]map[int]bool) ([]int, []int, host.Sparsity) {
	var rows, cols []int
	sparsity := make(host.Sparsity)
	for _, r := range sortedIntKeysFromBoolMap2(m) {
		colKeys := sortedIntKeysFromBool(m[r])
		sparsity[r] = colKeys
		for _, c := range colKeys {
			rows = append(rows, r)
			cols = append(cols, c)
		}
	}
	return rows, cols, sparsity
}

func flattenTempSparsity(noLoopModel *loop.NoLoopModel) ([]int, []int, host.Sparsity, map[int]int, error) {
	var rows, cols []int
	sparsity := make(host.Sparsity)
	tempKOfRow := make(map[int]int)
	for _, tempK := range sortedIntKeysFromBoolMap2(noLoopModel.TempDependsOnJ) {
		il, ok := noLoopModel.TempTapeRowOf[tempK]
		if !ok {
			return nil, nil, nil, nil, diag.New(diag.InvalidInput, "temporary %d has a dependency set but no tape row", tempK)
		}
		tempKOfRow[il] = tempK
		colKeys := sortedIntKeysFromBool(noLoopModel.TempDependsOnJ[tempK])
		sparsity[il] = colKeys
		for _, c := range colKeys {
			rows = append(rows, il)
			cols = append(cols, c)
		}
	}
	return rows, cols, sparsity, tempKOfRow, nil
}

func sortedIntKeysFromBool(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedIntKeysFromBoolMap2(m map[int]map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedIntKeysFromIntSlice(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedIntKeysFromRowInfo(m map[int]*loop.RowInfo) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func nodesBetween(h *graph.CodeHandler, fromID, toID int) []*graph.OperationNode {
	var res []*graph.OperationNode
	for _, n := range h.Nodes() {
		if n.ID() > fromID && n.ID() < toID {
			res = append(res, n)
		}
	}
	return res
}

func dependsOnIter(nodes []*graph.OperationNode, iterOpID int) map[int]bool {
	res := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if n.ID() == iterOpID {
			res[n.ID()] = true
			continue
		}
		dep := false
		for _, a := range n.Args() {
			if a.IsParameter() {
				continue
			}
			if res[a.Node().ID()] {
				dep = true
				break
			}
		}
		res[n.ID()] = dep
	}
	return res
}

// moveNonIndexedOutsideLoop hoists every node strictly between
// loopStart and loopEnd whose transitive dependencies exclude iterOp
// to just before loopStart: a conservative, local form of
// loop-invariant code motion that never needs to reason about anything
// outside the one loop fragment it is called for.
func moveNonIndexedOutsideLoop(h *graph.CodeHandler, loopStart, loopEnd, iterOp *graph.OperationNode) {
	nodes := nodesBetween(h, loopStart.ID(), loopEnd.ID())
	dep := dependsOnIter(nodes, iterOp.ID())
	var hoistIDs []int
	for _, n := range nodes {
		if !dep[n.ID()] {
			hoistIDs = append(hoistIDs, n.ID())
		}
	}
	if len(hoistIDs) == 0 {
		return
	}
	h.HoistBefore(loopStart.ID(), hoistIDs)
}
