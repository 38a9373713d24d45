package synth

import (
	"testing"

	"github.com/symbolicad/cgraph/cg"
	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/host"
	"github.com/symbolicad/cgraph/loop"
	"github.com/symbolicad/cgraph/op"
)

// constJacTape is a host.Tape[cg.CG] test double whose SparseJacobian
// returns a fixed constant for every requested (row, col) pair and whose
// Forward0 is unused by the loop pass (only the no-loop pass calls it).
type constJacTape struct {
	value float64
}

func (c *constJacTape) Forward0(x []cg.CG) ([]cg.CG, error) {
	out := make([]cg.CG, len(x))
	for i := range x {
		out[i] = cg.NewParameter(0)
	}
	return out, nil
}

func (c *constJacTape) SparseJacobian(x []cg.CG, sparsity host.Sparsity, rows, cols []int, reverse bool) ([]cg.CG, error) {
	out := make([]cg.CG, len(rows))
	for i := range rows {
		out[i] = cg.NewParameter(c.value)
	}
	return out, nil
}

var _ host.Tape[cg.CG] = (*constJacTape)(nil)

// buildIndexedLoop constructs a 1-equation, N=2 loop where tape column 0
// is indexed: iteration 0 maps to original column 0, iteration 1 maps to
// original column 1. Both iterations are fully populated, matching the
// "indexed, always present" half of scenario S6.
func buildIndexedLoop() *loop.Model {
	m := loop.NewModel(0, 2)
	m.TapeEquations[0] = []loop.Position{
		{Original: 10, Tape: 0, Iteration: 0},
		{Original: 11, Tape: 0, Iteration: 1},
	}
	m.OriginalToTape[10] = loop.OriginalRef{TapeEq: 0, Iteration: 0}
	m.OriginalToTape[11] = loop.OriginalRef{TapeEq: 0, Iteration: 1}
	m.Indexed[0] = map[int]int{0: 0, 1: 1}
	m.Sparsity[0] = map[int]bool{0: true}
	m.TapeIndepOrder = []int{0}
	return m
}

func TestPrepareSparseJacobianWithLoopsIndexedContribution(t *testing.T) {
	m := buildIndexedLoop()

	// Original Jacobian has 2 independent columns and 2 dependent rows,
	// each feeding a distinct compressed position.
	rows := []int{10, 11}
	cols := []int{0, 1}
	positions := []int{0, 1}

	analysis, err := loop.AnalyzeSparseJacobianWithLoops(rows, cols, positions, []*loop.Model{m}, nil, 2)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	h := graph.NewCodeHandler()
	x0 := cg.NewIndependent(h)
	x1 := cg.NewIndependent(h)
	x := []cg.CG{x0, x1}

	tapes := LoopTapes{0: &constJacTape{value: 3}}

	out, err := PrepareSparseJacobianWithLoops(h, x, []*loop.Model{m}, analysis, nil, nil, tapes, true)
	if err != nil {
		t.Fatalf("PrepareSparseJacobianWithLoops: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (NNZ)", len(out))
	}

	for e, c := range out {
		if c.Node() == nil {
			t.Fatalf("out[%d] has no node", e)
		}
		if c.Node().Op() != op.DependentRefRhs {
			t.Errorf("out[%d].Op() = %v, want DependentRefRhs", e, c.Node().Op())
		}
		info := c.Node().Info()
		if len(info) != 1 || info[0] != e {
			t.Errorf("out[%d] DependentRefRhs info = %v, want [%d]", e, info, e)
		}
		loopEndArg := c.Node().Args()[0]
		if loopEndArg.Node() == nil || loopEndArg.Node().Op() != op.LoopEnd {
			t.Errorf("out[%d] does not alias a LoopEnd node", e)
		}
	}

	// Exactly one LoopStart node should have been recorded, carrying the
	// iteration count in its info slot.
	var loopStarts int
	for _, n := range h.Nodes() {
		if n.Op() == op.LoopStart {
			loopStarts++
			if len(n.Info()) != 1 || n.Info()[0] != m.N {
				t.Errorf("LoopStart info = %v, want [%d]", n.Info(), m.N)
			}
		}
	}
	if loopStarts != 1 {
		t.Errorf("found %d LoopStart nodes, want exactly 1", loopStarts)
	}
}

func TestPrepareSparseJacobianWithLoopsConditionalEmission(t *testing.T) {
	// Column 0 is indexed only at iteration 0 of a 2-iteration loop: the
	// synthesizer must guard the contribution with a conditional on the
	// iteration index rather than emitting it unconditionally.
	m := loop.NewModel(0, 2)
	m.TapeEquations[0] = []loop.Position{
		{Original: 10, Tape: 0, Iteration: 0},
	}
	m.OriginalToTape[10] = loop.OriginalRef{TapeEq: 0, Iteration: 0}
	m.Indexed[0] = map[int]int{0: 0}
	m.Sparsity[0] = map[int]bool{0: true}
	m.TapeIndepOrder = []int{0}

	rows := []int{10}
	cols := []int{0}
	positions := []int{0}

	analysis, err := loop.AnalyzeSparseJacobianWithLoops(rows, cols, positions, []*loop.Model{m}, nil, 1)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	h := graph.NewCodeHandler()
	x0 := cg.NewIndependent(h)
	x := []cg.CG{x0}

	tapes := LoopTapes{0: &constJacTape{value: 5}}
	out, err := PrepareSparseJacobianWithLoops(h, x, []*loop.Model{m}, analysis, nil, nil, tapes, true)
	if err != nil {
		t.Fatalf("PrepareSparseJacobianWithLoops: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}

	// The LoopEnd's sole argument should trace back to a ComEq conditional
	// rather than a bare multiplication, since iteration 1 is unpopulated.
	ref := out[0].Node()
	loopEnd := ref.Args()[0].Node()
	if loopEnd == nil || loopEnd.Op() != op.LoopEnd {
		t.Fatalf("expected a LoopEnd node, got %v", loopEnd)
	}
	contribution := loopEnd.Args()[0].Node()
	if contribution == nil || contribution.Op() != op.ComEq {
		t.Errorf("contribution op = %v, want ComEq (conditional guard on the populated iteration)", contribution.Op())
	}
}

func TestPrepareSparseJacobianWithLoopsMissingTapeFails(t *testing.T) {
	m := buildIndexedLoop()
	rows := []int{10, 11}
	cols := []int{0, 1}
	positions := []int{0, 1}

	analysis, err := loop.AnalyzeSparseJacobianWithLoops(rows, cols, positions, []*loop.Model{m}, nil, 2)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	h := graph.NewCodeHandler()
	x := []cg.CG{cg.NewIndependent(h), cg.NewIndependent(h)}

	_, err = PrepareSparseJacobianWithLoops(h, x, []*loop.Model{m}, analysis, nil, nil, LoopTapes{}, true)
	if err == nil {
		t.Fatal("expected an error: no tape supplied for loop 0")
	}
}
