package eval

import (
	"math"
	"testing"

	"github.com/symbolicad/cgraph/cg"
	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/host"
	"github.com/symbolicad/cgraph/op"
)

func TestEvaluateSimpleExpression(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	y := cg.NewIndependent(h)
	z := x.Mul(y).Add(cg.NewParameter(1))

	ev := NewEvaluator[Float64](h, []cg.CG{z}, FromFloat64)
	out, err := ev.Evaluate([]Float64{2, 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out[0] != 7 {
		t.Errorf("out[0] = %v, want 7 (2*3+1)", out[0])
	}
}

func TestEvaluateWrongIndependentCount(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	ev := NewEvaluator[Float64](h, []cg.CG{x}, FromFloat64)

	if _, err := ev.Evaluate([]Float64{1, 2}); err == nil {
		t.Fatal("expected an error for a mismatched independent count")
	}
}

func TestEvaluateIsReentrantAcrossCalls(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	z := x.Mul(x)
	ev := NewEvaluator[Float64](h, []cg.CG{z}, FromFloat64)

	out1, err := ev.Evaluate([]Float64{3})
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	out2, err := ev.Evaluate([]Float64{5})
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if out1[0] != 9 || out2[0] != 25 {
		t.Errorf("out1=%v out2=%v, want 9 and 25 (stale cache would leak 9 into the second call)", out1[0], out2[0])
	}
}

func TestEvaluateConditional(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	z := cg.CondExp(cg.CompareGt, x, cg.NewParameter(0), cg.NewParameter(1), cg.NewParameter(-1))

	ev := NewEvaluator[Float64](h, []cg.CG{z}, FromFloat64)

	out, err := ev.Evaluate([]Float64{5})
	if err != nil || out[0] != 1 {
		t.Errorf("Evaluate(5) = (%v, %v), want (1, nil)", out, err)
	}
	out, err = ev.Evaluate([]Float64{-5})
	if err != nil || out[0] != -1 {
		t.Errorf("Evaluate(-5) = (%v, %v), want (-1, nil)", out, err)
	}
}

func TestEvaluateTranscendental(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	z := x.Sin()

	ev := NewEvaluator[Float64](h, []cg.CG{z}, FromFloat64)
	out, err := ev.Evaluate([]Float64{math.Pi / 2})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(float64(out[0])-1) > 1e-9 {
		t.Errorf("Sin(pi/2) = %v, want ~1", out[0])
	}
}

// countingAtomic records how many times Forward0 runs, to verify
// atomic-exactly-once semantics when the same AtomicForward node is
// reached through more than one ArrayElement.
type countingAtomic struct {
	calls int
}

func (a *countingAtomic) Forward0(x, y []Float64) {
	a.calls++
	y[0] = x[0] * x[0]
	if len(y) > 1 {
		y[1] = x[0] + x[1]
	}
}

func buildAtomicGraph(h *graph.CodeHandler, x, y cg.CG, atomicID int, outCount int) (*graph.OperationNode, *graph.OperationNode) {
	inArr := h.MustNewNode(op.ArrayCreation, []graph.Argument{cg.Arg(x), cg.Arg(y)})
	outArgs := make([]graph.Argument, outCount)
	for i := range outArgs {
		outArgs[i] = graph.Parameter(0)
	}
	outArr := h.MustNewNode(op.ArrayCreation, outArgs)
	fwd := h.MustNewNode(op.AtomicForward, []graph.Argument{graph.NodeArg(inArr), graph.NodeArg(outArr)}, atomicID, 0, 0)
	return outArr, fwd
}

func TestEvaluateAtomicExactlyOnce(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	y := cg.NewIndependent(h)

	outArr, fwd := buildAtomicGraph(h, x, y, 1, 2)
	elem0 := h.MustNewNode(op.ArrayElement, []graph.Argument{graph.NodeArg(outArr), graph.NodeArg(fwd)}, 0)
	elem1 := h.MustNewNode(op.ArrayElement, []graph.Argument{graph.NodeArg(outArr), graph.NodeArg(fwd)}, 1)
	sum := cg.NewVariable(h, elem0, 0, false).Add(cg.NewVariable(h, elem1, 0, false))

	ev := NewEvaluator[Float64](h, []cg.CG{sum}, FromFloat64)
	atomic := &countingAtomic{}
	ev.AddAtomicFunction(1, atomic)

	out, err := ev.Evaluate([]Float64{3, 4})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := Float64(3*3) + Float64(3+4)
	if out[0] != want {
		t.Errorf("out[0] = %v, want %v", out[0], want)
	}
	if atomic.calls != 1 {
		t.Errorf("Forward0 called %d times, want exactly 1", atomic.calls)
	}
}

func TestEvaluateMissingAtomicIsAnError(t *testing.T) {
	h := graph.NewCodeHandler()
	x := cg.NewIndependent(h)
	outArr, fwd := buildAtomicGraph(h, x, x, 9, 1)
	elem := h.MustNewNode(op.ArrayElement, []graph.Argument{graph.NodeArg(outArr), graph.NodeArg(fwd)}, 0)

	ev := NewEvaluator[Float64](h, []cg.CG{cg.NewVariable(h, elem, 0, false)}, FromFloat64)
	if _, err := ev.Evaluate([]Float64{1}); err == nil {
		t.Fatal("expected an error when no atomic is registered for the referenced id")
	}
}

var _ host.AtomicFunction[Float64] = (*countingAtomic)(nil)
