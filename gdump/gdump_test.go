package gdump

import (
	"testing"

	"github.com/symbolicad/cgraph/cg"
	"github.com/symbolicad/cgraph/eval"
	"github.com/symbolicad/cgraph/graph"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := graph.NewCodeHandler(graph.WithZeroDependent(false))
	x := cg.NewIndependent(h)
	y := cg.NewIndependent(h)
	z := x.Mul(y).Add(cg.NewParameter(1)).Sin()
	h.AddAtomicFunctionName(7, "my_atomic")

	data, err := Encode(h)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h2, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if h2.IndependentCount() != h.IndependentCount() {
		t.Errorf("IndependentCount = %d, want %d", h2.IndependentCount(), h.IndependentCount())
	}
	if len(h2.Nodes()) != len(h.Nodes()) {
		t.Fatalf("node count = %d, want %d", len(h2.Nodes()), len(h.Nodes()))
	}
	for i, n := range h.Nodes() {
		if h2.Nodes()[i].Op() != n.Op() {
			t.Errorf("node %d op = %v, want %v", i, h2.Nodes()[i].Op(), n.Op())
		}
	}
	name, ok := h2.AtomicFunctionName(7)
	if !ok || name != "my_atomic" {
		t.Errorf("AtomicFunctionName(7) = (%q, %v), want (\"my_atomic\", true)", name, ok)
	}

	// The reloaded graph must evaluate identically to the original: the
	// dependent is the last node recorded (z.Node()), found by position
	// since IDs are stable across a round trip with no hoisting involved.
	dep2 := cg.NewVariable(h2, h2.Nodes()[len(h2.Nodes())-1], 0, false)
	ev1 := eval.NewEvaluator[eval.Float64](h, []cg.CG{z}, eval.FromFloat64)
	ev2 := eval.NewEvaluator[eval.Float64](h2, []cg.CG{dep2}, eval.FromFloat64)

	out1, err := ev1.Evaluate([]eval.Float64{2, 3})
	if err != nil {
		t.Fatalf("Evaluate original: %v", err)
	}
	out2, err := ev2.Evaluate([]eval.Float64{2, 3})
	if err != nil {
		t.Fatalf("Evaluate reloaded: %v", err)
	}
	if out1[0] != out2[0] {
		t.Errorf("reloaded graph evaluates to %v, want %v", out2[0], out1[0])
	}
}

func TestDecodeMalformedJSONIsAnError(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestDecodeMissingNodesFieldIsAnError(t *testing.T) {
	if _, err := Decode([]byte(`{"zeroDependent": false}`)); err == nil {
		t.Fatal("expected an error for a missing nodes field")
	}
}

func TestDecodeUnknownOpNameIsAnError(t *testing.T) {
	data := []byte(`{"zeroDependent": false, "nodes": [{"op": "NotARealOp", "args": [], "info": []}]}`)
	if _, err := Decode(data); err == nil {
		t.Fatal("expected an error for an unrecognized op name")
	}
}

func TestEncodeIndexPatternRoundTrip(t *testing.T) {
	h := graph.NewCodeHandler()
	id := h.ManageIndexPattern(&graph.IndexPattern{Kind: graph.LinearPattern, Slope: 2, Offset: 1, Divisor: 1})
	_ = id
	cg.NewIndependent(h) // give the graph at least one node so nodes isn't empty

	data, err := Encode(h)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	h2, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if h2.IndexPatternCount() != 1 {
		t.Fatalf("IndexPatternCount = %d, want 1", h2.IndexPatternCount())
	}
	p := h2.IndexPatternAt(0)
	if p.Kind != graph.LinearPattern || p.Slope != 2 || p.Offset != 1 || p.Divisor != 1 {
		t.Errorf("reloaded pattern = %+v, want Linear{2,1,1}", p)
	}
}
