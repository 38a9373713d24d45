package graph

import (
	"testing"

	"github.com/symbolicad/cgraph/op"
)

func TestFindPathsSinglePath(t *testing.T) {
	h := NewCodeHandler()
	x := h.NewIndependent()
	y := h.NewIndependent()
	mul := h.MustNewNode(op.Mul, []Argument{NodeArg(x), NodeArg(y)})
	root := h.MustNewNode(op.Sin, []Argument{NodeArg(mul)})

	paths := h.FindPaths(root, x, 2)
	if len(paths) != 1 {
		t.Fatalf("len(paths) = %d, want 1", len(paths))
	}
	path := paths[0]
	if path[len(path)-1].Node != x {
		t.Error("path should end at the target node")
	}
	if path[0].Node != root {
		t.Error("path should start at the root node")
	}
}

func TestFindPathsAmbiguous(t *testing.T) {
	h := NewCodeHandler()
	x := h.NewIndependent()
	root := h.MustNewNode(op.Add, []Argument{NodeArg(x), NodeArg(x)})

	paths := h.FindPaths(root, x, 2)
	if len(paths) != 2 {
		t.Fatalf("len(paths) = %d, want 2 (x appears twice)", len(paths))
	}
}

func TestFindPathsNotPresent(t *testing.T) {
	h := NewCodeHandler()
	x := h.NewIndependent()
	y := h.NewIndependent()
	root := h.MustNewNode(op.Exp, []Argument{NodeArg(x)})

	if paths := h.FindPaths(root, y, 2); len(paths) != 0 {
		t.Errorf("len(paths) = %d, want 0", len(paths))
	}
}

func TestFindPathsSkipsParameterArgs(t *testing.T) {
	h := NewCodeHandler()
	x := h.NewIndependent()
	root := h.MustNewNode(op.Add, []Argument{Parameter(2), NodeArg(x)})

	paths := h.FindPaths(root, x, 2)
	if len(paths) != 1 {
		t.Fatalf("len(paths) = %d, want 1", len(paths))
	}
	if paths[0][1].ArgIndex != 1 {
		t.Errorf("ArgIndex = %d, want 1 (x is the second argument)", paths[0][1].ArgIndex)
	}
}
