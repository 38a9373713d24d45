// Package cg implements the symbolic scalar ("codegen value"): a value
// that is either a constant parameter or a reference to an operation
// graph node, with arithmetic and transcendental methods that extend
// the graph on a CodeHandler. Every operator constant-folds: if all
// operands are parameters the result folds to a parameter directly in
// Base, otherwise a new Variable node is recorded.
package cg

import (
	"math"

	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/host"
	"github.com/symbolicad/cgraph/op"
)

// CG is either a Parameter(Base) or a Variable referencing a node owned
// by a handler, with an optional cached forward value.
type CG struct {
	handler   *graph.CodeHandler
	node      *graph.OperationNode
	isParam   bool
	param     float64
	hasValue  bool
	value     float64
}

// NewParameter builds a constant CG value owning v, with no graph node.
func NewParameter(v float64) CG {
	return CG{isParam: true, param: v, hasValue: true, value: v}
}

// NewIndependent allocates a fresh independent on h and wraps it as a
// Variable CG.
func NewIndependent(h *graph.CodeHandler) CG {
	n := h.NewIndependent()
	return CG{handler: h, node: n}
}

// NewVariable wraps an existing node n (owned by h) as a Variable CG,
// optionally caching its forward value.
func NewVariable(h *graph.CodeHandler, n *graph.OperationNode, value float64, hasValue bool) CG {
	return CG{handler: h, node: n, hasValue: hasValue, value: value}
}

func (c CG) IsParameter() bool            { return c.isParam }
func (c CG) Value() (float64, bool)       { return c.value, c.hasValue }
func (c CG) Handler() *graph.CodeHandler  { return c.handler }
func (c CG) Node() *graph.OperationNode   { return c.node }

func (c CG) arg() graph.Argument {
	if c.isParam {
		return graph.Parameter(c.param)
	}
	return graph.NodeArg(c.node)
}

// Arg converts c into a graph.Argument for use as another node's
// operand, for callers outside this package (the loop synthesizer)
// building nodes directly against graph.CodeHandler.
func Arg(c CG) graph.Argument { return c.arg() }

// handlerOf picks whichever operand carries a handler; both operands of
// a binary op must agree on their handler if both are Variables (an
// invariant enforced by construction, since CG values are never passed
// across handlers in this API).
func handlerOf(a, b CG) *graph.CodeHandler {
	if a.handler != nil {
		return a.handler
	}
	return b.handler
}

func binary(a, b CG, code op.Code, fold func(x, y float64) float64) CG {
	if a.isParam && b.isParam {
		return NewParameter(fold(a.param, b.param))
	}
	h := handlerOf(a, b)
	n := h.MustNewNode(code, []graph.Argument{a.arg(), b.arg()})
	hasValue := a.hasValue && b.hasValue
	var v float64
	if hasValue {
		v = fold(a.value, b.value)
	}
	return NewVariable(h, n, v, hasValue)
}

func unary(a CG, code op.Code, fold func(x float64) float64) CG {
	if a.isParam {
		return NewParameter(fold(a.param))
	}
	n := a.handler.MustNewNode(code, []graph.Argument{a.arg()})
	var v float64
	hasValue := a.hasValue
	if hasValue {
		v = fold(a.value)
	}
	return NewVariable(a.handler, n, v, hasValue)
}

func (a CG) Add(b CG) CG { return binary(a, b, op.Add, func(x, y float64) float64 { return x + y }) }
func (a CG) Sub(b CG) CG { return binary(a, b, op.Sub, func(x, y float64) float64 { return x - y }) }
func (a CG) Mul(b CG) CG { return binary(a, b, op.Mul, func(x, y float64) float64 { return x * y }) }
func (a CG) Div(b CG) CG { return binary(a, b, op.Div, func(x, y float64) float64 { return x / y }) }
func (a CG) Pow(b CG) CG { return binary(a, b, op.Pow, math.Pow) }

func (a CG) Neg() CG  { return unary(a, op.UnMinus, func(x float64) float64 { return -x }) }
func (a CG) Abs() CG  { return unary(a, op.Abs, math.Abs) }
func (a CG) Sign() CG {
	return unary(a, op.Sign, func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return 0
		}
	})
}
func (a CG) Sqrt() CG { return unary(a, op.Sqrt, math.Sqrt) }
func (a CG) Exp() CG  { return unary(a, op.Exp, math.Exp) }
func (a CG) Log() CG  { return unary(a, op.Log, math.Log) }
func (a CG) Sin() CG  { return unary(a, op.Sin, math.Sin) }
func (a CG) Cos() CG  { return unary(a, op.Cos, math.Cos) }
func (a CG) Tan() CG  { return unary(a, op.Tan, math.Tan) }
func (a CG) Sinh() CG { return unary(a, op.Sinh, math.Sinh) }
func (a CG) Cosh() CG { return unary(a, op.Cosh, math.Cosh) }
func (a CG) Tanh() CG { return unary(a, op.Tanh, math.Tanh) }
func (a CG) Asin() CG { return unary(a, op.Asin, math.Asin) }
func (a CG) Acos() CG { return unary(a, op.Acos, math.Acos) }
func (a CG) Atan() CG { return unary(a, op.Atan, math.Atan) }

// Alias creates an identity-forwarding node over a (used by the loop
// synthesizer to give an aliased result its own node identity without
// changing its value).
func Alias(h *graph.CodeHandler, a CG) CG {
	if a.isParam {
		n := h.MustNewNode(op.Alias, []graph.Argument{graph.Parameter(a.param)})
		return NewVariable(h, n, a.param, true)
	}
	n := h.MustNewNode(op.Alias, []graph.Argument{a.arg()})
	return NewVariable(h, n, a.value, a.hasValue)
}

// Comparison selects which Com* conditional op a CondExp builds.
type Comparison int

const (
	CompareLt Comparison = iota
	CompareLe
	CompareEq
	CompareGe
	CompareGt
	CompareNe
)

func (c Comparison) code() op.Code {
	switch c {
	case CompareLt:
		return op.ComLt
	case CompareLe:
		return op.ComLe
	case CompareEq:
		return op.ComEq
	case CompareGe:
		return op.ComGe
	case CompareGt:
		return op.ComGt
	default:
		return op.ComNe
	}
}

func (c Comparison) holds(l, r float64) bool {
	switch c {
	case CompareLt:
		return l < r
	case CompareLe:
		return l <= r
	case CompareEq:
		return l == r
	case CompareGe:
		return l >= r
	case CompareGt:
		return l > r
	default:
		return l != r
	}
}

// CondExp builds `cmp(left,right) ? trueCase : falseCase` as a graph
// node (or folds it directly when every operand is a parameter).
func CondExp(cmp Comparison, left, right, trueCase, falseCase CG) CG {
	if left.isParam && right.isParam && trueCase.isParam && falseCase.isParam {
		if cmp.holds(left.param, right.param) {
			return NewParameter(trueCase.param)
		}
		return NewParameter(falseCase.param)
	}
	var h *graph.CodeHandler
	for _, c := range []CG{left, right, trueCase, falseCase} {
		if c.handler != nil {
			h = c.handler
			break
		}
	}
	args := []graph.Argument{left.arg(), right.arg(), trueCase.arg(), falseCase.arg()}
	n := h.MustNewNode(cmp.code(), args)
	hasValue := left.hasValue && right.hasValue && trueCase.hasValue && falseCase.hasValue
	var v float64
	if hasValue {
		if cmp.holds(left.value, right.value) {
			v = trueCase.value
		} else {
			v = falseCase.value
		}
	}
	return NewVariable(h, n, v, hasValue)
}

func fromHostComparison(cmp host.Comparison) Comparison {
	switch cmp {
	case host.CompareLt:
		return CompareLt
	case host.CompareLe:
		return CompareLe
	case host.CompareEq:
		return CompareEq
	case host.CompareGe:
		return CompareGe
	case host.CompareGt:
		return CompareGt
	default:
		return CompareNe
	}
}

// CondExp is the host.Value[CG] method form of the package-level
// CondExp: the receiver plays "left". It lets CG itself be used as the
// output scalar type of an Evaluator, i.e. to retape a graph into a new
// graph on a different (or the same) handler.
func (a CG) CondExp(cmp host.Comparison, right, trueCase, falseCase CG) CG {
	return CondExp(fromHostComparison(cmp), a, right, trueCase, falseCase)
}

// FromConst lifts a Base parameter into CG, for use as the fromConst
// argument to NewEvaluator[CG] when retaping onto a (possibly
// different) handler.
func FromConst(v float64) CG { return NewParameter(v) }
