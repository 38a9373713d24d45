// Package solve implements the Solver: symbolic inversion of a
// single-path expression to isolate a target node, including its
// Cosh/Sinh/Tanh inversion formulas and its Pow restriction (even
// exponents stay non-invertible; see DESIGN.md's Open Questions
// section).
package solve

import (
	"github.com/symbolicad/cgraph/cg"
	"github.com/symbolicad/cgraph/diag"
	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/op"
)

// SolveFor finds the unique path from expression to target and inverts
// it, returning a CG value rhs such that substituting rhs for target
// makes expression == 0.
func SolveFor(h *graph.CodeHandler, expression, target *graph.OperationNode) (cg.CG, error) {
	paths := h.FindPaths(expression, target, 2)
	if len(paths) == 0 {
		return cg.CG{}, diag.New(diag.NotPresent, "the provided variable is not present in the expression")
	}
	if len(paths) > 1 {
		return cg.CG{}, diag.New(diag.Ambiguous,
			"unable to determine expression for variable: it was found in multiple locations")
	}
	return SolveForPath(h, paths[0])
}

// SolveForPath inverts a single explicit path (root=expression, last
// node=target), returning the isolated right-hand side.
func SolveForPath(h *graph.CodeHandler, path []graph.OperationPathNode) (cg.CG, error) {
	rhs := cg.NewParameter(0)

	for n := 0; n < len(path)-1; n++ {
		node := path[n].Node
		argIndex := path[n+1].ArgIndex
		args := node.Args()
		code := node.Op()

		other := func(idx int) cg.CG { return argAsCG(h, args[idx]) }

		switch code {
		case op.Mul:
			o := other(otherIndex(argIndex))
			rhs = rhs.Div(o)

		case op.Div:
			if argIndex == 0 {
				o := other(1)
				rhs = rhs.Mul(o)
			} else {
				o := other(0)
				rhs = o.Div(rhs)
			}

		case op.UnMinus:
			rhs = rhs.Mul(cg.NewParameter(-1))

		case op.Add:
			o := other(otherIndex(argIndex))
			rhs = rhs.Sub(o)

		case op.Alias:
			// no-op

		case op.Sub:
			if argIndex == 0 {
				rhs = rhs.Add(argAsCG(h, args[1]))
			} else {
				rhs = argAsCG(h, args[0]).Sub(rhs)
			}

		case op.Exp:
			rhs = rhs.Log()

		case op.Log:
			rhs = rhs.Exp()

		case op.Pow:
			if argIndex == 0 {
				exponent := args[1]
				if exponent.IsParameter() && exponent.ParamValue() == 0 {
					return cg.CG{}, diag.New(diag.InvalidZeroExponent, "invalid zero exponent")
				} else if exponent.IsParameter() && exponent.ParamValue() == 1 {
					// pass-through, do nothing
				} else {
					return cg.CG{}, nonInvertible(code)
				}
			} else {
				base := args[0]
				rhs = rhs.Log().Div(argAsCG(h, base).Log())
			}

		case op.Sqrt:
			rhs = rhs.Mul(rhs)

		case op.Cosh:
			// inverts as acosh; see DESIGN.md for the Cosh/asinh naming note.
			rhs = rhs.Add(rhs.Mul(rhs).Sub(cg.NewParameter(1)).Sqrt()).Log()

		case op.Sinh:
			rhs = rhs.Add(rhs.Mul(rhs).Add(cg.NewParameter(1)).Sqrt()).Log()

		case op.Tanh:
			rhs = cg.NewParameter(0.5).Mul(
				cg.NewParameter(1).Add(rhs).Log().Sub(cg.NewParameter(1).Sub(rhs).Log()),
			)

		default:
			return cg.CG{}, nonInvertible(code)
		}
	}

	return rhs, nil
}

// IsSolvable reports whether SolveForPath would succeed on path without
// constructing any nodes.
func IsSolvable(path []graph.OperationPathNode) bool {
	for n := 0; n < len(path)-1; n++ {
		node := path[n].Node
		argIndex := path[n+1].ArgIndex
		args := node.Args()

		switch node.Op() {
		case op.Mul, op.Div, op.UnMinus, op.Add, op.Alias, op.Sub,
			op.Exp, op.Log, op.Sqrt, op.Cosh, op.Sinh, op.Tanh:
			// always invertible at this step
		case op.Pow:
			if argIndex == 0 {
				exponent := args[1]
				if exponent.IsParameter() && exponent.ParamValue() == 0 {
					return false
				}
				if exponent.IsParameter() && exponent.ParamValue() == 1 {
					continue
				}
				return false
			}
		default:
			return false
		}
	}
	return true
}

func otherIndex(argIndex int) int {
	if argIndex == 0 {
		return 1
	}
	return 0
}

func argAsCG(h *graph.CodeHandler, a graph.Argument) cg.CG {
	if a.IsParameter() {
		return cg.NewParameter(a.ParamValue())
	}
	return cg.NewVariable(h, a.Node(), 0, false)
}

func nonInvertible(code op.Code) *diag.Error {
	e := diag.New(diag.NonInvertible, "unable to invert operation")
	e.Op = code.String()
	return e
}
