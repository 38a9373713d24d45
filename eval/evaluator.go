// Package eval implements the Evaluator: depth-first, memoized
// re-execution of a recorded operation graph against a fresh scalar
// type, as a generic Go type parameterized over the host output scalar
// (host.Value[T]) — the idiomatic substitute for a two-parameter
// template pair over a base type and an output type.
package eval

import (
	"github.com/symbolicad/cgraph/cg"
	"github.com/symbolicad/cgraph/diag"
	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/host"
	"github.com/symbolicad/cgraph/op"
)

// Evaluator re-plays a handler's DAG, producing dep under a new scalar
// type T and user-supplied independents/atomic bindings.
type Evaluator[T host.Value[T]] struct {
	handler   *graph.CodeHandler
	dep       []cg.CG
	fromConst host.FromConst[T]
	atomics   map[int]host.AtomicFunction[T]

	scalarCache map[int]T
	arrayCache  map[int][]T
	atomicDone  map[int]bool
}

// NewEvaluator builds an Evaluator over handler's graph for the given
// dependent CG values, using fromConst to lift Base parameters into T.
func NewEvaluator[T host.Value[T]](handler *graph.CodeHandler, dep []cg.CG, fromConst host.FromConst[T]) *Evaluator[T] {
	return &Evaluator[T]{
		handler:   handler,
		dep:       dep,
		fromConst: fromConst,
		atomics:   make(map[int]host.AtomicFunction[T]),
	}
}

// AddAtomicFunction registers an atomic, reporting whether id was
// already bound (and is now overwritten).
func (e *Evaluator[T]) AddAtomicFunction(id int, atomic host.AtomicFunction[T]) bool {
	_, existed := e.atomics[id]
	e.atomics[id] = atomic
	return existed
}

// AddAtomicFunctions installs many atomics at once, skipping nil
// entries.
func (e *Evaluator[T]) AddAtomicFunctions(atomics map[int]host.AtomicFunction[T]) {
	for id, a := range atomics {
		if a == nil {
			continue
		}
		e.atomics[id] = a
	}
}

func (e *Evaluator[T]) clear() {
	e.scalarCache = make(map[int]T)
	e.arrayCache = make(map[int][]T)
	e.atomicDone = make(map[int]bool)
}

// Evaluate re-executes the recorded graph against indep, returning one
// value per dependent. Caches are cleared on entry (defensively) and on
// every exit path (success or failure), guaranteeing no partial state
// leaks between calls.
func (e *Evaluator[T]) Evaluate(indep []T) (result []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = diag.FromRecover(r, diag.UnsupportedOp)
			result = nil
		}
		e.clear()
	}()

	if len(indep) != e.handler.IndependentCount() {
		return nil, diag.New(diag.InvalidInput,
			"invalid independent variable size: expected %d, got %d",
			e.handler.IndependentCount(), len(indep))
	}

	e.clear()

	out := make([]T, len(e.dep))
	for i, d := range e.dep {
		v, err := e.evalCG(d, indep)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Evaluator[T]) evalCG(c cg.CG, indep []T) (T, error) {
	if c.IsParameter() {
		v, _ := c.Value()
		return e.fromConst(v), nil
	}
	return e.evalOperations(c.Node(), indep)
}

func (e *Evaluator[T]) evalArg(a graph.Argument, indep []T) (T, error) {
	if a.IsParameter() {
		return e.fromConst(a.ParamValue()), nil
	}
	return e.evalOperations(a.Node(), indep)
}

func (e *Evaluator[T]) evalOperations(n *graph.OperationNode, indep []T) (T, error) {
	var zero T
	if v, ok := e.scalarCache[n.ID()]; ok {
		return v, nil
	}

	args := n.Args()
	var result T
	var err error

	switch n.Op() {
	case op.Inv:
		idx, ok := e.handler.IndependentIndex(n)
		if !ok {
			return zero, diag.New(diag.InvalidInput, "node #%d is not a registered independent", n.ID())
		}
		if idx >= len(indep) {
			return zero, diag.New(diag.InvalidInput, "independent index %d out of range", idx)
		}
		result = indep[idx]

	case op.Assign, op.Alias:
		result, err = e.evalArg(args[0], indep)

	case op.Add:
		result, err = e.binary(args, indep, func(a, b T) T { return a.Add(b) })
	case op.Sub:
		result, err = e.binary(args, indep, func(a, b T) T { return a.Sub(b) })
	case op.Mul:
		result, err = e.binary(args, indep, func(a, b T) T { return a.Mul(b) })
	case op.Div:
		result, err = e.binary(args, indep, func(a, b T) T { return a.Div(b) })
	case op.Pow:
		result, err = e.binary(args, indep, func(a, b T) T { return a.Pow(b) })

	case op.UnMinus:
		result, err = e.unary(args, indep, func(a T) T { return a.Neg() })
	case op.Abs:
		result, err = e.unary(args, indep, func(a T) T { return a.Abs() })
	case op.Sign:
		result, err = e.unary(args, indep, func(a T) T { return a.Sign() })
	case op.Sqrt:
		result, err = e.unary(args, indep, func(a T) T { return a.Sqrt() })
	case op.Exp:
		result, err = e.unary(args, indep, func(a T) T { return a.Exp() })
	case op.Log:
		result, err = e.unary(args, indep, func(a T) T { return a.Log() })
	case op.Sin:
		result, err = e.unary(args, indep, func(a T) T { return a.Sin() })
	case op.Cos:
		result, err = e.unary(args, indep, func(a T) T { return a.Cos() })
	case op.Tan:
		result, err = e.unary(args, indep, func(a T) T { return a.Tan() })
	case op.Sinh:
		result, err = e.unary(args, indep, func(a T) T { return a.Sinh() })
	case op.Cosh:
		result, err = e.unary(args, indep, func(a T) T { return a.Cosh() })
	case op.Tanh:
		result, err = e.unary(args, indep, func(a T) T { return a.Tanh() })
	case op.Asin:
		result, err = e.unary(args, indep, func(a T) T { return a.Asin() })
	case op.Acos:
		result, err = e.unary(args, indep, func(a T) T { return a.Acos() })
	case op.Atan:
		result, err = e.unary(args, indep, func(a T) T { return a.Atan() })

	case op.ComLt, op.ComLe, op.ComEq, op.ComGe, op.ComGt, op.ComNe:
		result, err = e.conditional(n.Op(), args, indep)

	case op.ArrayElement:
		result, err = e.evalArrayElement(n, indep)

	default:
		return zero, diag.New(diag.UnsupportedOp, "unknown operation code %v", n.Op())
	}

	if err != nil {
		return zero, err
	}
	e.scalarCache[n.ID()] = result
	return result, nil
}

func (e *Evaluator[T]) binary(args []graph.Argument, indep []T, f func(a, b T) T) (T, error) {
	var zero T
	a, err := e.evalArg(args[0], indep)
	if err != nil {
		return zero, err
	}
	b, err := e.evalArg(args[1], indep)
	if err != nil {
		return zero, err
	}
	return f(a, b), nil
}

func (e *Evaluator[T]) unary(args []graph.Argument, indep []T, f func(a T) T) (T, error) {
	var zero T
	a, err := e.evalArg(args[0], indep)
	if err != nil {
		return zero, err
	}
	return f(a), nil
}

func comparisonOf(code op.Code) host.Comparison {
	switch code {
	case op.ComLt:
		return host.CompareLt
	case op.ComLe:
		return host.CompareLe
	case op.ComEq:
		return host.CompareEq
	case op.ComGe:
		return host.CompareGe
	case op.ComGt:
		return host.CompareGt
	default:
		return host.CompareNe
	}
}

func (e *Evaluator[T]) conditional(code op.Code, args []graph.Argument, indep []T) (T, error) {
	var zero T
	left, err := e.evalArg(args[0], indep)
	if err != nil {
		return zero, err
	}
	right, err := e.evalArg(args[1], indep)
	if err != nil {
		return zero, err
	}
	tCase, err := e.evalArg(args[2], indep)
	if err != nil {
		return zero, err
	}
	fCase, err := e.evalArg(args[3], indep)
	if err != nil {
		return zero, err
	}
	return left.CondExp(comparisonOf(code), right, tCase, fCase), nil
}

func (e *Evaluator[T]) evalArrayElement(n *graph.OperationNode, indep []T) (T, error) {
	var zero T
	args := n.Args()
	info := n.Info()
	if len(args) != 2 || len(info) != 1 {
		return zero, diag.New(diag.InvalidInput, "invalid ArrayElement node #%d", n.ID())
	}
	arrNode := args[0].Node()
	atomicNode := args[1].Node()
	if arrNode == nil || atomicNode == nil {
		return zero, diag.New(diag.InvalidInput, "invalid ArrayElement arguments on node #%d", n.ID())
	}
	arr, err := e.evalArrayCreation(arrNode, indep)
	if err != nil {
		return zero, err
	}
	if err := e.evalAtomic(atomicNode, indep); err != nil {
		return zero, err
	}
	idx := info[0]
	if idx < 0 || idx >= len(arr) {
		return zero, diag.New(diag.InvalidInput, "array index %d out of range on node #%d", idx, n.ID())
	}
	return arr[idx], nil
}

func (e *Evaluator[T]) evalArrayCreation(n *graph.OperationNode, indep []T) ([]T, error) {
	if arr, ok := e.arrayCache[n.ID()]; ok {
		return arr, nil
	}
	if n.Op() != op.ArrayCreation {
		return nil, diag.New(diag.InvalidInput, "node #%d is not an ArrayCreation", n.ID())
	}
	args := n.Args()
	arr := make([]T, len(args))
	for i, a := range args {
		v, err := e.evalArg(a, indep)
		if err != nil {
			return nil, err
		}
		arr[i] = v
	}
	e.arrayCache[n.ID()] = arr
	return arr, nil
}

func (e *Evaluator[T]) evalAtomic(n *graph.OperationNode, indep []T) error {
	if e.atomicDone[n.ID()] {
		return nil
	}
	if n.Op() != op.AtomicForward {
		return diag.New(diag.InvalidInput, "node #%d is not an AtomicForward", n.ID())
	}
	info := n.Info()
	args := n.Args()
	if len(info) != 3 || len(args) != 2 {
		return diag.New(diag.InvalidInput, "invalid AtomicForward node #%d", n.ID())
	}
	id, _, p := info[0], info[1], info[2]
	if p != 0 {
		name, _ := e.handler.AtomicFunctionName(id)
		return &diag.Error{
			Code:       diag.UnsupportedAtomic,
			Message:    "evaluator can only handle zero forward mode for atomic functions",
			EquationI:  -1,
			ColumnJ:    -1,
			AtomicID:   id,
			AtomicName: name,
		}
	}
	atomic, ok := e.atomics[id]
	if !ok || atomic == nil {
		name, _ := e.handler.AtomicFunctionName(id)
		return &diag.Error{
			Code:       diag.MissingAtomic,
			Message:    "no atomic function defined in the evaluator",
			EquationI:  -1,
			ColumnJ:    -1,
			AtomicID:   id,
			AtomicName: name,
		}
	}

	inArr, err := e.evalArrayCreation(args[0].Node(), indep)
	if err != nil {
		return err
	}
	outArr, err := e.evalArrayCreation(args[1].Node(), indep)
	if err != nil {
		return err
	}
	atomic.Forward0(inArr, outArr)
	e.atomicDone[n.ID()] = true
	return nil
}
