// Package host declares the contracts this module expects from an
// external host algorithmic-differentiation library: the output scalar
// type the Evaluator retapes into, and the tape operations the loop
// Jacobian synthesizer drives (forward-mode zero-order evaluation and
// sparse-Jacobian computation). Nothing in this package is implemented
// here — the host AD library, the C source emitter, the dynamic
// compiler wrapper, and the persistent dynamic-library loader are all
// external collaborators referenced only by their contracts.
package host

// Comparison selects which conditional branch CondExp takes.
type Comparison int

const (
	CompareLt Comparison = iota
	CompareLe
	CompareEq
	CompareGe
	CompareGt
	CompareNe
)

// Value is the set of operations the Evaluator requires from whatever
// scalar type T it is retaping a graph into. A concrete T provides its
// own math primitives (sin, exp, ...); this module assumes they exist
// and are correct.
type Value[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Pow(T) T

	Abs() T
	Sign() T
	Sqrt() T
	Exp() T
	Log() T
	Sin() T
	Cos() T
	Tan() T
	Sinh() T
	Cosh() T
	Tanh() T
	Asin() T
	Acos() T
	Atan() T

	// CondExp implements fun.CondExpOp(cmp, left, right, tCase, fCase):
	// the receiver is "left" acting as a builder method purely so the
	// generic constraint stays expressible without free functions on a
	// type parameter.
	CondExp(cmp Comparison, right, trueCase, falseCase T) T
}

// FromConst builds a T from a constant Base value, needed to seed
// parameter arguments encountered while retaping.
type FromConst[T any] func(v float64) T

// AtomicFunction is the zero-order-forward contract an Evaluator needs
// from an atomic: given the materialized input array x, write the
// output array y in place (x and y have the lengths recorded on the
// AtomicForward node's ArrayCreation argument nodes).
type AtomicFunction[T any] interface {
	Forward0(x, y []T)
}

// Sparsity describes, for one row of a Jacobian, the set of columns
// that may be nonzero.
type Sparsity map[int][]int

// Tape is the subset of the host AD library's tape contract the loop
// Jacobian synthesizer drives: re-executing a recorded numeric program
// (Forward0) and asking for a sparse Jacobian over a caller-supplied
// sparsity pattern and row/column selection (SparseJacobian).
type Tape[T any] interface {
	Forward0(x []T) (dep []T, err error)
	SparseJacobian(x []T, sparsity Sparsity, rows, cols []int, reverse bool) (values []T, err error)
}
