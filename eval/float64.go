package eval

import (
	"math"

	"github.com/symbolicad/cgraph/host"
)

// Float64 is the reference host.Value[Float64] implementation: a plain
// float64 wrapper for evaluating a graph back into concrete numbers
// (tests, and callers with no further AD re-taping need).
type Float64 float64

func (a Float64) Add(b Float64) Float64 { return a + b }
func (a Float64) Sub(b Float64) Float64 { return a - b }
func (a Float64) Mul(b Float64) Float64 { return a * b }
func (a Float64) Div(b Float64) Float64 { return a / b }
func (a Float64) Neg() Float64          { return -a }
func (a Float64) Pow(b Float64) Float64 { return Float64(math.Pow(float64(a), float64(b))) }

func (a Float64) Abs() Float64  { return Float64(math.Abs(float64(a))) }
func (a Float64) Sign() Float64 {
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	default:
		return 0
	}
}
func (a Float64) Sqrt() Float64 { return Float64(math.Sqrt(float64(a))) }
func (a Float64) Exp() Float64  { return Float64(math.Exp(float64(a))) }
func (a Float64) Log() Float64  { return Float64(math.Log(float64(a))) }
func (a Float64) Sin() Float64  { return Float64(math.Sin(float64(a))) }
func (a Float64) Cos() Float64  { return Float64(math.Cos(float64(a))) }
func (a Float64) Tan() Float64  { return Float64(math.Tan(float64(a))) }
func (a Float64) Sinh() Float64 { return Float64(math.Sinh(float64(a))) }
func (a Float64) Cosh() Float64 { return Float64(math.Cosh(float64(a))) }
func (a Float64) Tanh() Float64 { return Float64(math.Tanh(float64(a))) }
func (a Float64) Asin() Float64 { return Float64(math.Asin(float64(a))) }
func (a Float64) Acos() Float64 { return Float64(math.Acos(float64(a))) }
func (a Float64) Atan() Float64 { return Float64(math.Atan(float64(a))) }

func (a Float64) CondExp(cmp host.Comparison, right, trueCase, falseCase Float64) Float64 {
	var holds bool
	switch cmp {
	case host.CompareLt:
		holds = a < right
	case host.CompareLe:
		holds = a <= right
	case host.CompareEq:
		holds = a == right
	case host.CompareGe:
		holds = a >= right
	case host.CompareGt:
		holds = a > right
	default:
		holds = a != right
	}
	if holds {
		return trueCase
	}
	return falseCase
}

// FromFloat64 lifts a Base parameter into Float64, for use as the
// fromConst argument to NewEvaluator[Float64].
func FromFloat64(v float64) Float64 { return Float64(v) }
