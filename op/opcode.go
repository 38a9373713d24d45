// Package op defines the closed set of operation tags that label every
// node in a symbolic operation graph, together with their fixed argument
// and info-slot arities.
package op

// Code is a tagged operation variant. The set is closed: no caller can
// introduce a new Code, and every component that switches on Code must
// handle the full set or report UnsupportedOp.
type Code byte

const (
	Invalid Code = iota

	// Leaf
	Inv // independent variable

	// Identity forwarders
	Assign
	Alias

	// Arithmetic
	Add
	Sub
	Mul
	Div
	UnMinus
	Pow

	// Transcendental unary
	Abs
	Sign
	Sqrt
	Exp
	Log
	Sin
	Cos
	Tan
	Sinh
	Cosh
	Tanh
	Asin
	Acos
	Atan

	// Conditionals: (left, right, trueCase, falseCase)
	ComLt
	ComLe
	ComEq
	ComGe
	ComGt
	ComNe

	// Arrays / atomics
	ArrayCreation
	ArrayElement
	AtomicForward
	AtomicReverse

	// Loop constructs
	LoopStart
	LoopEnd
	IndexDeclare
	IndexAssign
	IndexOp
	DependentRefRhs
)

var names = map[Code]string{
	Invalid:         "Invalid",
	Inv:             "Inv",
	Assign:          "Assign",
	Alias:           "Alias",
	Add:             "Add",
	Sub:             "Sub",
	Mul:             "Mul",
	Div:             "Div",
	UnMinus:         "UnMinus",
	Pow:             "Pow",
	Abs:             "Abs",
	Sign:            "Sign",
	Sqrt:            "Sqrt",
	Exp:             "Exp",
	Log:             "Log",
	Sin:             "Sin",
	Cos:             "Cos",
	Tan:             "Tan",
	Sinh:            "Sinh",
	Cosh:            "Cosh",
	Tanh:            "Tanh",
	Asin:            "Asin",
	Acos:            "Acos",
	Atan:            "Atan",
	ComLt:           "ComLt",
	ComLe:           "ComLe",
	ComEq:           "ComEq",
	ComGe:           "ComGe",
	ComGt:           "ComGt",
	ComNe:           "ComNe",
	ArrayCreation:   "ArrayCreation",
	ArrayElement:    "ArrayElement",
	AtomicForward:   "AtomicForward",
	AtomicReverse:   "AtomicReverse",
	LoopStart:       "LoopStart",
	LoopEnd:         "LoopEnd",
	IndexDeclare:    "IndexDeclare",
	IndexAssign:     "IndexAssign",
	IndexOp:         "IndexOp",
	DependentRefRhs: "DependentRefRhs",
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "Unknown"
}

var codesByName map[string]Code

func init() {
	codesByName = make(map[string]Code, len(names))
	for c, n := range names {
		codesByName[n] = c
	}
}

// ParseCode looks up a Code by its String() name, the inverse of
// Code.String, used when reloading a serialized graph.
func ParseCode(s string) (Code, bool) {
	c, ok := codesByName[s]
	return c, ok
}

// unaryOps all take a single operand and produce a scalar.
var unaryOps = map[Code]bool{
	Assign: true, Alias: true, UnMinus: true,
	Abs: true, Sign: true, Sqrt: true, Exp: true, Log: true,
	Sin: true, Cos: true, Tan: true, Sinh: true, Cosh: true, Tanh: true,
	Asin: true, Acos: true, Atan: true,
}

var binaryOps = map[Code]bool{
	Add: true, Sub: true, Mul: true, Div: true, Pow: true,
}

var condOps = map[Code]bool{
	ComLt: true, ComLe: true, ComEq: true, ComGe: true, ComGt: true, ComNe: true,
}

// Arity reports the required argument count and info-slot count for code,
// or ok=false if code is not a recognized operation.
func Arity(c Code) (nargs, infoLen int, ok bool) {
	switch {
	case c == Inv:
		return 0, 0, true
	case unaryOps[c]:
		return 1, 0, true
	case binaryOps[c]:
		return 2, 0, true
	case condOps[c]:
		return 4, 0, true
	case c == ArrayCreation:
		return -1, 0, true // variable arity, all args must be scalars
	case c == ArrayElement:
		return 2, 1, true
	case c == AtomicForward, c == AtomicReverse:
		return 2, 3, true
	case c == LoopStart:
		return 1, 1, true // (indexDeclare), info=[iterationCount]
	case c == LoopEnd:
		return -1, -1, true // variable results, info=[assignOrAddFlag, positionPatternID...]
	case c == IndexDeclare:
		return 0, 0, true
	case c == IndexAssign:
		return 1, 1, true // (iterationIndexOp), info=[indexPatternID]
	case c == IndexOp:
		return 1, 0, true
	case c == DependentRefRhs:
		return 1, 1, true // info=[position]
	default:
		return 0, 0, false
	}
}

// IsConditional reports whether c is one of the Com* comparison ops.
func IsConditional(c Code) bool { return condOps[c] }

// IsUnaryMath reports whether c is a one-argument op: an identity
// forwarder (Assign, Alias), UnMinus, or a transcendental unary op.
func IsUnaryMath(c Code) bool { return unaryOps[c] }
