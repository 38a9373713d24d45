package op

import "testing"

func TestArityKnownCodes(t *testing.T) {
	cases := []struct {
		code          Code
		nargs, ninfo int
	}{
		{Inv, 0, 0},
		{Add, 2, 0},
		{UnMinus, 1, 0},
		{ComLt, 4, 0},
		{ArrayElement, 2, 1},
		{AtomicForward, 2, 3},
		{LoopStart, 1, 1},
		{IndexDeclare, 0, 0},
		{IndexAssign, 1, 1},
		{IndexOp, 1, 0},
		{DependentRefRhs, 1, 1},
	}
	for _, c := range cases {
		nargs, ninfo, ok := Arity(c.code)
		if !ok {
			t.Fatalf("Arity(%v): expected ok=true", c.code)
		}
		if nargs != c.nargs || ninfo != c.ninfo {
			t.Errorf("Arity(%v) = (%d, %d), want (%d, %d)", c.code, nargs, ninfo, c.nargs, c.ninfo)
		}
	}
}

func TestArityVariadic(t *testing.T) {
	nargs, _, ok := Arity(ArrayCreation)
	if !ok || nargs != -1 {
		t.Fatalf("Arity(ArrayCreation) = (%d, ok=%v), want (-1, true)", nargs, ok)
	}
	nargs, ninfo, ok := Arity(LoopEnd)
	if !ok || nargs != -1 || ninfo != -1 {
		t.Fatalf("Arity(LoopEnd) = (%d, %d, ok=%v), want (-1, -1, true)", nargs, ninfo, ok)
	}
}

func TestArityUnknownCode(t *testing.T) {
	if _, _, ok := Arity(Code(255)); ok {
		t.Fatal("Arity(255): expected ok=false for an unrecognized code")
	}
}

func TestCodeStringRoundTrip(t *testing.T) {
	for _, c := range []Code{Inv, Add, Mul, Pow, Cosh, ComEq, LoopStart, LoopEnd, IndexAssign, DependentRefRhs} {
		s := c.String()
		got, ok := ParseCode(s)
		if !ok {
			t.Fatalf("ParseCode(%q): expected ok=true", s)
		}
		if got != c {
			t.Errorf("ParseCode(%q) = %v, want %v", s, got, c)
		}
	}
}

func TestParseCodeUnknown(t *testing.T) {
	if _, ok := ParseCode("NotARealOp"); ok {
		t.Fatal("ParseCode(\"NotARealOp\"): expected ok=false")
	}
}

func TestIsConditionalAndUnaryMath(t *testing.T) {
	if !IsConditional(ComLt) || IsConditional(Add) {
		t.Error("IsConditional misclassified")
	}
	if !IsUnaryMath(Sin) || IsUnaryMath(Add) || IsUnaryMath(Inv) {
		t.Error("IsUnaryMath misclassified")
	}
}
