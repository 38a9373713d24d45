package graph

import "testing"

func TestDetectIndexPatternLinear(t *testing.T) {
	samples := map[int]int{0: 10, 1: 12, 2: 14, 3: 16}
	p := DetectIndexPattern(samples)
	if p.Kind != LinearPattern {
		t.Fatalf("Kind = %v, want LinearPattern", p.Kind)
	}
	for it, want := range samples {
		got, ok := p.Evaluate(it)
		if !ok || got != want {
			t.Errorf("Evaluate(%d) = (%d, %v), want (%d, true)", it, got, ok, want)
		}
	}
}

func TestDetectIndexPatternSingleSample(t *testing.T) {
	p := DetectIndexPattern(map[int]int{5: 42})
	if p.Kind != LinearPattern {
		t.Fatalf("Kind = %v, want LinearPattern for a single sample", p.Kind)
	}
	got, ok := p.Evaluate(5)
	if !ok || got != 42 {
		t.Errorf("Evaluate(5) = (%d, %v), want (42, true)", got, ok)
	}
}

func TestDetectIndexPatternSectioned(t *testing.T) {
	// Two linear runs: 0..3 at slope 1, 4..7 at slope 2, each run too
	// short on its own to overrule the other, forcing a Sectioned fit.
	samples := map[int]int{
		0: 0, 1: 1, 2: 2, 3: 3,
		4: 100, 5: 102, 6: 104, 7: 106,
	}
	p := DetectIndexPattern(samples)
	if p.Kind != SectionedPattern {
		t.Fatalf("Kind = %v, want SectionedPattern", p.Kind)
	}
	for it, want := range samples {
		got, ok := p.Evaluate(it)
		if !ok || got != want {
			t.Errorf("Evaluate(%d) = (%d, %v), want (%d, true)", it, got, ok, want)
		}
	}
}

func TestDetectIndexPatternRandom1D(t *testing.T) {
	samples := map[int]int{0: 3, 1: 9, 2: 1}
	p := DetectIndexPattern(samples)
	if p.Kind != Random1DPattern {
		t.Fatalf("Kind = %v, want Random1DPattern", p.Kind)
	}
	if _, ok := p.Evaluate(7); ok {
		t.Error("Evaluate on an unpopulated iteration should report ok=false")
	}
	for it, want := range samples {
		got, ok := p.Evaluate(it)
		if !ok || got != want {
			t.Errorf("Evaluate(%d) = (%d, %v), want (%d, true)", it, got, ok, want)
		}
	}
}

func TestDetectIndexPatternEmpty(t *testing.T) {
	p := DetectIndexPattern(map[int]int{})
	if p.Kind != Random1DPattern || len(p.Values) != 0 {
		t.Errorf("DetectIndexPattern(empty) = %+v, want empty Random1D", p)
	}
}

func TestPlane2DEvaluateXZ(t *testing.T) {
	row := &IndexPattern{Kind: LinearPattern, Slope: 10, Offset: 0, Divisor: 1}
	col := &IndexPattern{Kind: LinearPattern, Slope: 1, Offset: 0, Divisor: 1}
	p := &IndexPattern{Kind: Plane2DPattern, X: row, Z: col}

	got, ok := p.EvaluateXZ(2, 3)
	if !ok || got != 23 {
		t.Errorf("EvaluateXZ(2, 3) = (%d, %v), want (23, true)", got, ok)
	}
}

func TestRandom2DEvaluateXZAlwaysFalse(t *testing.T) {
	p := &IndexPattern{Kind: Random2DPattern}
	if _, ok := p.EvaluateXZ(0, 0); ok {
		t.Error("Random2D has no detector in this module; EvaluateXZ must report ok=false")
	}
}
