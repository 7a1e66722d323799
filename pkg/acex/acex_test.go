package acex

import (
	"errors"
	"math"
	"testing"
)

// countingAcex wraps a threshold effect function and counts evaluations of
// distinct indices via the memoizing base.
func countingAcex(n, threshold int) (*Base, *int) {
	calls := 0
	b := NewBase(n, func(i int) (bool, error) {
		calls++
		return i >= threshold, nil
	})
	return b, &calls
}

func TestLinearFwdExact(t *testing.T) {
	// eff(i) = (i >= 5), n = 10: breakpoint 4, exactly 6 evaluations.
	b, calls := countingAcex(10, 5)
	idx, err := LinearFwd.Analyze(b)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if idx != 4 {
		t.Errorf("Expected breakpoint 4, got %d", idx)
	}
	if *calls != 6 {
		t.Errorf("Expected exactly 6 evaluations, got %d", *calls)
	}
}

func TestBinarySearchBounded(t *testing.T) {
	// eff(i) = (i >= 37), n = 100: breakpoint 36, at most 9 evaluations.
	b, calls := countingAcex(100, 37)
	idx, err := BinarySearch.Analyze(b)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if idx != 36 {
		t.Errorf("Expected breakpoint 36, got %d", idx)
	}
	if *calls > 9 {
		t.Errorf("Expected at most 9 evaluations, got %d", *calls)
	}
}

func TestAnalyzersFindBreakpoint(t *testing.T) {
	analyzers := []Analyzer{LinearFwd, LinearBwd, BinarySearch}
	for _, an := range analyzers {
		for n := 1; n <= 24; n++ {
			for threshold := 1; threshold <= n; threshold++ {
				b, calls := countingAcex(n, threshold)
				idx, err := an.Analyze(b)
				if err != nil {
					t.Fatalf("%s: n=%d threshold=%d: %v", an.Name(), n, threshold, err)
				}
				if idx != threshold-1 {
					t.Errorf("%s: n=%d threshold=%d: got %d", an.Name(), n, threshold, idx)
				}

				// Contract check: eff(idx) != eff(idx+1).
				lo, _ := b.Effect(idx)
				hi, _ := b.Effect(idx + 1)
				if lo == hi {
					t.Errorf("%s: returned index %d is not a breakpoint", an.Name(), idx)
				}

				// Evaluation budgets: n+1 for linear, log2(n)+2 for binary.
				budget := n + 1
				if an.Name() == BinarySearch.Name() {
					budget = int(math.Ceil(math.Log2(float64(n)))) + 2
				}
				if *calls > budget {
					t.Errorf("%s: n=%d threshold=%d: %d evaluations exceed budget %d",
						an.Name(), n, threshold, *calls, budget)
				}
			}
		}
	}
}

func TestNotMonotone(t *testing.T) {
	b := NewBase(8, func(i int) (bool, error) { return false, nil })
	for _, an := range []Analyzer{LinearFwd, LinearBwd, BinarySearch} {
		if _, err := an.Analyze(b); !errors.Is(err, ErrNotMonotone) {
			t.Errorf("%s: expected ErrNotMonotone, got %v", an.Name(), err)
		}
	}
}

func TestBaseMemoization(t *testing.T) {
	calls := 0
	b := NewBase(4, func(i int) (bool, error) {
		calls++
		return i >= 2, nil
	})
	for round := 0; round < 3; round++ {
		for i := 0; i <= 4; i++ {
			if _, err := b.Effect(i); err != nil {
				t.Fatalf("Effect(%d) failed: %v", i, err)
			}
		}
	}
	if calls != 5 {
		t.Errorf("Expected 5 computations, got %d", calls)
	}
}

func TestBaseSeeding(t *testing.T) {
	b := NewBase(3, func(i int) (bool, error) {
		t.Fatalf("compute called for seeded index %d", i)
		return false, nil
	})
	b.Set(0, true)
	eff, err := b.Effect(0)
	if err != nil || !eff {
		t.Errorf("Seeded effect not returned: %v %v", eff, err)
	}
}

func TestBaseRange(t *testing.T) {
	b := NewBase(3, func(i int) (bool, error) { return true, nil })
	if _, err := b.Effect(4); err == nil {
		t.Error("Expected range error for index 4")
	}
	if _, err := b.Effect(-1); err == nil {
		t.Error("Expected range error for index -1")
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"linear-fwd", "linear-bwd", "binary-search"} {
		an, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", name, err)
		}
		if an.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, an.Name())
		}
	}
	if _, err := ByName("bogus"); err == nil {
		t.Error("Expected error for unknown analyzer")
	}
}
