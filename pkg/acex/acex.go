// Package acex implements abstract counterexample analysis.
//
// An abstract counterexample is a monotone boolean effect function over an
// index range 0..n with differing endpoint values. An analyzer locates the
// unique breakpoint index i in [0..n) with eff(i) != eff(i+1).
package acex

import "fmt"

// ErrNotMonotone is returned when no breakpoint is found. BinarySearch
// returns it whenever the effect values at both endpoints agree. The linear
// scans do not compare the endpoints: they return it only when every value
// in [0..n] agrees, and otherwise return the first disagreement they reach.
var ErrNotMonotone = fmt.Errorf("abstract counterexample endpoints agree")

// Acex is an abstract counterexample. Effect may be expensive (it typically
// performs a membership query); implementations are expected to memoize, so
// analyzers never evaluate the same index twice.
type Acex interface {
	// Length returns n, the upper end of the index range [0..n].
	Length() int
	// Effect returns the effect value at index i, 0 <= i <= Length().
	Effect(i int) (bool, error)
}

// Analyzer locates the breakpoint of an abstract counterexample.
type Analyzer interface {
	// Name identifies the strategy.
	Name() string
	// Analyze returns i with eff(i) != eff(i+1).
	Analyze(a Acex) (int, error)
}

// The available analysis strategies.
var (
	LinearFwd    Analyzer = analyzer{"linear-fwd", analyzeLinearFwd}
	LinearBwd    Analyzer = analyzer{"linear-bwd", analyzeLinearBwd}
	BinarySearch Analyzer = analyzer{"binary-search", analyzeBinarySearch}
)

// ByName returns the analyzer with the given name.
func ByName(name string) (Analyzer, error) {
	switch name {
	case "linear-fwd":
		return LinearFwd, nil
	case "linear-bwd":
		return LinearBwd, nil
	case "binary-search":
		return BinarySearch, nil
	}
	return nil, fmt.Errorf("unknown analyzer %q", name)
}

type analyzer struct {
	name string
	fn   func(a Acex) (int, error)
}

func (an analyzer) Name() string { return an.name }

func (an analyzer) Analyze(a Acex) (int, error) {
	n := a.Length()
	if n < 1 {
		return 0, fmt.Errorf("abstract counterexample of length %d", n)
	}
	return an.fn(a)
}

func analyzeLinearFwd(a Acex) (int, error) {
	n := a.Length()
	prev, err := a.Effect(0)
	if err != nil {
		return 0, err
	}
	for i := 1; i <= n; i++ {
		cur, err := a.Effect(i)
		if err != nil {
			return 0, err
		}
		if cur != prev {
			return i - 1, nil
		}
		prev = cur
	}
	return 0, ErrNotMonotone
}

func analyzeLinearBwd(a Acex) (int, error) {
	n := a.Length()
	prev, err := a.Effect(n)
	if err != nil {
		return 0, err
	}
	for i := n - 1; i >= 0; i-- {
		cur, err := a.Effect(i)
		if err != nil {
			return 0, err
		}
		if cur != prev {
			return i, nil
		}
		prev = cur
	}
	return 0, ErrNotMonotone
}

// analyzeBinarySearch is the Rivest-Schapire strategy: maintain [lo, hi]
// with eff(lo) != eff(hi) and halve the interval.
func analyzeBinarySearch(a Acex) (int, error) {
	lo, hi := 0, a.Length()
	loEff, err := a.Effect(lo)
	if err != nil {
		return 0, err
	}
	hiEff, err := a.Effect(hi)
	if err != nil {
		return 0, err
	}
	if loEff == hiEff {
		return 0, ErrNotMonotone
	}
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		midEff, err := a.Effect(mid)
		if err != nil {
			return 0, err
		}
		if midEff == loEff {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Base is a memoizing helper for Acex implementations. Compute is called at
// most once per index; effects may also be seeded with Set before analysis.
type Base struct {
	n       int
	known   []bool
	effects []bool
	compute func(i int) (bool, error)
}

// NewBase creates a memoizing abstract counterexample over [0..n] with the
// given effect computation.
func NewBase(n int, compute func(i int) (bool, error)) *Base {
	return &Base{
		n:       n,
		known:   make([]bool, n+1),
		effects: make([]bool, n+1),
		compute: compute,
	}
}

// Length returns n.
func (b *Base) Length() int { return b.n }

// Set seeds the effect value at index i without calling the computation.
func (b *Base) Set(i int, effect bool) {
	b.known[i] = true
	b.effects[i] = effect
}

// Effect returns the memoized effect at index i.
func (b *Base) Effect(i int) (bool, error) {
	if i < 0 || i > b.n {
		return false, fmt.Errorf("effect index %d out of range [0..%d]", i, b.n)
	}
	if !b.known[i] {
		eff, err := b.compute(i)
		if err != nil {
			return false, err
		}
		b.known[i] = true
		b.effects[i] = eff
	}
	return b.effects[i], nil
}
