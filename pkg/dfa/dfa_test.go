package dfa

import (
	"testing"

	"github.com/ha1tch/learnkit/pkg/word"
)

// evenA builds the two-state DFA accepting words with an even number of a's.
func evenA(t *testing.T) *DFA {
	t.Helper()
	d := New(word.MustAlphabet("a", "b"))
	even := d.AddState(true)
	odd := d.AddState(false)
	d.SetInitial(even)
	d.SetTransition(even, 0, odd)
	d.SetTransition(even, 1, even)
	d.SetTransition(odd, 0, even)
	d.SetTransition(odd, 1, odd)
	return d
}

func TestRun(t *testing.T) {
	d := evenA(t)
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"a", false},
		{"aa", true},
		{"ab", false},
		{"bab", false},
		{"baab", true},
	}
	for _, c := range cases {
		var syms []string
		for _, r := range c.input {
			syms = append(syms, string(r))
		}
		got, err := d.Run(word.New(syms...))
		if err != nil {
			t.Fatalf("Run(%q) failed: %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("Run(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestRunUnknownSymbol(t *testing.T) {
	d := evenA(t)
	if _, err := d.Run(word.New("a", "x")); err == nil {
		t.Error("Expected error for unknown symbol")
	}
}

func TestValidate(t *testing.T) {
	d := New(word.MustAlphabet("a"))
	if err := d.Validate(); err == nil {
		t.Error("Empty automaton should not validate")
	}
	d.AddState(false)
	if err := d.Validate(); err == nil {
		t.Error("Automaton without initial state should not validate")
	}
	d.SetInitial(0)
	if err := d.Validate(); err != nil {
		t.Errorf("Valid automaton rejected: %v", err)
	}
}

func TestComplete(t *testing.T) {
	d := New(word.MustAlphabet("a", "b"))
	s := d.AddState(true)
	d.SetInitial(s)
	d.SetTransition(s, 0, s) // 'b' undefined

	c := d.Complete()
	if c == d {
		t.Fatal("Partial automaton should be copied on Complete")
	}
	if c.NumStates() != 2 {
		t.Fatalf("Expected sink state, got %d states", c.NumStates())
	}
	sink := c.Step(s, 1)
	if sink < 0 || c.IsAccepting(sink) {
		t.Error("Sink should exist and reject")
	}
	if c.Step(sink, 0) != sink || c.Step(sink, 1) != sink {
		t.Error("Sink should loop on all symbols")
	}

	if c.Complete() != c {
		t.Error("Complete automaton should be returned unchanged")
	}
}

func TestMinimize(t *testing.T) {
	// Redundant four-state version of the even-a automaton.
	d := New(word.MustAlphabet("a", "b"))
	e0 := d.AddState(true)
	o0 := d.AddState(false)
	e1 := d.AddState(true)
	o1 := d.AddState(false)
	d.SetInitial(e0)
	d.SetTransition(e0, 0, o0)
	d.SetTransition(e0, 1, e1)
	d.SetTransition(o0, 0, e1)
	d.SetTransition(o0, 1, o1)
	d.SetTransition(e1, 0, o1)
	d.SetTransition(e1, 1, e0)
	d.SetTransition(o1, 0, e0)
	d.SetTransition(o1, 1, o0)

	m := d.Minimize()
	if m.NumStates() != 2 {
		t.Fatalf("Expected 2 states after minimization, got %d", m.NumStates())
	}
	if !m.Isomorphic(evenA(t)) {
		t.Error("Minimized automaton not isomorphic to the canonical one")
	}
}

func TestMinimizeDropsUnreachable(t *testing.T) {
	d := evenA(t)
	d.AddState(true) // unreachable
	m := d.Minimize()
	if m.NumStates() != 2 {
		t.Errorf("Expected unreachable state dropped, got %d states", m.NumStates())
	}
}

func TestIsomorphic(t *testing.T) {
	a := evenA(t)

	// Same machine with states added in the opposite order.
	b := New(word.MustAlphabet("a", "b"))
	odd := b.AddState(false)
	even := b.AddState(true)
	b.SetInitial(even)
	b.SetTransition(even, 0, odd)
	b.SetTransition(even, 1, even)
	b.SetTransition(odd, 0, even)
	b.SetTransition(odd, 1, odd)

	if !a.Isomorphic(b) {
		t.Error("Renamed automaton should be isomorphic")
	}

	b.SetTransition(odd, 1, even)
	if a.Isomorphic(b) {
		t.Error("Changed automaton should not be isomorphic")
	}
}

func TestEquivalent(t *testing.T) {
	a := evenA(t)

	// A non-minimal automaton for the same language.
	b := New(word.MustAlphabet("a", "b"))
	e0 := b.AddState(true)
	o0 := b.AddState(false)
	e1 := b.AddState(true)
	b.SetInitial(e0)
	b.SetTransition(e0, 0, o0)
	b.SetTransition(e0, 1, e1)
	b.SetTransition(o0, 0, e1)
	b.SetTransition(o0, 1, o0)
	b.SetTransition(e1, 0, o0)
	b.SetTransition(e1, 1, e0)

	if !a.Equivalent(b) {
		t.Error("Automata for the same language should be equivalent")
	}

	b.SetTransition(o0, 1, e0)
	if a.Equivalent(b) {
		t.Error("Automata for different languages should not be equivalent")
	}
}
