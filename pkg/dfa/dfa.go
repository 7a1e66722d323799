// Package dfa provides the deterministic finite automaton model emitted by
// the learning algorithms.
package dfa

import (
	"fmt"

	"github.com/ha1tch/learnkit/pkg/word"
)

// DFA is a deterministic finite automaton over an indexed alphabet. States
// are dense integers 0..NumStates()-1; transitions are addressed by symbol
// index. A transition target of -1 means the transition is undefined (the
// automaton rejects by falling off).
type DFA struct {
	alphabet  *word.Alphabet
	initial   int
	accepting []bool
	trans     [][]int
}

// New creates an empty DFA over the given alphabet.
func New(alphabet *word.Alphabet) *DFA {
	return &DFA{
		alphabet: alphabet,
		initial:  -1,
	}
}

// Alphabet returns the input alphabet.
func (d *DFA) Alphabet() *word.Alphabet {
	return d.alphabet
}

// AddState adds a state and returns its id.
func (d *DFA) AddState(accepting bool) int {
	id := len(d.accepting)
	d.accepting = append(d.accepting, accepting)
	row := make([]int, d.alphabet.Size())
	for i := range row {
		row[i] = -1
	}
	d.trans = append(d.trans, row)
	return id
}

// NumStates returns the number of states.
func (d *DFA) NumStates() int {
	return len(d.accepting)
}

// SetInitial sets the initial state.
func (d *DFA) SetInitial(state int) {
	d.initial = state
}

// Initial returns the initial state, or -1 if unset.
func (d *DFA) Initial() int {
	return d.initial
}

// SetTransition sets the transition from a state on a symbol index.
func (d *DFA) SetTransition(from, symIdx, to int) {
	d.trans[from][symIdx] = to
}

// Step returns the successor of a state on a symbol index, or -1.
func (d *DFA) Step(state, symIdx int) int {
	if state < 0 {
		return -1
	}
	return d.trans[state][symIdx]
}

// IsAccepting reports whether the state is accepting.
func (d *DFA) IsAccepting(state int) bool {
	return state >= 0 && d.accepting[state]
}

// Validate checks that the DFA is well-formed: an initial state is set and
// all defined transitions stay within the state range.
func (d *DFA) Validate() error {
	if len(d.accepting) == 0 {
		return fmt.Errorf("automaton has no states")
	}
	if d.initial < 0 || d.initial >= len(d.accepting) {
		return fmt.Errorf("initial state %d out of range", d.initial)
	}
	for s, row := range d.trans {
		for i, to := range row {
			if to < -1 || to >= len(d.accepting) {
				return fmt.Errorf("transition %d --%s--> %d out of range", s, d.alphabet.Symbol(i), to)
			}
		}
	}
	return nil
}

// Run processes a word from the initial state and returns whether it is
// accepted. Symbols outside the alphabet yield an error.
func (d *DFA) Run(w word.Word) (bool, error) {
	state := d.initial
	for i := 0; i < w.Len(); i++ {
		idx, err := d.alphabet.Index(w.Symbol(i))
		if err != nil {
			return false, err
		}
		// Step keeps returning -1 once the run has fallen off, so the
		// remaining symbols are still checked against the alphabet.
		state = d.Step(state, idx)
	}
	return d.IsAccepting(state), nil
}

// Accepts is like Run for symbol-index sequences.
func (d *DFA) Accepts(indices []int) bool {
	state := d.initial
	for _, idx := range indices {
		state = d.Step(state, idx)
		if state < 0 {
			return false
		}
	}
	return d.IsAccepting(state)
}

// Complete returns an equivalent total DFA. If every transition is already
// defined the receiver is returned unchanged; otherwise a copy with a
// rejecting sink is created.
func (d *DFA) Complete() *DFA {
	total := true
	for _, row := range d.trans {
		for _, to := range row {
			if to < 0 {
				total = false
			}
		}
	}
	if total {
		return d
	}

	c := New(d.alphabet)
	for _, acc := range d.accepting {
		c.AddState(acc)
	}
	sink := c.AddState(false)
	c.SetInitial(d.initial)
	for s, row := range d.trans {
		for i, to := range row {
			if to < 0 {
				to = sink
			}
			c.SetTransition(s, i, to)
		}
	}
	for i := 0; i < d.alphabet.Size(); i++ {
		c.SetTransition(sink, i, sink)
	}
	return c
}
