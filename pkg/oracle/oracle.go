// Package oracle defines the oracle contracts the learners depend on, and
// simulation oracles backed by a known target automaton.
package oracle

import (
	"math/rand"
	"sync"

	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/word"
)

// Membership answers membership queries. Implementations must be
// deterministic over a learning run and total over Σ*. They only need to be
// safe for concurrent use when driving a parallel RPNI run.
type Membership interface {
	AnswerQuery(prefix, suffix word.Word) (bool, error)
}

// Query is a labeled word, split into prefix and suffix. Equivalence oracles
// return counterexamples in this form.
type Query struct {
	Prefix word.Word
	Suffix word.Word
	Output bool
}

// Word returns the full word Prefix·Suffix.
func (q Query) Word() word.Word {
	return q.Prefix.Concat(q.Suffix)
}

// Automaton is the read-only view of a hypothesis that equivalence oracles
// operate on. *dfa.DFA satisfies it.
type Automaton interface {
	Initial() int
	Step(state, symIdx int) int
	IsAccepting(state int) bool
}

// Equivalence searches for a word on which the hypothesis disagrees with the
// target. A nil result means no counterexample was found.
type Equivalence interface {
	FindCounterexample(hyp Automaton, alphabet *word.Alphabet) (*Query, error)
}

// Simulation is a membership oracle backed by a target DFA.
type Simulation struct {
	target *dfa.DFA
}

// NewSimulation creates a membership oracle answering from the given DFA.
func NewSimulation(target *dfa.DFA) *Simulation {
	return &Simulation{target: target}
}

// AnswerQuery runs prefix·suffix through the target.
func (s *Simulation) AnswerQuery(prefix, suffix word.Word) (bool, error) {
	return s.target.Run(prefix.Concat(suffix))
}

// SimEquivalence finds counterexamples by a breadth-first search over the
// product of the target and the hypothesis, so it returns a shortest
// distinguishing word whenever one exists.
type SimEquivalence struct {
	target *dfa.DFA
}

// NewSimEquivalence creates an exact equivalence oracle for the target.
func NewSimEquivalence(target *dfa.DFA) *SimEquivalence {
	return &SimEquivalence{target: target}
}

type productNode struct {
	t, h   int
	parent int
	symIdx int
}

// FindCounterexample returns a shortest word the two automata disagree on,
// with an empty prefix, or nil if they are equivalent.
func (e *SimEquivalence) FindCounterexample(hyp Automaton, alphabet *word.Alphabet) (*Query, error) {
	target := e.target.Complete()
	k := alphabet.Size()

	seen := make(map[[2]int]bool)
	nodes := []productNode{{t: target.Initial(), h: hyp.Initial(), parent: -1}}
	seen[[2]int{target.Initial(), hyp.Initial()}] = true

	for qi := 0; qi < len(nodes); qi++ {
		n := nodes[qi]
		if target.IsAccepting(n.t) != hyp.IsAccepting(n.h) {
			// Reconstruct the word along the parent chain.
			var rev []string
			for i := qi; nodes[i].parent >= 0; i = nodes[i].parent {
				rev = append(rev, alphabet.Symbol(nodes[i].symIdx))
			}
			syms := make([]string, 0, len(rev))
			for i := len(rev) - 1; i >= 0; i-- {
				syms = append(syms, rev[i])
			}
			w := word.New(syms...)
			out, err := target.Run(w)
			if err != nil {
				return nil, err
			}
			return &Query{Suffix: w, Output: out}, nil
		}
		for j := 0; j < k; j++ {
			nt := target.Step(n.t, j)
			nh := hyp.Step(n.h, j)
			key := [2]int{nt, nh}
			if !seen[key] {
				seen[key] = true
				nodes = append(nodes, productNode{t: nt, h: nh, parent: qi, symIdx: j})
			}
		}
	}
	return nil, nil
}

// BFSEquivalence enumerates all words up to a depth bound in breadth-first
// order and returns the first disagreement.
type BFSEquivalence struct {
	target   *dfa.DFA
	maxDepth int
}

// NewBFSEquivalence creates a depth-bounded equivalence oracle.
func NewBFSEquivalence(target *dfa.DFA, maxDepth int) *BFSEquivalence {
	return &BFSEquivalence{target: target, maxDepth: maxDepth}
}

// FindCounterexample checks every word of length <= maxDepth.
func (e *BFSEquivalence) FindCounterexample(hyp Automaton, alphabet *word.Alphabet) (*Query, error) {
	k := alphabet.Size()
	type entry struct {
		tState, hState int
		w              []string
	}
	target := e.target.Complete()
	queue := []entry{{tState: target.Initial(), hState: hyp.Initial()}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if target.IsAccepting(cur.tState) != hyp.IsAccepting(cur.hState) {
			w := word.New(cur.w...)
			return &Query{Suffix: w, Output: target.IsAccepting(cur.tState)}, nil
		}
		if len(cur.w) == e.maxDepth {
			continue
		}
		for j := 0; j < k; j++ {
			next := entry{
				tState: target.Step(cur.tState, j),
				hState: hyp.Step(cur.hState, j),
			}
			next.w = append(append([]string(nil), cur.w...), alphabet.Symbol(j))
			queue = append(queue, next)
		}
	}
	return nil, nil
}

// RandomWordEquivalence tests equivalence by sampling random words up to a
// length bound and returning the first disagreement. Unlike the exhaustive
// oracles it may miss counterexamples, so a nil result only means none was
// found within the sample budget. A fixed seed makes runs reproducible.
type RandomWordEquivalence struct {
	target    *dfa.DFA
	maxLength int
	samples   int
	rng       *rand.Rand
}

// NewRandomWordEquivalence creates a sampling equivalence oracle that draws
// the given number of words per call, each of a uniform random length up to
// maxLength.
func NewRandomWordEquivalence(target *dfa.DFA, maxLength, samples int, seed int64) *RandomWordEquivalence {
	return &RandomWordEquivalence{
		target:    target,
		maxLength: maxLength,
		samples:   samples,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// FindCounterexample samples words and returns the first one the automata
// disagree on, or nil if the sample budget is exhausted.
func (e *RandomWordEquivalence) FindCounterexample(hyp Automaton, alphabet *word.Alphabet) (*Query, error) {
	target := e.target.Complete()
	k := alphabet.Size()

	for i := 0; i < e.samples; i++ {
		length := e.rng.Intn(e.maxLength + 1)
		syms := make([]string, length)
		tState, hState := target.Initial(), hyp.Initial()
		for j := 0; j < length; j++ {
			idx := e.rng.Intn(k)
			syms[j] = alphabet.Symbol(idx)
			tState = target.Step(tState, idx)
			hState = hyp.Step(hState, idx)
		}
		if target.IsAccepting(tState) != hyp.IsAccepting(hState) {
			return &Query{Suffix: word.New(syms...), Output: target.IsAccepting(tState)}, nil
		}
	}
	return nil, nil
}

// Counting wraps a membership oracle and counts queries. Safe for
// concurrent use if the wrapped oracle is.
type Counting struct {
	mu      sync.Mutex
	queries int
	next    Membership
}

// NewCounting wraps the given oracle.
func NewCounting(next Membership) *Counting {
	return &Counting{next: next}
}

// AnswerQuery delegates to the wrapped oracle.
func (c *Counting) AnswerQuery(prefix, suffix word.Word) (bool, error) {
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()
	return c.next.AnswerQuery(prefix, suffix)
}

// Queries returns the number of queries answered so far.
func (c *Counting) Queries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}
