package ttt

import (
	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/word"
)

// State is a hypothesis state. Its access sequence is the word spelled by
// the spanning-tree path from the initial state.
type State struct {
	id          int
	transitions []*Transition
	dtLeaf      *DTNode
	parent      *Transition
	accessSeq   word.Word
	accepting   bool
}

// ID returns the state id.
func (s *State) ID() int { return s.id }

// Accepting reports whether the state is accepting.
func (s *State) Accepting() bool { return s.accepting }

// AccessSequence returns the state's access sequence.
func (s *State) AccessSequence() word.Word { return s.accessSeq }

// Transition is an outgoing transition of a hypothesis state. It either is
// part of the spanning tree and has a definite target state, or it is a
// non-tree transition pointing at a discrimination tree node. Non-tree
// transitions live on exactly one intrusive list at a time: either the
// incoming list of their current DT node, or the learner's open list.
type Transition struct {
	source *State
	symbol string
	symIdx int

	treeTarget    *State
	nonTreeTarget *DTNode

	nextIncoming *Transition
	prevIncoming *Transition
	list         *incomingList
}

// IsTree reports whether the transition belongs to the spanning tree.
func (t *Transition) IsTree() bool { return t.treeTarget != nil }

// Source returns the source state.
func (t *Transition) Source() *State { return t.source }

// Symbol returns the input symbol.
func (t *Transition) Symbol() string { return t.symbol }

// AccessSequence returns the access sequence of the word reaching this
// transition's target: the source's access sequence plus the symbol.
func (t *Transition) AccessSequence() word.Word {
	return t.source.accessSeq.Append(t.symbol)
}

func (t *Transition) removeFromList() {
	if t.list == nil {
		return
	}
	if t.prevIncoming != nil {
		t.prevIncoming.nextIncoming = t.nextIncoming
	} else {
		t.list.head = t.nextIncoming
	}
	if t.nextIncoming != nil {
		t.nextIncoming.prevIncoming = t.prevIncoming
	}
	t.nextIncoming = nil
	t.prevIncoming = nil
	t.list = nil
}

// incomingList is an intrusive list of non-tree transitions. It backs both
// the per-node incoming lists and the learner's open-transitions list, so
// moving a transition between them is pointer surgery only.
type incomingList struct {
	head *Transition
}

func (l *incomingList) insert(t *Transition) {
	t.removeFromList()
	t.nextIncoming = l.head
	t.prevIncoming = nil
	if l.head != nil {
		l.head.prevIncoming = t
	}
	l.head = t
	t.list = l
}

// insertAll moves every element of other into l.
func (l *incomingList) insertAll(other *incomingList) {
	for other.head != nil {
		l.insert(other.head)
	}
}

func (l *incomingList) poll() *Transition {
	t := l.head
	if t != nil {
		t.removeFromList()
	}
	return t
}

func (l *incomingList) isEmpty() bool { return l.head == nil }

// choose returns any element without removing it.
func (l *incomingList) choose() *Transition { return l.head }

// Hypothesis is the mutable automaton maintained by the learner. Tree
// transitions form a spanning arborescence rooted at the initial state.
type Hypothesis struct {
	alphabet *word.Alphabet
	states   []*State
	initial  *State
}

// NewHypothesis creates an empty hypothesis over the alphabet.
func NewHypothesis(alphabet *word.Alphabet) *Hypothesis {
	return &Hypothesis{alphabet: alphabet}
}

// IsInitialized reports whether the initial state exists.
func (h *Hypothesis) IsInitialized() bool { return h.initial != nil }

// Initialize creates the initial state, with an empty access sequence and
// no parent transition.
func (h *Hypothesis) Initialize() *State {
	s := h.newState(nil, word.Epsilon)
	h.initial = s
	return s
}

// CreateState turns the given non-tree transition into a spanning-tree
// transition leading to a fresh state.
func (h *Hypothesis) CreateState(parent *Transition) *State {
	s := h.newState(parent, parent.AccessSequence())
	parent.removeFromList()
	parent.treeTarget = s
	parent.nonTreeTarget = nil
	return s
}

func (h *Hypothesis) newState(parent *Transition, accessSeq word.Word) *State {
	s := &State{
		id:          len(h.states),
		transitions: make([]*Transition, h.alphabet.Size()),
		parent:      parent,
		accessSeq:   accessSeq,
	}
	h.states = append(h.states, s)
	return s
}

// Initial returns the initial state.
func (h *Hypothesis) Initial() *State { return h.initial }

// States returns all states in creation order.
func (h *Hypothesis) States() []*State { return h.states }

// NumStates returns the number of states.
func (h *Hypothesis) NumStates() int { return len(h.states) }

// ToDFA exports the hypothesis as a DFA. All non-tree transitions must
// point at leaves with linked states, which holds at every counterexample
// boundary.
func (h *Hypothesis) ToDFA() *dfa.DFA {
	d := dfa.New(h.alphabet)
	for _, s := range h.states {
		d.AddState(s.accepting)
	}
	if h.initial != nil {
		d.SetInitial(h.initial.id)
	}
	for _, s := range h.states {
		for i, t := range s.transitions {
			if t == nil {
				continue
			}
			if tgt := transitionTarget(t); tgt != nil {
				d.SetTransition(s.id, i, tgt.id)
			}
		}
	}
	return d
}

// transitionTarget resolves a transition to a state without mutating the
// discrimination tree.
func transitionTarget(t *Transition) *State {
	if t.IsTree() {
		return t.treeTarget
	}
	return anyStateIn(t.nonTreeTarget)
}
