// Package ttt implements the TTT active learning algorithm for DFAs.
//
// The learner maintains a hypothesis automaton whose spanning-tree
// transitions spell shortest access sequences, and a discrimination tree
// whose inner nodes carry distinguishing suffixes. Counterexamples are
// decomposed with an abstract counterexample analyzer; the temporary
// discriminators this introduces are finalized block by block.
package ttt

import (
	"context"
	"fmt"

	"github.com/ha1tch/learnkit/pkg/acex"
	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/oracle"
	"github.com/ha1tch/learnkit/pkg/word"
)

var (
	// ErrIllegalState is returned when Start is called twice, or Refine
	// before Start.
	ErrIllegalState = fmt.Errorf("learner in illegal state")

	// ErrOracleInconsistency is returned when two membership queries
	// contradict each other during counterexample analysis.
	ErrOracleInconsistency = fmt.Errorf("membership oracle answered inconsistently")
)

// Options configures a learner. The zero value selects binary-search
// counterexample analysis and the global splitter scan.
type Options struct {
	// Analyzer locates counterexample breakpoints. Defaults to
	// acex.BinarySearch.
	Analyzer acex.Analyzer
	// FirstBlockOnly stops the splitter search at the first block that
	// yields one, instead of scanning all blocks for the shortest
	// discriminator.
	FirstBlockOnly bool
}

// Learner is a TTT learner instance. It is not safe for concurrent use.
type Learner struct {
	alphabet *word.Alphabet
	oracle   oracle.Membership
	analyzer acex.Analyzer

	firstBlockOnly bool

	hypothesis *Hypothesis
	root       *DTNode
	open       incomingList
	blocks     blockList
	started    bool
}

// New creates a learner for the given alphabet and membership oracle.
func New(alphabet *word.Alphabet, mq oracle.Membership, opts Options) *Learner {
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = acex.BinarySearch
	}
	root := &DTNode{inner: true, discriminator: word.Epsilon}
	return &Learner{
		alphabet:       alphabet,
		oracle:         mq,
		analyzer:       analyzer,
		firstBlockOnly: opts.FirstBlockOnly,
		hypothesis:     NewHypothesis(alphabet),
		root:           root,
	}
}

// Alphabet returns the input alphabet.
func (l *Learner) Alphabet() *word.Alphabet { return l.alphabet }

// Hypothesis returns the learner's hypothesis automaton.
func (l *Learner) Hypothesis() *Hypothesis { return l.hypothesis }

// DFA exports the current hypothesis.
func (l *Learner) DFA() *dfa.DFA { return l.hypothesis.ToDFA() }

// Start creates the initial state and closes its transitions. Calling it a
// second time fails with ErrIllegalState.
func (l *Learner) Start(ctx context.Context) error {
	if l.started {
		return fmt.Errorf("%w: Start called twice", ErrIllegalState)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.started = true

	init := l.hypothesis.Initialize()
	node, err := l.sift(l.root, init, false)
	if err != nil {
		return err
	}
	link(node, init)
	l.initializeState(init)
	return l.closeTransitions()
}

// Refine processes a counterexample: it refines the hypothesis until it
// agrees with the counterexample's output. Returns whether any refinement
// happened.
func (l *Learner) Refine(ctx context.Context, ce *oracle.Query) (bool, error) {
	if !l.started {
		return false, fmt.Errorf("%w: Refine before Start", ErrIllegalState)
	}
	refined := false
	for {
		if err := ctx.Err(); err != nil {
			return refined, err
		}
		ok, err := l.refineOnce(ctx, ce)
		if err != nil {
			return refined, err
		}
		if !ok {
			return refined, nil
		}
		refined = true
	}
}

// Run drives the full learning loop: Start, then alternate equivalence
// queries and refinement until no counterexample remains. Returns the
// learned DFA.
func (l *Learner) Run(ctx context.Context, eq oracle.Equivalence) (*dfa.DFA, error) {
	if err := l.Start(ctx); err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hyp := l.DFA().Complete()
		ce, err := eq.FindCounterexample(hyp, l.alphabet)
		if err != nil {
			return nil, err
		}
		if ce == nil {
			return hyp, nil
		}
		if _, err := l.Refine(ctx, ce); err != nil {
			return nil, err
		}
	}
}

// TransformAccessSequence returns the hypothesis access sequence of the
// state reached by the given word.
func (l *Learner) TransformAccessSequence(w word.Word) (word.Word, error) {
	s, err := l.anyState(w)
	if err != nil {
		return word.Epsilon, err
	}
	return s.accessSeq, nil
}

// refineOnce performs a single refinement. It reports false when the
// hypothesis already agrees with the counterexample.
func (l *Learner) refineOnce(ctx context.Context, ce *oracle.Query) (bool, error) {
	state, err := l.anyState(ce.Prefix)
	if err != nil {
		return false, err
	}
	out, err := l.computeHypothesisOutput(state, ce.Suffix)
	if err != nil {
		return false, err
	}
	if out == ce.Output {
		return false, nil
	}

	outIncons := &outputInconsistency{src: state, suffix: ce.Suffix, out: ce.Output}
	for outIncons != nil {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if err := l.splitState(outIncons); err != nil {
			return false, err
		}
		if err := l.closeTransitions(); err != nil {
			return false, err
		}
		for {
			if err := ctx.Err(); err != nil {
				return true, err
			}
			finalized, err := l.finalizeAny()
			if err != nil {
				return false, err
			}
			if !finalized {
				break
			}
			if err := l.closeTransitions(); err != nil {
				return false, err
			}
		}
		outIncons, err = l.findOutputInconsistency()
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

// AllDiscriminatorsFinal reports whether no temporary discriminator
// remains. This holds at every counterexample boundary.
func (l *Learner) AllDiscriminatorsFinal() bool {
	return l.root.allNodesFinal() && l.blocks.isEmpty()
}

// outputInconsistency is a state and suffix on which the hypothesis output
// differs from the oracle's.
type outputInconsistency struct {
	src    *State
	suffix word.Word
	out    bool
}

/*
 * Queries and sifting.
 */

func (l *Learner) query(prefix, suffix word.Word) (bool, error) {
	return l.oracle.AnswerQuery(prefix, suffix)
}

// accessProvider is anything with an access sequence; states and
// transitions both qualify.
type accessProvider interface {
	AccessSequence() word.Word
}

// sift descends the discrimination tree from the start node, following the
// query outcome on access-sequence·discriminator at each inner node.
// Missing children are created as fresh empty leaves. A soft sift (hard ==
// false) stops at temporary nodes; a hard sift stops only at leaves.
func (l *Learner) sift(node *DTNode, asp accessProvider, hard bool) (*DTNode, error) {
	for node.IsInner() && (hard || !node.temp) {
		out, err := l.query(asp.AccessSequence(), node.discriminator)
		if err != nil {
			return nil, err
		}
		child := node.child(out)
		if child == nil {
			child = newLeaf(node, out)
			node.setChild(out, child)
		}
		node = child
	}
	return node, nil
}

/*
 * State and transition bookkeeping.
 */

// initializeState creates the state's outgoing transitions, all pointing at
// the tree root, and puts them on the open list.
func (l *Learner) initializeState(s *State) {
	for i := 0; i < l.alphabet.Size(); i++ {
		t := &Transition{source: s, symbol: l.alphabet.Symbol(i), symIdx: i}
		t.nonTreeTarget = l.root
		s.transitions[i] = t
		l.open.insert(t)
	}
}

// makeTree promotes a non-tree transition into the spanning tree, linking
// its leaf to a fresh state and initializing that state.
func (l *Learner) makeTree(t *Transition) *State {
	node := t.nonTreeTarget
	s := l.hypothesis.CreateState(t)
	link(node, s)
	l.initializeState(s)
	return s
}

// updateDTTarget sifts a non-tree transition further down the tree and
// relinks it into its new node's incoming list.
func (l *Learner) updateDTTarget(t *Transition, hard bool) (*DTNode, error) {
	if t.IsTree() {
		return t.treeTarget.dtLeaf, nil
	}
	node, err := l.sift(t.nonTreeTarget, t, hard)
	if err != nil {
		return nil, err
	}
	t.nonTreeTarget = node
	node.incoming.insert(t)
	return node, nil
}

// closeTransitions drains the open list. Whenever draining leaves leaves
// without states, the transition with the shortest access sequence is
// promoted first, which keeps state names equal to shortest access
// sequences.
func (l *Learner) closeTransitions() error {
	var newStateNodes []*DTNode
	for {
		for t := l.open.poll(); t != nil; t = l.open.poll() {
			node, err := l.closeTransition(t)
			if err != nil {
				return err
			}
			if node != nil {
				newStateNodes = append(newStateNodes, node)
			}
		}
		if len(newStateNodes) > 0 {
			newStateNodes = l.addNewState(newStateNodes)
		}
		if l.open.isEmpty() && len(newStateNodes) == 0 {
			return nil
		}
	}
}

// closeTransition soft-sifts a single transition. It returns the target
// node if it is a fresh leaf whose only incoming transition is t.
func (l *Learner) closeTransition(t *Transition) (*DTNode, error) {
	if t.IsTree() {
		return nil, nil
	}
	node, err := l.updateDTTarget(t, false)
	if err != nil {
		return nil, err
	}
	if node.IsLeaf() && node.state == nil && t.nextIncoming == nil {
		return node, nil
	}
	return nil, nil
}

// addNewState promotes the transition with the shortest access sequence
// among the candidate leaves and returns the remaining candidates.
func (l *Learner) addNewState(nodes []*DTNode) []*DTNode {
	minIdx := -1
	var minTrans *Transition
	minLen := int(^uint(0) >> 1)
	for i, node := range nodes {
		for t := node.incoming.head; t != nil; t = t.nextIncoming {
			if n := t.AccessSequence().Len(); n < minLen {
				minIdx = i
				minTrans = t
				minLen = n
			}
		}
	}
	if minTrans == nil {
		return nil
	}
	nodes[minIdx] = nodes[len(nodes)-1]
	nodes = nodes[:len(nodes)-1]
	l.makeTree(minTrans)
	return nodes
}

/*
 * Hypothesis navigation.
 */

// anySuccessor returns some successor of the state on the symbol index,
// without mutating the tree.
func anySuccessor(s *State, symIdx int) *State {
	t := s.transitions[symIdx]
	if t.IsTree() {
		return t.treeTarget
	}
	return anyStateIn(t.nonTreeTarget)
}

// anyState returns some state reached by the word from the initial state.
func (l *Learner) anyState(w word.Word) (*State, error) {
	cur := l.hypothesis.Initial()
	for i := 0; i < w.Len(); i++ {
		idx, err := l.alphabet.Index(w.Symbol(i))
		if err != nil {
			return nil, err
		}
		cur = anySuccessor(cur, idx)
	}
	return cur, nil
}

// nondetSuccessors returns every state the set may reach on the symbol: the
// tree target for tree transitions, all subtree states for non-tree ones.
func nondetSuccessors(states map[*State]struct{}, symIdx int) map[*State]struct{} {
	next := make(map[*State]struct{})
	for s := range states {
		t := s.transitions[symIdx]
		if t.IsTree() {
			next[t.treeTarget] = struct{}{}
			continue
		}
		for _, tgt := range t.nonTreeTarget.subtreeStates(nil) {
			next[tgt] = struct{}{}
		}
	}
	return next
}

// deterministicState walks the word through possibly ambiguous non-tree
// transitions as long as the reachable set stays a singleton; from the last
// singleton on, successors are forced by hard sifting.
func (l *Learner) deterministicState(start *State, w word.Word) (*State, error) {
	lastSingleton := start
	lastSingletonIdx := 0

	states := map[*State]struct{}{start: {}}
	for i := 0; i < w.Len(); i++ {
		idx, err := l.alphabet.Index(w.Symbol(i))
		if err != nil {
			return nil, err
		}
		states = nondetSuccessors(states, idx)
		if len(states) == 1 {
			for s := range states {
				lastSingleton = s
			}
			lastSingletonIdx = i + 1
		}
	}
	if lastSingletonIdx == w.Len() {
		return lastSingleton, nil
	}

	cur := lastSingleton
	for i := lastSingletonIdx; i < w.Len(); i++ {
		idx, err := l.alphabet.Index(w.Symbol(i))
		if err != nil {
			return nil, err
		}
		cur, err = l.requireSuccessor(cur.transitions[idx])
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// requireSuccessor forces a transition to resolve to a definite state,
// materializing a new state if the hard sift ends at an unlinked leaf.
func (l *Learner) requireSuccessor(t *Transition) (*State, error) {
	if t.IsTree() {
		return t.treeTarget, nil
	}
	node, err := l.updateDTTarget(t, true)
	if err != nil {
		return nil, err
	}
	if node.state == nil {
		l.makeTree(t)
		if err := l.closeTransitions(); err != nil {
			return nil, err
		}
	}
	return node.state, nil
}

// computeHypothesisOutput returns the hypothesis's output for the suffix
// read from the given state, realizing successor states on demand.
func (l *Learner) computeHypothesisOutput(s *State, suffix word.Word) (bool, error) {
	end, err := l.deterministicState(s, suffix)
	if err != nil {
		return false, err
	}
	return end.accepting, nil
}

/*
 * Counterexample decomposition.
 */

// splitState analyzes an output inconsistency, locates the breakpoint with
// the configured analyzer, and splits the state that the breakpoint symbol's
// transition leads to with a temporary discriminator.
func (l *Learner) splitState(oi *outputInconsistency) error {
	suffix := oi.suffix
	ax := l.deriveAcex(oi)
	breakpoint, err := l.analyzer.Analyze(ax)
	if err != nil {
		if err == acex.ErrNotMonotone {
			return fmt.Errorf("%w: %v", ErrOracleInconsistency, err)
		}
		return err
	}

	pred, err := l.deterministicState(oi.src, suffix.Prefix(breakpoint))
	if err != nil {
		return err
	}
	idx, err := l.alphabet.Index(suffix.Symbol(breakpoint))
	if err != nil {
		return err
	}
	splitSuffix := suffix.Suffix(breakpoint + 1)
	t := pred.transitions[idx]

	oldOut, err := ax.Effect(breakpoint + 1)
	if err != nil {
		return err
	}
	newOut, err := ax.Effect(breakpoint)
	if err != nil {
		return err
	}
	return l.splitTransitionTarget(t, splitSuffix, oldOut, newOut)
}

// deriveAcex builds the abstract counterexample for an output
// inconsistency: eff(i) is the oracle's answer on the access sequence of
// the state reached by the length-i prefix, concatenated with the remaining
// suffix. eff(0) is seeded with the expected output.
func (l *Learner) deriveAcex(oi *outputInconsistency) *acex.Base {
	suffix := oi.suffix
	base := acex.NewBase(suffix.Len(), func(i int) (bool, error) {
		s, err := l.deterministicState(oi.src, suffix.Prefix(i))
		if err != nil {
			return false, err
		}
		return l.query(s.accessSeq, suffix.Suffix(i))
	})
	base.Set(0, oi.out)
	return base
}

// splitTransitionTarget splits the state the transition leads to, using a
// temporary discriminator. The transition becomes a spanning-tree
// transition to the new state; the former leaf becomes a temporary inner
// node over the old and the new state.
func (l *Learner) splitTransitionTarget(t *Transition, tempDiscriminator word.Word, oldOut, newOut bool) error {
	if t.IsTree() {
		return fmt.Errorf("%w: split on a tree transition", ErrOracleInconsistency)
	}
	node := t.nonTreeTarget
	oldState := node.state
	if !node.IsLeaf() || oldState == nil {
		return fmt.Errorf("%w: split target is not a linked leaf", ErrOracleInconsistency)
	}

	newState := l.makeTree(t)

	oldChild, newChild := node.split(tempDiscriminator, oldOut, newOut)
	node.temp = true
	link(oldChild, oldState)
	link(newChild, newState)

	if node.parent == nil || !node.parent.temp {
		l.blocks.insert(node)
	}
	return nil
}

/*
 * Output-inconsistency search.
 */

// findOutputInconsistency scans every state's discrimination tree ancestors
// for a discriminator on which the hypothesis output disagrees with the
// recorded edge label, preferring the shortest discriminator.
func (l *Learner) findOutputInconsistency() (*outputInconsistency, error) {
	var best *outputInconsistency
	for _, s := range l.hypothesis.States() {
		node := s.dtLeaf
		for !node.IsRoot() {
			expected := node.parentOut
			node = node.parent
			suffix := node.discriminator
			if best != nil && suffix.Len() >= best.suffix.Len() {
				continue
			}
			hypOut, err := l.computeHypothesisOutput(s, suffix)
			if err != nil {
				return nil, err
			}
			if hypOut != expected {
				best = &outputInconsistency{src: s, suffix: suffix, out: expected}
			}
		}
	}
	return best, nil
}
