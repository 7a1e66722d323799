package ttt

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/ha1tch/learnkit/pkg/acex"
	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/oracle"
	"github.com/ha1tch/learnkit/pkg/word"
)

// aStar builds the DFA accepting a*.
func aStar() *dfa.DFA {
	d := dfa.New(word.MustAlphabet("a", "b"))
	ok := d.AddState(true)
	sink := d.AddState(false)
	d.SetInitial(ok)
	d.SetTransition(ok, 0, ok)
	d.SetTransition(ok, 1, sink)
	d.SetTransition(sink, 0, sink)
	d.SetTransition(sink, 1, sink)
	return d
}

// evenA builds the DFA accepting words with an even number of a's.
func evenA() *dfa.DFA {
	d := dfa.New(word.MustAlphabet("a", "b"))
	even := d.AddState(true)
	odd := d.AddState(false)
	d.SetInitial(even)
	d.SetTransition(even, 0, odd)
	d.SetTransition(even, 1, even)
	d.SetTransition(odd, 0, even)
	d.SetTransition(odd, 1, odd)
	return d
}

// containsABB builds the minimal four-state DFA accepting words containing
// the factor abb.
func containsABB() *dfa.DFA {
	d := dfa.New(word.MustAlphabet("a", "b"))
	q0 := d.AddState(false) // no progress
	q1 := d.AddState(false) // seen a
	q2 := d.AddState(false) // seen ab
	q3 := d.AddState(true)  // seen abb
	d.SetInitial(q0)
	d.SetTransition(q0, 0, q1)
	d.SetTransition(q0, 1, q0)
	d.SetTransition(q1, 0, q1)
	d.SetTransition(q1, 1, q2)
	d.SetTransition(q2, 0, q1)
	d.SetTransition(q2, 1, q3)
	d.SetTransition(q3, 0, q3)
	d.SetTransition(q3, 1, q3)
	return d
}

func learn(t *testing.T, target *dfa.DFA, opts Options) (*Learner, *dfa.DFA) {
	t.Helper()
	mq := oracle.NewSimulation(target)
	eq := oracle.NewSimEquivalence(target)
	l := New(target.Alphabet(), mq, opts)
	learned, err := l.Run(context.Background(), eq)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return l, learned
}

func TestLearnAStar(t *testing.T) {
	target := aStar()
	l, learned := learn(t, target, Options{})

	if learned.NumStates() != 2 {
		t.Fatalf("Expected 2 states, got %d", learned.NumStates())
	}
	if !learned.IsAccepting(learned.Initial()) {
		t.Error("Initial state should accept")
	}
	idxB, _ := target.Alphabet().Index("b")
	sink := learned.Step(learned.Initial(), idxB)
	if learned.IsAccepting(sink) {
		t.Error("b should lead to a rejecting sink")
	}
	idxA, _ := target.Alphabet().Index("a")
	if learned.Step(sink, idxA) != sink || learned.Step(sink, idxB) != sink {
		t.Error("Sink should loop on both symbols")
	}
	if !l.AllDiscriminatorsFinal() {
		t.Error("Temporary discriminators remain after learning")
	}
}

func TestLearnAStarBFSOracle(t *testing.T) {
	target := aStar()
	mq := oracle.NewSimulation(target)
	eq := oracle.NewBFSEquivalence(target, 6)
	l := New(target.Alphabet(), mq, Options{})
	learned, err := l.Run(context.Background(), eq)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if learned.NumStates() != 2 || !learned.Equivalent(target) {
		t.Errorf("Expected the 2-state a* automaton, got %d states", learned.NumStates())
	}
}

func TestLearnEvenAWithSeededCounterexample(t *testing.T) {
	target := evenA()
	mq := oracle.NewSimulation(target)
	l := New(target.Alphabet(), mq, Options{Analyzer: acex.BinarySearch})

	ctx := context.Background()
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First round: the counterexample (ε, "a", reject). Closing the initial
	// transitions may already have split off the odd state, in which case
	// the hypothesis agrees and no refinement is needed.
	if _, err := l.Refine(ctx, &oracle.Query{Suffix: word.New("a"), Output: false}); err != nil {
		t.Fatalf("Refine failed: %v", err)
	}

	// At most one further round may be needed.
	eq := oracle.NewSimEquivalence(target)
	rounds := 1
	for {
		ce, err := eq.FindCounterexample(l.DFA().Complete(), target.Alphabet())
		if err != nil {
			t.Fatalf("FindCounterexample failed: %v", err)
		}
		if ce == nil {
			break
		}
		rounds++
		if _, err := l.Refine(ctx, ce); err != nil {
			t.Fatalf("Refine failed: %v", err)
		}
	}

	if rounds > 2 {
		t.Errorf("Expected at most 2 counterexample rounds, needed %d", rounds)
	}
	if n := l.Hypothesis().NumStates(); n != 2 {
		t.Errorf("Expected 2 states, got %d", n)
	}
	if !l.DFA().Complete().Equivalent(target) {
		t.Error("Learned automaton differs from the target")
	}
}

func TestLearnContainsABB(t *testing.T) {
	target := containsABB()
	l, learned := learn(t, target, Options{})

	if learned.NumStates() != 4 {
		t.Fatalf("Expected the 4-state minimal automaton, got %d states", learned.NumStates())
	}
	if !learned.Equivalent(target) {
		t.Fatal("Learned automaton differs from the target")
	}

	// The final discrimination tree has 3 inner nodes whose discriminators
	// are suffixes of abb.
	var discriminators []string
	var collect func(v *TreeView)
	collect = func(v *TreeView) {
		if v.Leaf {
			return
		}
		discriminators = append(discriminators, v.Discriminator)
		for _, c := range v.Children {
			collect(c)
		}
	}
	collect(l.TreeSnapshot())

	if len(discriminators) != 3 {
		t.Fatalf("Expected 3 inner nodes, got %d: %v", len(discriminators), discriminators)
	}
	for _, d := range discriminators {
		compact := strings.ReplaceAll(d, " ", "")
		if compact == "ε" {
			compact = ""
		}
		if !strings.HasSuffix("abb", compact) {
			t.Errorf("Discriminator %q is not a suffix of abb", d)
		}
	}
}

func TestAnalyzersAgree(t *testing.T) {
	for _, an := range []acex.Analyzer{acex.LinearFwd, acex.LinearBwd, acex.BinarySearch} {
		target := containsABB()
		l, learned := learn(t, target, Options{Analyzer: an})
		if !learned.Equivalent(target) {
			t.Errorf("%s: learned automaton differs from target", an.Name())
		}
		if learned.NumStates() != 4 {
			t.Errorf("%s: expected 4 states, got %d", an.Name(), learned.NumStates())
		}
		if !l.AllDiscriminatorsFinal() {
			t.Errorf("%s: temporary discriminators remain", an.Name())
		}
	}
}

func TestLearnWithRandomWordOracle(t *testing.T) {
	// A sampling equivalence oracle with a generous budget still drives the
	// learner to the exact target.
	target := containsABB()
	mq := oracle.NewSimulation(target)
	eq := oracle.NewRandomWordEquivalence(target, 10, 2000, 13)
	l := New(target.Alphabet(), mq, Options{})
	learned, err := l.Run(context.Background(), eq)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !learned.Equivalent(target) {
		t.Error("Learned automaton differs from the target")
	}
	if !l.AllDiscriminatorsFinal() {
		t.Error("Temporary discriminators remain after learning")
	}
}

func TestFirstBlockOnlySplitter(t *testing.T) {
	target := containsABB()
	_, learned := learn(t, target, Options{FirstBlockOnly: true})
	if !learned.Equivalent(target) {
		t.Error("First-block splitter search learned a different language")
	}
}

// randomDFA generates a total random automaton.
func randomDFA(rng *rand.Rand, alphabet *word.Alphabet, states int) *dfa.DFA {
	d := dfa.New(alphabet)
	for i := 0; i < states; i++ {
		d.AddState(rng.Intn(2) == 0)
	}
	d.SetInitial(0)
	for s := 0; s < states; s++ {
		for i := 0; i < alphabet.Size(); i++ {
			d.SetTransition(s, i, rng.Intn(states))
		}
	}
	return d
}

func TestLearnRandomDFAs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabets := []*word.Alphabet{
		word.MustAlphabet("a", "b"),
		word.MustAlphabet("a", "b", "c"),
	}

	for trial := 0; trial < 60; trial++ {
		alphabet := alphabets[trial%len(alphabets)]
		states := 2 + rng.Intn(12)
		target := randomDFA(rng, alphabet, states)
		minimal := target.Minimize()

		l, learned := learn(t, target, Options{})

		if !learned.Equivalent(target) {
			t.Fatalf("trial %d: learned automaton differs from target", trial)
		}
		if learned.NumStates() != minimal.NumStates() {
			t.Fatalf("trial %d: learned %d states, minimal has %d",
				trial, learned.NumStates(), minimal.NumStates())
		}
		if !l.AllDiscriminatorsFinal() {
			t.Fatalf("trial %d: temporary discriminators remain", trial)
		}
		checkAccessSequences(t, l)
	}
}

// checkAccessSequences verifies that every state's access sequence is a
// shortest word reaching it in the learned automaton.
func checkAccessSequences(t *testing.T, l *Learner) {
	t.Helper()
	d := l.DFA().Complete()

	dist := make([]int, d.NumStates())
	for i := range dist {
		dist[i] = -1
	}
	queue := []int{d.Initial()}
	dist[d.Initial()] = 0
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for i := 0; i < d.Alphabet().Size(); i++ {
			to := d.Step(s, i)
			if to >= 0 && dist[to] < 0 {
				dist[to] = dist[s] + 1
				queue = append(queue, to)
			}
		}
	}

	for _, s := range l.Hypothesis().States() {
		if s.ID() >= len(dist) || dist[s.ID()] < 0 {
			continue
		}
		if got := s.AccessSequence().Len(); got != dist[s.ID()] {
			t.Errorf("State q%d has access sequence of length %d, shortest path is %d",
				s.ID(), got, dist[s.ID()])
		}
	}
}

func TestRefineIsIdempotentAfterConvergence(t *testing.T) {
	target := evenA()
	l, _ := learn(t, target, Options{})
	before := l.Hypothesis().NumStates()

	// A word the hypothesis already classifies correctly must not refine.
	refined, err := l.Refine(context.Background(), &oracle.Query{
		Suffix: word.New("a", "a"),
		Output: true,
	})
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if refined {
		t.Error("Refine on an agreeing word should be a no-op")
	}
	if l.Hypothesis().NumStates() != before {
		t.Error("No-op refine changed the hypothesis")
	}
}

func TestIllegalStateErrors(t *testing.T) {
	target := aStar()
	mq := oracle.NewSimulation(target)
	ctx := context.Background()

	l := New(target.Alphabet(), mq, Options{})
	if _, err := l.Refine(ctx, &oracle.Query{Suffix: word.New("b"), Output: false}); !errors.Is(err, ErrIllegalState) {
		t.Errorf("Refine before Start: expected ErrIllegalState, got %v", err)
	}
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := l.Start(ctx); !errors.Is(err, ErrIllegalState) {
		t.Errorf("Second Start: expected ErrIllegalState, got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	target := aStar()
	mq := oracle.NewSimulation(target)
	l := New(target.Alphabet(), mq, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTransformAccessSequence(t *testing.T) {
	target := evenA()
	l, _ := learn(t, target, Options{})

	// "aab" and "b" both reach the even state; the access sequence of the
	// state reached must be a shortest representative.
	as, err := l.TransformAccessSequence(word.New("a", "a", "b"))
	if err != nil {
		t.Fatalf("TransformAccessSequence failed: %v", err)
	}
	if as.Len() != 0 {
		t.Errorf("Expected the empty access sequence, got %v", as)
	}

	as, err = l.TransformAccessSequence(word.New("b", "a"))
	if err != nil {
		t.Fatalf("TransformAccessSequence failed: %v", err)
	}
	if !as.Equal(word.New("a")) {
		t.Errorf("Expected access sequence \"a\", got %v", as)
	}
}

func TestSiftIdempotence(t *testing.T) {
	target := containsABB()
	l, _ := learn(t, target, Options{})

	for _, s := range l.hypothesis.States() {
		n1, err := l.sift(l.root, s, true)
		if err != nil {
			t.Fatalf("sift failed: %v", err)
		}
		n2, err := l.sift(l.root, s, true)
		if err != nil {
			t.Fatalf("second sift failed: %v", err)
		}
		if n1 != n2 {
			t.Errorf("Sifting q%d twice reached different nodes", s.ID())
		}
		if n1 != s.dtLeaf {
			t.Errorf("Sifting q%d did not reach its own leaf", s.ID())
		}
	}
}

func TestOracleInconsistency(t *testing.T) {
	// An output inconsistency whose expected output matches the oracle has
	// agreeing abstract counterexample endpoints, which must surface as an
	// oracle inconsistency.
	target := evenA()
	l, _ := learn(t, target, Options{})

	init := l.hypothesis.Initial()
	out, err := l.computeHypothesisOutput(init, word.New("a"))
	if err != nil {
		t.Fatalf("computeHypothesisOutput failed: %v", err)
	}

	err = l.splitState(&outputInconsistency{src: init, suffix: word.New("a"), out: out})
	if !errors.Is(err, ErrOracleInconsistency) {
		t.Errorf("Expected ErrOracleInconsistency, got %v", err)
	}
}
