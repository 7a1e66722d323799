package rpni

import (
	"container/heap"
	"context"
	"sync"

	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/word"
)

// Order selects the processing order of blue states.
type Order int

// The available processing orders.
const (
	// OrderCanonical processes blue states by shortest access sequence,
	// ties broken lexicographically.
	OrderCanonical Order = iota
	// OrderFIFO processes blue states in discovery order.
	OrderFIFO
	// OrderLexMin processes blue states in purely lexicographic order of
	// their access sequences.
	OrderLexMin
)

// Options configures a blue-fringe run. The zero value is canonical order,
// sequential, deterministic.
type Options struct {
	Order Order
	// Parallel evaluates candidate merges for each blue state
	// concurrently across red states.
	Parallel bool
	// NonDeterministic permits any valid merge to win a parallel scan
	// instead of the lowest red index.
	NonDeterministic bool
	// DecideMerge may veto valid merges. It must be pure: with Parallel
	// it is called concurrently. Nil accepts every valid merge.
	DecideMerge func(*Merge) bool
}

// BlueFringe is the blue-fringe RPNI driver.
type BlueFringe struct {
	alphabet *word.Alphabet
	opts     Options
}

// New creates a driver over the given alphabet.
func New(alphabet *word.Alphabet, opts Options) *BlueFringe {
	return &BlueFringe{alphabet: alphabet, opts: opts}
}

// ComputeModel builds the PTA from the samples and folds it into a DFA.
func (bf *BlueFringe) ComputeModel(ctx context.Context, samples []Sample) (*dfa.DFA, error) {
	pta := NewPTA(bf.alphabet)
	for _, s := range samples {
		if err := pta.AddSample(s); err != nil {
			return nil, err
		}
	}

	worklist := bf.newWorklist()
	pta.init(worklist.push)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := worklist.pop()
		if ref == nil {
			break
		}
		qb := ref.target()
		if qb == nil || qb.color != colorBlue {
			continue
		}

		merge := bf.findMerge(pta, qb)
		if merge != nil {
			merge.Apply(worklist.push)
		} else {
			pta.promote(qb, worklist.push)
		}
	}

	return pta.toDFA(), nil
}

// findMerge scans the red states for a valid, accepted merge of qb. The
// sequential scan takes the first match; the parallel scan evaluates all
// candidates and reduces in red-state order, so deterministic runs stay
// reproducible.
func (bf *BlueFringe) findMerge(pta *PTA, qb *ptaState) *Merge {
	decide := bf.opts.DecideMerge
	if decide == nil {
		decide = func(*Merge) bool { return true }
	}

	if !bf.opts.Parallel {
		for _, qr := range pta.redStates {
			if m := pta.tryMerge(qr, qb); m != nil && decide(m) {
				return m
			}
		}
		return nil
	}

	if bf.opts.NonDeterministic {
		// Any valid merge wins; the first finisher short-circuits the rest.
		var once sync.Once
		var winner *Merge
		done := make(chan struct{})
		var wg sync.WaitGroup
		for _, qr := range pta.redStates {
			wg.Add(1)
			go func(qr *ptaState) {
				defer wg.Done()
				select {
				case <-done:
					return
				default:
				}
				if m := pta.tryMerge(qr, qb); m != nil && decide(m) {
					once.Do(func() {
						winner = m
						close(done)
					})
				}
			}(qr)
		}
		wg.Wait()
		return winner
	}

	results := make([]*Merge, len(pta.redStates))
	var wg sync.WaitGroup
	for i, qr := range pta.redStates {
		wg.Add(1)
		go func(i int, qr *ptaState) {
			defer wg.Done()
			if m := pta.tryMerge(qr, qb); m != nil && decide(m) {
				results[i] = m
			}
		}(i, qr)
	}
	wg.Wait()
	for _, m := range results {
		if m != nil {
			return m
		}
	}
	return nil
}

/*
 * Worklists.
 */

type worklist interface {
	push(*blueTransition)
	pop() *blueTransition
}

func (bf *BlueFringe) newWorklist() worklist {
	switch bf.opts.Order {
	case OrderFIFO:
		return &fifoWorklist{}
	case OrderLexMin:
		return &heapWorklist{less: lessLex}
	default:
		return &heapWorklist{less: lessCanonical}
	}
}

type fifoWorklist struct {
	queue []*blueTransition
}

func (w *fifoWorklist) push(t *blueTransition) {
	w.queue = append(w.queue, t)
}

func (w *fifoWorklist) pop() *blueTransition {
	if len(w.queue) == 0 {
		return nil
	}
	t := w.queue[0]
	w.queue = w.queue[1:]
	return t
}

// lessCanonical orders by access sequence length, then lexicographically.
func lessCanonical(a, b []int) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return lexBefore(a, b)
}

// lessLex orders purely lexicographically, shorter prefix first.
func lessLex(a, b []int) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func lexBefore(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

type heapEntry struct {
	trans *blueTransition
	seq   []int
	order int
}

type heapWorklist struct {
	entries []heapEntry
	less    func(a, b []int) bool
	counter int
}

func (w *heapWorklist) Len() int { return len(w.entries) }

func (w *heapWorklist) Less(i, j int) bool {
	a, b := w.entries[i], w.entries[j]
	if w.less(a.seq, b.seq) {
		return true
	}
	if w.less(b.seq, a.seq) {
		return false
	}
	return a.order < b.order
}

func (w *heapWorklist) Swap(i, j int) {
	w.entries[i], w.entries[j] = w.entries[j], w.entries[i]
}

func (w *heapWorklist) Push(x any) {
	w.entries = append(w.entries, x.(heapEntry))
}

func (w *heapWorklist) Pop() any {
	n := len(w.entries)
	e := w.entries[n-1]
	w.entries = w.entries[:n-1]
	return e
}

func (w *heapWorklist) push(t *blueTransition) {
	e := heapEntry{trans: t, seq: t.accessSeq(), order: w.counter}
	w.counter++
	heap.Push(w, e)
}

func (w *heapWorklist) pop() *blueTransition {
	if len(w.entries) == 0 {
		return nil
	}
	return heap.Pop(w).(heapEntry).trans
}
