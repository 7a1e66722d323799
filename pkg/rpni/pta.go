// Package rpni implements the blue-fringe RPNI passive learning algorithm.
//
// A prefix-tree acceptor is built from labeled samples; the driver then
// greedily merges blue fringe states into the red core, promoting blue
// states for which no valid merge exists.
package rpni

import (
	"fmt"

	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/word"
)

// ErrConflictingSample is returned when two samples prescribe different
// labels for the same word.
var ErrConflictingSample = fmt.Errorf("conflicting sample labels")

// Label is the tri-state acceptance property of a PTA state. States on
// sample prefixes that are not samples themselves stay unlabeled.
type Label int8

// The possible state labels.
const (
	LabelNone Label = iota
	LabelReject
	LabelAccept
)

func labelFor(accept bool) Label {
	if accept {
		return LabelAccept
	}
	return LabelReject
}

// conflicts reports whether two labels are both set and disagree.
func (l Label) conflicts(o Label) bool {
	return l != LabelNone && o != LabelNone && l != o
}

type color int8

const (
	colorWhite color = iota
	colorBlue
	colorRed
)

type ptaState struct {
	id        int
	color     color
	property  Label
	parent    *ptaState
	parentSym int
	succ      []*ptaState
}

// accessSeq returns the symbol-index path from the root, walking parent
// pointers.
func (s *ptaState) accessSeq() []int {
	var rev []int
	for cur := s; cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.parentSym)
	}
	seq := make([]int, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		seq = append(seq, rev[i])
	}
	return seq
}

// Sample is a labeled input word.
type Sample struct {
	Word   word.Word
	Accept bool
}

// PTA is a prefix-tree acceptor with red/blue coloring.
type PTA struct {
	alphabet  *word.Alphabet
	root      *ptaState
	numStates int
	redStates []*ptaState
}

// NewPTA creates an empty PTA over the alphabet.
func NewPTA(alphabet *word.Alphabet) *PTA {
	p := &PTA{alphabet: alphabet}
	p.root = p.newState(nil, -1)
	return p
}

func (p *PTA) newState(parent *ptaState, parentSym int) *ptaState {
	s := &ptaState{
		id:        p.numStates,
		property:  LabelNone,
		parent:    parent,
		parentSym: parentSym,
		succ:      make([]*ptaState, p.alphabet.Size()),
	}
	p.numStates++
	return s
}

// AddSample inserts a labeled word, creating states along its prefix path.
// A label disagreeing with an earlier sample fails with
// ErrConflictingSample.
func (p *PTA) AddSample(s Sample) error {
	cur := p.root
	for i := 0; i < s.Word.Len(); i++ {
		idx, err := p.alphabet.Index(s.Word.Symbol(i))
		if err != nil {
			return err
		}
		next := cur.succ[idx]
		if next == nil {
			next = p.newState(cur, idx)
			cur.succ[idx] = next
		}
		cur = next
	}
	label := labelFor(s.Accept)
	if cur.property.conflicts(label) {
		return fmt.Errorf("%w: %s", ErrConflictingSample, s.Word)
	}
	cur.property = label
	return nil
}

// blueTransition identifies a blue state by its incoming transition from a
// red state. The target is resolved at processing time, since merges may
// have redirected it in the meantime.
type blueTransition struct {
	src    *ptaState
	symIdx int
}

func (t *blueTransition) target() *ptaState {
	return t.src.succ[t.symIdx]
}

// accessSeq of the blue target: the source's access path plus the symbol.
func (t *blueTransition) accessSeq() []int {
	return append(t.src.accessSeq(), t.symIdx)
}

// init colors the root red and offers its successors as blue.
func (p *PTA) init(offer func(*blueTransition)) {
	p.root.color = colorRed
	p.redStates = append(p.redStates, p.root)
	p.makeBlue(p.root, offer)
}

// makeBlue colors every white successor of a red state blue and offers the
// corresponding transitions.
func (p *PTA) makeBlue(red *ptaState, offer func(*blueTransition)) {
	for i, c := range red.succ {
		if c != nil && c.color == colorWhite {
			c.color = colorBlue
			offer(&blueTransition{src: red, symIdx: i})
		}
	}
}

// promote turns a blue state red and offers its successors as blue.
func (p *PTA) promote(qb *ptaState, offer func(*blueTransition)) {
	qb.color = colorRed
	p.redStates = append(p.redStates, qb)
	p.makeBlue(qb, offer)
}

// toDFA extracts the quotient automaton reachable from the root.
func (p *PTA) toDFA() *dfa.DFA {
	d := dfa.New(p.alphabet)
	index := make(map[*ptaState]int)
	var order []*ptaState

	visit := func(s *ptaState) int {
		if i, ok := index[s]; ok {
			return i
		}
		i := d.AddState(s.property == LabelAccept)
		index[s] = i
		order = append(order, s)
		return i
	}
	visit(p.root)
	d.SetInitial(0)
	for qi := 0; qi < len(order); qi++ {
		s := order[qi]
		from := index[s]
		for i, c := range s.succ {
			if c != nil {
				d.SetTransition(from, i, visit(c))
			}
		}
	}
	return d
}
