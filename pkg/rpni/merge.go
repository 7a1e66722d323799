package rpni

import "sort"

// Merge is a staged red/blue fold. tryMerge computes the full set of state
// identifications and transition retargets without touching the PTA; Apply
// commits them. Between the two, the PTA is read-only, which is what makes
// concurrent merge evaluation safe.
type Merge struct {
	pta    *PTA
	qr, qb *ptaState
	staged map[*ptaState]*stagedState
}

type stagedState struct {
	property Label
	succ     []*ptaState
}

// NumIdentified returns the number of states the fold staged changes for.
// Merge deciders can use it as a greediness signal.
func (m *Merge) NumIdentified() int { return len(m.staged) }

func (m *Merge) stagedFor(s *ptaState) *stagedState {
	st, ok := m.staged[s]
	if !ok {
		st = &stagedState{property: s.property, succ: append([]*ptaState(nil), s.succ...)}
		m.staged[s] = st
	}
	return st
}

func (m *Merge) property(s *ptaState) Label {
	if st, ok := m.staged[s]; ok {
		return st.property
	}
	return s.property
}

func (m *Merge) succOf(s *ptaState, symIdx int) *ptaState {
	if st, ok := m.staged[s]; ok {
		return st.succ[symIdx]
	}
	return s.succ[symIdx]
}

// tryMerge attempts to merge the blue state into the red state. It returns
// nil if the fold runs into a property conflict.
func (p *PTA) tryMerge(qr, qb *ptaState) *Merge {
	m := &Merge{pta: p, qr: qr, qb: qb, staged: make(map[*ptaState]*stagedState)}

	// Redirect the blue state's incoming transition to the red target.
	parent := m.stagedFor(qb.parent)
	parent.succ[qb.parentSym] = qr

	if !m.fold(qr, qb) {
		return nil
	}
	return m
}

// fold identifies other with q and propagates: whenever both sides define
// a transition on the same symbol, the targets are identified too. The
// other side is always a state of the blue subtree and is read unstaged;
// all writes go to the q side.
func (m *Merge) fold(q, other *ptaState) bool {
	type pair struct{ q, o *ptaState }
	stack := []pair{{q, other}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.q == cur.o {
			continue
		}

		oProp := cur.o.property
		if oProp != LabelNone {
			qProp := m.property(cur.q)
			if qProp.conflicts(oProp) {
				return false
			}
			if qProp == LabelNone {
				m.stagedFor(cur.q).property = oProp
			}
		}

		for i := range cur.o.succ {
			oChild := cur.o.succ[i]
			if oChild == nil {
				continue
			}
			qChild := m.succOf(cur.q, i)
			if qChild == nil {
				m.stagedFor(cur.q).succ[i] = oChild
				continue
			}
			stack = append(stack, pair{qChild, oChild})
		}
	}
	return true
}

// Apply commits the staged fold. Newly reachable white successors of red
// states become blue and are offered to the worklist, in state-id order so
// deterministic runs reproduce.
func (m *Merge) Apply(offer func(*blueTransition)) {
	states := make([]*ptaState, 0, len(m.staged))
	for s := range m.staged {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].id < states[j].id })

	for _, s := range states {
		st := m.staged[s]
		s.property = st.property
		for i, c := range st.succ {
			old := s.succ[i]
			s.succ[i] = c
			// Keep parent pointers of re-attached subtree states
			// pointing at their new tree parent.
			if c != nil && c != old && c.color == colorWhite {
				c.parent = s
				c.parentSym = i
			}
		}
	}
	for _, s := range states {
		if s.color == colorRed {
			m.pta.makeBlue(s, offer)
		}
	}
}
