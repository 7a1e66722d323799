package dfa

// Minimize returns the Myhill-Nerode minimal DFA accepting the same
// language, computed with Hopcroft's partition refinement over the
// reachable, completed automaton.
func (d *DFA) Minimize() *DFA {
	c := d.Complete()
	k := c.alphabet.Size()

	// Restrict to states reachable from the initial state.
	reach := make([]int, 0, c.NumStates())
	index := make([]int, c.NumStates())
	for i := range index {
		index[i] = -1
	}
	queue := []int{c.initial}
	index[c.initial] = 0
	reach = append(reach, c.initial)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for i := 0; i < k; i++ {
			t := c.trans[s][i]
			if index[t] < 0 {
				index[t] = len(reach)
				reach = append(reach, t)
				queue = append(queue, t)
			}
		}
	}

	n := len(reach)
	trans := make([][]int, n)
	accepting := make([]bool, n)
	for i, s := range reach {
		accepting[i] = c.accepting[s]
		row := make([]int, k)
		for j := 0; j < k; j++ {
			row[j] = index[c.trans[s][j]]
		}
		trans[i] = row
	}

	// Inverse transition lists for the refinement loop.
	inv := make([][][]int, k)
	for j := 0; j < k; j++ {
		inv[j] = make([][]int, n)
	}
	for s := 0; s < n; s++ {
		for j := 0; j < k; j++ {
			t := trans[s][j]
			inv[j][t] = append(inv[j][t], s)
		}
	}

	// Initial partition: accepting vs non-accepting.
	block := make([]int, n)
	var blocks [][]int
	var acc, rej []int
	for s := 0; s < n; s++ {
		if accepting[s] {
			acc = append(acc, s)
		} else {
			rej = append(rej, s)
		}
	}
	addBlock := func(members []int) int {
		id := len(blocks)
		blocks = append(blocks, members)
		for _, s := range members {
			block[s] = id
		}
		return id
	}
	var worklist []int
	if len(acc) > 0 {
		worklist = append(worklist, addBlock(acc))
	}
	if len(rej) > 0 {
		worklist = append(worklist, addBlock(rej))
	}

	inWork := make(map[int]bool)
	for _, b := range worklist {
		inWork[b] = true
	}

	for len(worklist) > 0 {
		a := worklist[0]
		worklist = worklist[1:]
		inWork[a] = false
		splitterMembers := append([]int(nil), blocks[a]...)

		for j := 0; j < k; j++ {
			// X = states with a j-transition into the splitter.
			inX := make(map[int]bool)
			for _, t := range splitterMembers {
				for _, s := range inv[j][t] {
					inX[s] = true
				}
			}
			if len(inX) == 0 {
				continue
			}

			// Split every block intersecting X but not contained in it.
			touched := make(map[int]bool)
			for s := range inX {
				touched[block[s]] = true
			}
			for b := range touched {
				members := blocks[b]
				var in, out []int
				for _, s := range members {
					if inX[s] {
						in = append(in, s)
					} else {
						out = append(out, s)
					}
				}
				if len(in) == 0 || len(out) == 0 {
					continue
				}
				blocks[b] = in
				nb := addBlock(out)
				if inWork[b] {
					worklist = append(worklist, nb)
					inWork[nb] = true
				} else {
					// Queue the smaller half.
					small := nb
					if len(in) < len(out) {
						small = b
					}
					worklist = append(worklist, small)
					inWork[small] = true
				}
			}
		}
	}

	m := New(d.alphabet)
	for range blocks {
		m.AddState(false)
	}
	for s := 0; s < n; s++ {
		b := block[s]
		if accepting[s] {
			m.accepting[b] = true
		}
		for j := 0; j < k; j++ {
			m.SetTransition(b, j, block[trans[s][j]])
		}
	}
	m.SetInitial(block[index[c.initial]])
	return m.trim()
}

// trim drops states unreachable from the initial state.
func (d *DFA) trim() *DFA {
	k := d.alphabet.Size()
	index := make([]int, d.NumStates())
	for i := range index {
		index[i] = -1
	}
	order := []int{d.initial}
	index[d.initial] = 0
	for qi := 0; qi < len(order); qi++ {
		s := order[qi]
		for j := 0; j < k; j++ {
			t := d.trans[s][j]
			if t >= 0 && index[t] < 0 {
				index[t] = len(order)
				order = append(order, t)
			}
		}
	}
	if len(order) == d.NumStates() {
		return d
	}
	t := New(d.alphabet)
	for _, s := range order {
		t.AddState(d.accepting[s])
	}
	t.SetInitial(0)
	for i, s := range order {
		for j := 0; j < k; j++ {
			if to := d.trans[s][j]; to >= 0 {
				t.SetTransition(i, j, index[to])
			}
		}
	}
	return t
}

// Isomorphic reports whether two complete DFAs are identical up to state
// renaming. Both automata must be over the same alphabet.
func (d *DFA) Isomorphic(o *DFA) bool {
	if d.alphabet.Size() != o.alphabet.Size() {
		return false
	}
	a, b := d.Complete(), o.Complete()
	if a.NumStates() != b.NumStates() {
		return false
	}
	k := a.alphabet.Size()

	match := make([]int, a.NumStates())
	for i := range match {
		match[i] = -1
	}
	match[a.initial] = b.initial
	queue := []int{a.initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		t := match[s]
		if a.accepting[s] != b.accepting[t] {
			return false
		}
		for j := 0; j < k; j++ {
			sa, sb := a.trans[s][j], b.trans[t][j]
			if match[sa] < 0 {
				match[sa] = sb
				queue = append(queue, sa)
			} else if match[sa] != sb {
				return false
			}
		}
	}
	return true
}

// Equivalent reports whether two DFAs accept the same language, by
// comparing their minimal forms.
func (d *DFA) Equivalent(o *DFA) bool {
	return d.Minimize().Isomorphic(o.Minimize())
}
