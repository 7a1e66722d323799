package ttt

import "github.com/ha1tch/learnkit/pkg/word"

// DTNode is a node of the discrimination tree. Inner nodes carry a
// discriminator and up to two children, keyed by the boolean query outcome;
// leaves are linked to at most one hypothesis state.
type DTNode struct {
	parent    *DTNode
	parentOut bool
	depth     int

	inner         bool
	discriminator word.Word
	childFalse    *DTNode
	childTrue     *DTNode

	state *State
	temp  bool

	incoming  incomingList
	splitData *splitData

	nextBlock *DTNode
	prevBlock *DTNode
	onBlocks  bool
}

func newLeaf(parent *DTNode, parentOut bool) *DTNode {
	n := &DTNode{parent: parent, parentOut: parentOut}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	return n
}

// IsLeaf reports whether the node is a leaf.
func (n *DTNode) IsLeaf() bool { return !n.inner }

// IsInner reports whether the node is an inner node.
func (n *DTNode) IsInner() bool { return n.inner }

// IsRoot reports whether the node is the tree root.
func (n *DTNode) IsRoot() bool { return n.parent == nil }

// IsTemp reports whether the node carries a temporary discriminator.
func (n *DTNode) IsTemp() bool { return n.temp }

// Discriminator returns the node's discriminator.
func (n *DTNode) Discriminator() word.Word { return n.discriminator }

// IsBlockRoot reports whether the node is the root of a block.
func (n *DTNode) IsBlockRoot() bool { return n.onBlocks }

// State returns the linked hypothesis state of a leaf, or nil.
func (n *DTNode) State() *State { return n.state }

func (n *DTNode) child(out bool) *DTNode {
	if out {
		return n.childTrue
	}
	return n.childFalse
}

func (n *DTNode) setChild(out bool, c *DTNode) {
	c.parent = n
	c.parentOut = out
	c.depth = n.depth + 1
	if out {
		n.childTrue = c
	} else {
		n.childFalse = c
	}
}

// children returns the existing children, in false/true order.
func (n *DTNode) children() []*DTNode {
	var cs []*DTNode
	if n.childFalse != nil {
		cs = append(cs, n.childFalse)
	}
	if n.childTrue != nil {
		cs = append(cs, n.childTrue)
	}
	return cs
}

// split converts a leaf into an inner node with the given discriminator and
// two fresh leaves. The former state link is cleared; the temp flag is left
// unchanged, and the caller marks the node temporary and relinks both
// children.
func (n *DTNode) split(discriminator word.Word, oldOut, newOut bool) (oldChild, newChild *DTNode) {
	n.inner = true
	n.discriminator = discriminator
	n.state = nil
	oldChild = newLeaf(n, oldOut)
	newChild = newLeaf(n, newOut)
	n.setChild(oldOut, oldChild)
	n.setChild(newOut, newChild)
	return oldChild, newChild
}

// replaceChildren installs the extracted subtrees as the node's children.
func (n *DTNode) replaceChildren(byLabel map[bool]*DTNode) {
	n.childFalse = nil
	n.childTrue = nil
	for label, c := range byLabel {
		n.setChild(label, c)
	}
}

// updateIncoming repoints every incoming transition at this node. Used after
// transitions were spliced over from another node during extraction.
func (n *DTNode) updateIncoming() {
	for t := n.incoming.head; t != nil; t = t.nextIncoming {
		t.nonTreeTarget = n
	}
}

// subtreeLabel returns the label of the edge from n to the child subtree
// containing the given descendant.
func (n *DTNode) subtreeLabel(descendant *DTNode) bool {
	cur := descendant
	for cur.parent != n {
		cur = cur.parent
	}
	return cur.parentOut
}

// rootPathLabel returns the outcome label on the root edge of the path from
// the tree root to the node. For the DFA domain this is the acceptance bit
// of every state in the node's subtree.
func rootPathLabel(n *DTNode) bool {
	cur := n
	for cur.parent != nil && cur.parent.parent != nil {
		cur = cur.parent
	}
	return cur.parentOut
}

// subtreeStates appends all states linked in the node's subtree.
func (n *DTNode) subtreeStates(dst []*State) []*State {
	if n.IsLeaf() {
		if n.state != nil {
			dst = append(dst, n.state)
		}
		return dst
	}
	for _, c := range n.children() {
		dst = c.subtreeStates(dst)
	}
	return dst
}

// anyStateIn returns some state in the node's subtree, or nil.
func anyStateIn(n *DTNode) *State {
	if n.IsLeaf() {
		return n.state
	}
	for _, c := range n.children() {
		if s := anyStateIn(c); s != nil {
			return s
		}
	}
	return nil
}

// allNodesFinal reports whether no node in the subtree is temporary.
func (n *DTNode) allNodesFinal() bool {
	if n.temp {
		return false
	}
	for _, c := range n.children() {
		if !c.allNodesFinal() {
			return false
		}
	}
	return true
}

// leastCommonAncestor returns the LCA of two nodes.
func leastCommonAncestor(a, b *DTNode) *DTNode {
	for a.depth > b.depth {
		a = a.parent
	}
	for b.depth > a.depth {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// link establishes the bidirectional connection between a leaf and a state,
// and derives the state's acceptance from the leaf's position below the
// ε-discriminator root.
func link(n *DTNode, s *State) {
	n.state = s
	s.dtLeaf = n
	if n.parent != nil {
		s.accepting = rootPathLabel(n)
	}
}

// blockList is the intrusive list of block roots.
type blockList struct {
	head *DTNode
}

func (bl *blockList) insert(n *DTNode) {
	if n.onBlocks {
		return
	}
	n.nextBlock = bl.head
	n.prevBlock = nil
	if bl.head != nil {
		bl.head.prevBlock = n
	}
	bl.head = n
	n.onBlocks = true
}

func (bl *blockList) remove(n *DTNode) {
	if !n.onBlocks {
		return
	}
	if n.prevBlock != nil {
		n.prevBlock.nextBlock = n.nextBlock
	} else {
		bl.head = n.nextBlock
	}
	if n.nextBlock != nil {
		n.nextBlock.prevBlock = n.prevBlock
	}
	n.nextBlock = nil
	n.prevBlock = nil
	n.onBlocks = false
}

func (bl *blockList) isEmpty() bool { return bl.head == nil }

// splitData is the scratch area attached to the nodes of a block while its
// discriminator is being finalized.
type splitData struct {
	incomingFalse incomingList
	incomingTrue  incomingList
	markedFalse   bool
	markedTrue    bool
	hasStateLabel bool
	stateLabel    bool
}

func (sd *splitData) incomingFor(label bool) *incomingList {
	if label {
		return &sd.incomingTrue
	}
	return &sd.incomingFalse
}

// mark records the label and reports whether it was newly set.
func (sd *splitData) mark(label bool) bool {
	if label {
		if sd.markedTrue {
			return false
		}
		sd.markedTrue = true
		return true
	}
	if sd.markedFalse {
		return false
	}
	sd.markedFalse = true
	return true
}

func (sd *splitData) isMarked(label bool) bool {
	if label {
		return sd.markedTrue
	}
	return sd.markedFalse
}

// labels returns the marked labels in false/true order.
func (sd *splitData) labels() []bool {
	var ls []bool
	if sd.markedFalse {
		ls = append(ls, false)
	}
	if sd.markedTrue {
		ls = append(ls, true)
	}
	return ls
}
