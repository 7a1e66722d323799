package ttt

// TreeView is an immutable snapshot of a discrimination tree node, suitable
// for rendering. Children appear in false/true edge order.
type TreeView struct {
	Discriminator string
	Temp          bool
	Leaf          bool
	StateID       int
	Edges         []bool
	Children      []*TreeView
}

// TreeSnapshot captures the current discrimination tree.
func (l *Learner) TreeSnapshot() *TreeView {
	return snapshotNode(l.root)
}

func snapshotNode(n *DTNode) *TreeView {
	v := &TreeView{
		Temp:    n.temp,
		Leaf:    n.IsLeaf(),
		StateID: -1,
	}
	if n.IsLeaf() {
		if n.state != nil {
			v.StateID = n.state.id
		}
		return v
	}
	v.Discriminator = n.discriminator.String()
	for _, c := range n.children() {
		v.Edges = append(v.Edges, c.parentOut)
		v.Children = append(v.Children, snapshotNode(c))
	}
	return v
}

// NumBlocks returns the number of open blocks (temporary subtrees).
func (l *Learner) NumBlocks() int {
	n := 0
	for b := l.blocks.head; b != nil; b = b.nextBlock {
		n++
	}
	return n
}
