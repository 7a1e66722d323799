package ttt

import "github.com/ha1tch/learnkit/pkg/word"

// splitter encodes a candidate final discriminator for a block: an input
// symbol index and a non-temporary inner node separating the successors on
// that symbol. The discriminator is symbol·succSeparator.discriminator, or
// just the symbol when succSeparator is nil (property-based split).
type splitter struct {
	symIdx        int
	succSeparator *DTNode
}

func (sp *splitter) discriminatorLen() int {
	if sp.succSeparator == nil {
		return 0
	}
	return sp.succSeparator.discriminator.Len()
}

// finalizeAny finalizes one block if any block has a splitter. The search
// scans all blocks for the shortest discriminator unless the learner was
// configured to stop at the first match.
func (l *Learner) finalizeAny() (bool, error) {
	blockRoot, sp := l.findSplitterGlobal()
	if sp == nil {
		return false, nil
	}
	if err := l.finalizeDiscriminator(blockRoot, sp); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Learner) findSplitterGlobal() (*DTNode, *splitter) {
	var bestRoot *DTNode
	var best *splitter
	for blockRoot := l.blocks.head; blockRoot != nil; blockRoot = blockRoot.nextBlock {
		sp := l.findSplitter(blockRoot)
		if sp == nil {
			continue
		}
		if best == nil || sp.discriminatorLen() < best.discriminatorLen() {
			best = sp
			bestRoot = blockRoot
		}
		if l.firstBlockOnly {
			break
		}
	}
	return bestRoot, best
}

// findSplitter determines a splitter for a block. A disagreement on a
// transition property yields an immediate length-0 splitter; otherwise the
// least common ancestor of the successors' tree nodes is a candidate
// separator if it is inner and non-temporary. The shortest candidate wins.
func (l *Learner) findSplitter(blockRoot *DTNode) *splitter {
	k := l.alphabet.Size()
	properties := make([]bool, k)
	lcas := make([]*DTNode, k)

	first := true
	for _, s := range blockRoot.subtreeStates(nil) {
		for i := 0; i < k; i++ {
			t := s.transitions[i]
			if first {
				properties[i] = transProperty(t)
				lcas[i] = dtTarget(t)
				continue
			}
			if transProperty(t) != properties[i] {
				return &splitter{symIdx: i}
			}
			lcas[i] = leastCommonAncestor(lcas[i], dtTarget(t))
		}
		first = false
	}

	shortestLen := -1
	var shortest *DTNode
	shortestSym := -1
	for i := 0; i < k; i++ {
		lca := lcas[i]
		if lca == nil || lca.temp || lca.IsLeaf() {
			continue
		}
		if n := lca.discriminator.Len(); shortest == nil || n < shortestLen {
			shortest = lca
			shortestLen = n
			shortestSym = i
		}
	}
	if shortest == nil {
		return nil
	}
	return &splitter{symIdx: shortestSym, succSeparator: shortest}
}

// dtTarget returns the discrimination tree node a transition currently
// points at: the target state's leaf for tree transitions.
func dtTarget(t *Transition) *DTNode {
	if t.IsTree() {
		return t.treeTarget.dtLeaf
	}
	return t.nonTreeTarget
}

// transProperty returns the transition's property, which for the DFA
// domain is the acceptance bit of its target.
func transProperty(t *Transition) bool {
	if t.IsTree() {
		return t.treeTarget.accepting
	}
	return rootPathLabel(t.nonTreeTarget)
}

// predictSuccOutcome predicts the outcome of the splitter's discriminator
// for the successor reached by the transition: the transition property for
// a property-based splitter, otherwise the separator's subtree label.
func predictSuccOutcome(t *Transition, succSeparator *DTNode) bool {
	if succSeparator == nil {
		return transProperty(t)
	}
	return succSeparator.subtreeLabel(dtTarget(t))
}

// finalizeDiscriminator replaces the block root's temporary discriminator
// by the one derived from the splitter and rebuilds the block's subtrees
// accordingly.
func (l *Learner) finalizeDiscriminator(blockRoot *DTNode, sp *splitter) error {
	finalDiscriminator := word.FromLetter(l.alphabet.Symbol(sp.symIdx))
	if sp.succSeparator != nil {
		finalDiscriminator = sp.succSeparator.discriminator.Prepend(l.alphabet.Symbol(sp.symIdx))
	}

	if !blockRoot.discriminator.Equal(finalDiscriminator) {
		if err := l.prepareSplit(blockRoot, sp, finalDiscriminator); err != nil {
			return err
		}
		repChildren := make(map[bool]*DTNode)
		for _, label := range blockRoot.splitData.labels() {
			repChildren[label] = l.extractSubtree(blockRoot, label)
		}
		blockRoot.replaceChildren(repChildren)
		blockRoot.discriminator = finalDiscriminator
	}

	l.declareFinal(blockRoot)
	return nil
}

// declareFinal marks a block root final, removes it from the block list,
// re-registers its inner child subtrees as new blocks, and reopens all of
// its incoming transitions.
func (l *Learner) declareFinal(blockRoot *DTNode) {
	blockRoot.temp = false
	blockRoot.splitData = nil
	l.blocks.remove(blockRoot)

	for _, child := range blockRoot.children() {
		if child.IsInner() {
			l.blocks.insert(child)
		}
	}
	l.open.insertAll(&blockRoot.incoming)
}

// prepareSplit walks the block's subtree depth first, attaching split data
// to every node: incoming transitions are requeried under the new
// discriminator, leaves are labeled with their predicted successor outcome,
// and labels propagate up to the block root.
func (l *Learner) prepareSplit(blockRoot *DTNode, sp *splitter, discriminator word.Word) error {
	stack := []*DTNode{blockRoot}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cur.splitData = &splitData{}

		// The incoming list shrinks as transitions are moved into the
		// split data, so iterate by repeatedly taking the head.
		for t := cur.incoming.head; t != nil; t = cur.incoming.head {
			outcome, err := l.query(t.AccessSequence(), discriminator)
			if err != nil {
				return err
			}
			cur.splitData.incomingFor(outcome).insert(t)
			markAndPropagate(cur, outcome)
		}

		if cur.IsInner() {
			stack = append(stack, cur.children()...)
			continue
		}

		t := cur.state.transitions[sp.symIdx]
		outcome := predictSuccOutcome(t, sp.succSeparator)
		cur.splitData.stateLabel = outcome
		cur.splitData.hasStateLabel = true
		markAndPropagate(cur, outcome)
	}
	return nil
}

// markAndPropagate marks the node with the label and propagates the mark
// upward while it is new and split data is present.
func markAndPropagate(node *DTNode, label bool) {
	for cur := node; cur != nil && cur.splitData != nil; cur = cur.parent {
		if !cur.splitData.mark(label) {
			return
		}
	}
}

type extractRecord struct {
	original  *DTNode
	extracted *DTNode
}

// extractSubtree builds the reduced copy of the block subtree containing
// exactly the nodes marked with the label. Inner nodes with a single marked
// child collapse; extracted nodes with incoming transitions but no state of
// the label get a state materialized on the fly.
func (l *Learner) extractSubtree(root *DTNode, label bool) *DTNode {
	firstExtracted := newLeaf(root, label)

	stack := []extractRecord{{original: root, extracted: firstExtracted}}
	for len(stack) > 0 {
		rec := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		original, extracted := rec.original, rec.extracted

		extracted.incoming.insertAll(original.splitData.incomingFor(label))

		if original.IsLeaf() {
			if original.splitData.hasStateLabel && original.splitData.stateLabel == label {
				link(extracted, original.state)
			} else {
				l.createNewState(extracted)
			}
			extracted.updateIncoming()
			continue
		}

		var marked []*DTNode
		for _, child := range original.children() {
			if child.splitData.isMarked(label) {
				marked = append(marked, child)
			}
		}

		switch len(marked) {
		case 0:
			l.createNewState(extracted)
			extracted.updateIncoming()
		case 1:
			stack = append(stack, extractRecord{original: marked[0], extracted: extracted})
		default:
			extracted.inner = true
			extracted.discriminator = original.discriminator
			extracted.temp = true
			for _, child := range marked {
				extractedChild := newLeaf(extracted, child.parentOut)
				extracted.setChild(child.parentOut, extractedChild)
				stack = append(stack, extractRecord{original: child, extracted: extractedChild})
			}
			extracted.updateIncoming()
		}
	}

	return firstExtracted
}

// createNewState materializes a state for an extracted node that has
// incoming transitions but no state with the extracted label in its
// subtree. One incoming transition becomes the state's tree transition.
func (l *Learner) createNewState(extracted *DTNode) {
	t := extracted.incoming.choose()
	s := l.hypothesis.CreateState(t)
	link(extracted, s)
	l.initializeState(s)
}
