package dfafile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/ttt"
)

// GenerateDOT converts a DFA to Graphviz DOT format.
func GenerateDOT(d *dfa.DFA, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph DFA {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	// Invisible start node
	if d.Initial() >= 0 {
		sb.WriteString("    __start [shape=none, label=\"\", width=0, height=0];\n")
		sb.WriteString(fmt.Sprintf("    __start -> q%d;\n", d.Initial()))
		sb.WriteString("\n")
	}

	for s := 0; s < d.NumStates(); s++ {
		shape := "circle"
		if d.IsAccepting(s) {
			shape = "doublecircle"
		}
		sb.WriteString(fmt.Sprintf("    q%d [shape=%s];\n", s, shape))
	}
	sb.WriteString("\n")

	// Group transitions by (from, to)
	type edge struct{ from, to int }
	edgeLabels := make(map[edge][]string)
	var edges []edge
	for s := 0; s < d.NumStates(); s++ {
		for i := 0; i < d.Alphabet().Size(); i++ {
			to := d.Step(s, i)
			if to < 0 {
				continue
			}
			key := edge{s, to}
			if _, seen := edgeLabels[key]; !seen {
				edges = append(edges, key)
			}
			edgeLabels[key] = append(edgeLabels[key], d.Alphabet().Symbol(i))
		}
	}
	for _, key := range edges {
		combined := strings.Join(edgeLabels[key], ", ")
		sb.WriteString(fmt.Sprintf("    q%d -> q%d [label=\"%s\"];\n",
			key.from, key.to, escapeDOT(combined)))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// GenerateTreeDOT renders a discrimination tree snapshot as DOT. Temporary
// nodes are drawn dashed; leaves carry their state id.
func GenerateTreeDOT(tree *ttt.TreeView, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph DT {\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
	}
	sb.WriteString("\n")

	counter := 0
	writeTreeNode(&sb, tree, &counter)

	sb.WriteString("}\n")
	return sb.String()
}

func writeTreeNode(sb *strings.Builder, n *ttt.TreeView, counter *int) int {
	id := *counter
	*counter++

	if n.Leaf {
		label := "?"
		if n.StateID >= 0 {
			label = fmt.Sprintf("q%d", n.StateID)
		}
		fmt.Fprintf(sb, "    n%d [shape=box, label=\"%s\"];\n", id, label)
		return id
	}

	style := ""
	if n.Temp {
		style = ", style=dashed"
	}
	fmt.Fprintf(sb, "    n%d [shape=ellipse, label=\"%s\"%s];\n",
		id, escapeDOT(n.Discriminator), style)

	for i, c := range n.Children {
		childID := writeTreeNode(sb, c, counter)
		edge := "0"
		if n.Edges[i] {
			edge = "1"
		}
		fmt.Fprintf(sb, "    n%d -> n%d [label=\"%s\"];\n", id, childID, edge)
	}
	return id
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
