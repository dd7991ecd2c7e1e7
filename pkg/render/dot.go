package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/kinetic/pkg/graph"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/value"
)

// Options configures DOT generation.
type Options struct {
	// RankDir is the Graphviz rank direction: "TB" (default) or "LR".
	RankDir string

	// ShowValues adds each node's cached value and generation to its label.
	ShowValues bool

	// Title is drawn above the graph when set.
	Title string
}

// ToDOT converts a snapshot to Graphviz DOT. Nodes appear in id order so the
// output is stable for equal snapshots.
func ToDOT(s *graph.Snapshot, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "TB"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	for _, n := range s.Nodes {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, opts.ShowValues))}
		attrs = append(attrs, nodeStyle(n)...)
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	views := map[node.ViewID]bool{}
	for _, n := range s.Nodes {
		if n.View != nil {
			views[*n.View] = true
		}
	}
	for _, ev := range s.Events {
		views[ev.View] = true
	}
	if len(views) > 0 {
		buf.WriteString("\n")
	}
	for _, v := range slices.Sorted(maps.Keys(views)) {
		fmt.Fprintf(&buf, "  v%d [label=\"view %d\", shape=note, fillcolor=\"#e8e8e8\"];\n", v, v)
	}

	buf.WriteString("\n")
	for _, n := range s.Nodes {
		for _, c := range n.Consumers {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", n.ID, c)
		}
	}
	for _, n := range s.Nodes {
		if n.View != nil {
			fmt.Fprintf(&buf, "  n%d -> v%d [style=bold];\n", n.ID, *n.View)
		}
	}
	for _, ev := range s.Events {
		fmt.Fprintf(&buf, "  v%d -> n%d [style=dashed, label=%q];\n", ev.View, ev.Node, ev.Name)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n graph.NodeInfo, showValues bool) string {
	label := fmt.Sprintf("%d: %s", n.ID, n.Kind)
	if !showValues || (n.Generation == 0 && n.Kind != node.KindValue.String()) {
		return label
	}
	return fmt.Sprintf("%s\n%s\ngen %d", label, truncate(n.Value.String(), 32), n.Generation)
}

func nodeStyle(n graph.NodeInfo) []string {
	var attrs []string
	kind, _ := node.ParseKind(n.Kind)
	switch {
	case kind == node.KindValue || kind == node.KindConst:
		attrs = append(attrs, `fillcolor="#fff7c2"`)
	case kind == node.KindClock && n.Running:
		attrs = append(attrs, `fillcolor="#ffc58a"`)
	case kind == node.KindClock:
		attrs = append(attrs, "fillcolor=lightgrey")
	case kind.IsSink():
		attrs = append(attrs, `fillcolor="#cfe6ff"`)
	}
	if n.Value.Kind() == value.KindInvalid {
		attrs = append(attrs, "color=red", "penwidth=2")
	}
	return attrs
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
