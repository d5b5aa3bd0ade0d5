// Package export renders scenes to interchange and image formats.
//
// Three sinks are provided: Graphviz DOT text (containers become
// clusters), rasterized/vector output through the Graphviz engine, and a
// native SVG writer that preserves the scene's own coordinates and edge
// routing instead of delegating layout to Graphviz.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nestgraph/nestgraph/pkg/scene"
)

// ToDOT converts a scene to Graphviz DOT format. Containers become
// clusters so the containment hierarchy survives the conversion; Graphviz
// computes its own layout, so node geometry is not carried over.
func ToDOT(s *scene.Store) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	for _, id := range s.Children("") {
		writeDOTNode(&buf, s, id, 1)
	}

	buf.WriteString("\n")
	for _, e := range s.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", dotEndpoint(s, e.SourceID), dotEndpoint(s, e.TargetID))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeDOTNode(buf *bytes.Buffer, s *scene.Store, id string, depth int) {
	n, ok := s.Node(id)
	if !ok {
		return
	}
	indent := strings.Repeat("  ", depth)
	if !n.IsContainer() {
		fmt.Fprintf(buf, "%s%q [label=%q];\n", indent, n.ID, nodeLabel(n))
		return
	}

	fmt.Fprintf(buf, "%ssubgraph \"cluster_%s\" {\n", indent, n.ID)
	fmt.Fprintf(buf, "%s  label=%q;\n", indent, nodeLabel(n))
	// Clusters cannot be edge endpoints; an invisible point node inside
	// each one stands in for the container itself.
	fmt.Fprintf(buf, "%s  %q [shape=point, style=invis];\n", indent, anchorID(n.ID))
	for _, child := range s.Children(n.ID) {
		writeDOTNode(buf, s, child, depth+1)
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// dotEndpoint maps a node ID to the DOT node standing in for it. Container
// endpoints route to their invisible anchor.
func dotEndpoint(s *scene.Store, id string) string {
	if n, ok := s.Node(id); ok && n.IsContainer() {
		return anchorID(id)
	}
	return id
}

func anchorID(id string) string { return "__anchor_" + id }

// nodeLabel prefers a "label" entry in the node's data payload, falling
// back to the ID.
func nodeLabel(n *scene.Node) string {
	if v, ok := n.Data["label"]; ok {
		if label, ok := v.(string); ok && label != "" {
			return label
		}
	}
	return n.ID
}
