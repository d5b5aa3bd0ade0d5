package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/routing"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// svgMargin pads the viewBox around the scene's bounding box.
const svgMargin = 20.0

// RenderSVG renders the scene to SVG using its own coordinates: absolute
// node rectangles plus connector paths in each edge's routing style.
// Unlike the Graphviz sinks, nothing is re-laid-out.
func RenderSVG(s *scene.Store) []byte {
	geo := geometry.NewResolver(s)
	router := routing.NewRouter(s)

	minX, minY, maxX, maxY := sceneBounds(s, geo)
	width := maxX - minX + 2*svgMargin
	height := maxY - minY + 2*svgMargin

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		minX-svgMargin, minY-svgMargin, width, height, width, height)

	// Parents first so children paint on top of their container.
	for _, root := range s.Children("") {
		renderNode(&buf, s, geo, root)
	}
	for _, e := range s.Edges() {
		renderEdge(&buf, router, e)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func sceneBounds(s *scene.Store, geo *geometry.Resolver) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range s.Nodes() {
		b, ok := geo.AbsoluteBounds(n.ID)
		if !ok {
			continue
		}
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.W)
		maxY = math.Max(maxY, b.Y+b.H)
	}
	if minX > maxX {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

func renderNode(buf *bytes.Buffer, s *scene.Store, geo *geometry.Resolver, id string) {
	n, ok := s.Node(id)
	if !ok {
		return
	}
	b, ok := geo.AbsoluteBounds(n.ID)
	if !ok {
		return
	}

	fill := n.Style["fill"]
	if fill == "" {
		if n.IsContainer() {
			fill = "#f5f5f5"
		} else {
			fill = "#ffffff"
		}
	}
	stroke := n.Style["stroke"]
	if stroke == "" {
		stroke = "#333333"
	}

	fmt.Fprintf(buf, `  <rect id=%q x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill=%q stroke=%q rx="4"/>`+"\n",
		"node-"+n.ID, b.X, b.Y, b.W, b.H, fill, stroke)

	if label := nodeLabel(n); label != "" {
		c := b.Center()
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-size="12">%s</text>`+"\n",
			c.X, c.Y, escapeText(label))
	}

	for _, child := range s.Children(n.ID) {
		renderNode(buf, s, geo, child)
	}
}

func renderEdge(buf *bytes.Buffer, router *routing.Router, e *scene.Edge) {
	path, _, _, ok := router.EdgePath(e)
	if !ok {
		return
	}
	fmt.Fprintf(buf, `  <path id=%q d=%q fill="none" stroke="#555555" stroke-width="1.5"/>`+"\n",
		"edge-"+e.ID, path.SVG())
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
