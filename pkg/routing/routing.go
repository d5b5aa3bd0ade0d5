// Package routing computes connector anchor points and path geometry.
//
// Anchors are where a connector crosses a node's rectangle boundary, so
// rendered arrows touch shapes instead of overlapping their interiors.
// Paths come in four interchangeable styles selected per edge, with
// straight lines as the global default. The package is invoked purely for
// rendering and mutates nothing.
package routing

import (
	"fmt"
	"math"
	"strings"

	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// Side labels which part of a node's boundary an anchor landed on.
// The vertical axis grows downward, so "top" is the smaller Y.
type Side string

const (
	SideTop         Side = "top"
	SideRight       Side = "right"
	SideBottom      Side = "bottom"
	SideLeft        Side = "left"
	SideTopLeft     Side = "top-left"
	SideTopRight    Side = "top-right"
	SideBottomLeft  Side = "bottom-left"
	SideBottomRight Side = "bottom-right"
	// SideCenter is the degenerate case: the target coincides with the
	// node center, so no boundary direction exists.
	SideCenter Side = "center"
)

// Anchor is a resolved boundary crossing.
type Anchor struct {
	Point geometry.Point `json:"point"`
	Side  Side           `json:"side"`
}

// EdgeIntersection finds where the ray from the rectangle's center toward
// the given point crosses the rectangle boundary. Division by zero is
// treated as an infinite scale so purely horizontal or vertical rays
// resolve on the correct side; a zero-length direction returns the center
// itself with SideCenter.
func EdgeIntersection(bounds geometry.Rect, toward geometry.Point) Anchor {
	c := bounds.Center()
	dx := toward.X - c.X
	dy := toward.Y - c.Y
	if dx == 0 && dy == 0 {
		return Anchor{Point: c, Side: SideCenter}
	}

	scaleX := math.Inf(1)
	if dx != 0 {
		scaleX = (bounds.W / 2) / math.Abs(dx)
	}
	scaleY := math.Inf(1)
	if dy != 0 {
		scaleY = (bounds.H / 2) / math.Abs(dy)
	}
	scale := math.Min(scaleX, scaleY)

	p := geometry.Point{X: c.X + dx*scale, Y: c.Y + dy*scale}
	return Anchor{Point: p, Side: classify(dx, dy, scaleX, scaleY)}
}

func classify(dx, dy, scaleX, scaleY float64) Side {
	const eps = 1e-9
	horizontal := SideRight
	if dx < 0 {
		horizontal = SideLeft
	}
	vertical := SideBottom
	if dy < 0 {
		vertical = SideTop
	}
	switch {
	case math.Abs(scaleX-scaleY) < eps:
		return Side(string(vertical) + "-" + string(horizontal))
	case scaleX < scaleY:
		return horizontal
	default:
		return vertical
	}
}

// Path is the computed geometry of one connector.
//
// Waypoints holds intermediate on-path vertices (the orthogonal elbow);
// Controls holds off-path curve control points (one for the quadratic
// style, two for the cubic). Straight paths have neither.
type Path struct {
	Style     string           `json:"style"`
	Start     geometry.Point   `json:"start"`
	End       geometry.Point   `json:"end"`
	Waypoints []geometry.Point `json:"waypoints,omitempty"`
	Controls  []geometry.Point `json:"controls,omitempty"`
}

// ComputePath produces path geometry between two points in the given
// routing style. Unknown styles fall back to the straight default.
func ComputePath(a, b geometry.Point, style string) Path {
	dx := b.X - a.X
	dy := b.Y - a.Y

	switch style {
	case scene.RoutingOrthogonal:
		// Single right-angle elbow on whichever axis moves farther:
		// dominant-horizontal paths run horizontally first.
		elbow := geometry.Point{X: b.X, Y: a.Y}
		if math.Abs(dy) > math.Abs(dx) {
			elbow = geometry.Point{X: a.X, Y: b.Y}
		}
		return Path{Style: style, Start: a, End: b, Waypoints: []geometry.Point{elbow}}

	case scene.RoutingCurved:
		mid := geometry.Point{X: a.X + dx/2, Y: a.Y + dy/2}
		norm := math.Hypot(dx, dy)
		ctrl := mid
		if norm > 0 {
			mag := math.Min(math.Abs(dx), math.Abs(dy)) / 4
			ctrl = geometry.Point{X: mid.X - dy/norm*mag, Y: mid.Y + dx/norm*mag}
		}
		return Path{Style: style, Start: a, End: b, Controls: []geometry.Point{ctrl}}

	case scene.RoutingBezier:
		c1 := geometry.Point{X: a.X + 0.3*dx, Y: a.Y}
		c2 := geometry.Point{X: a.X + 0.7*dx, Y: b.Y}
		return Path{Style: style, Start: a, End: b, Controls: []geometry.Point{c1, c2}}

	default:
		return Path{Style: scene.RoutingStraight, Start: a, End: b}
	}
}

// SVG renders the path as an SVG path data string ("d" attribute).
func (p Path) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, "M %.2f %.2f", p.Start.X, p.Start.Y)
	switch {
	case len(p.Controls) == 1:
		fmt.Fprintf(&b, " Q %.2f %.2f %.2f %.2f", p.Controls[0].X, p.Controls[0].Y, p.End.X, p.End.Y)
	case len(p.Controls) == 2:
		fmt.Fprintf(&b, " C %.2f %.2f %.2f %.2f %.2f %.2f",
			p.Controls[0].X, p.Controls[0].Y, p.Controls[1].X, p.Controls[1].Y, p.End.X, p.End.Y)
	default:
		for _, w := range p.Waypoints {
			fmt.Fprintf(&b, " L %.2f %.2f", w.X, w.Y)
		}
		fmt.Fprintf(&b, " L %.2f %.2f", p.End.X, p.End.Y)
	}
	return b.String()
}

// Router resolves complete connector geometry for edges in a scene:
// anchor points on both endpoint boundaries plus the path between them.
type Router struct {
	store *scene.Store
	geo   *geometry.Resolver
}

// NewRouter creates a router reading from the given store.
func NewRouter(s *scene.Store) *Router {
	return &Router{store: s, geo: geometry.NewResolver(s)}
}

// EdgePath resolves the full render geometry for an edge: each endpoint's
// boundary anchor aimed at the other endpoint's center, connected in the
// edge's routing style. Returns ok=false when either endpoint node is gone
// (the edge is then unrenderable and should be skipped).
func (r *Router) EdgePath(e *scene.Edge) (Path, Anchor, Anchor, bool) {
	srcBounds, okS := r.geo.AbsoluteBounds(e.SourceID)
	dstBounds, okD := r.geo.AbsoluteBounds(e.TargetID)
	if !okS || !okD {
		return Path{}, Anchor{}, Anchor{}, false
	}
	from := EdgeIntersection(srcBounds, dstBounds.Center())
	to := EdgeIntersection(dstBounds, srcBounds.Center())
	return ComputePath(from.Point, to.Point, e.Routing), from, to, true
}
