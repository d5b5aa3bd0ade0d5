// Package geometry derives absolute positions and converts between the
// screen, world, and parent-local coordinate frames of a scene.
//
// Because every node stores only a parent-relative offset, any operation
// that changes the containment relation or observes cross-level geometry
// must re-derive positions explicitly. This package is the single source
// of truth for that arithmetic: docking, routing, export, and the HTTP
// query surface all go through it.
package geometry

import (
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// Point is a position in some coordinate frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p translated by -q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Rect is an axis-aligned rectangle in the world frame.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether the point lies inside the rectangle.
// Edges count as inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// ViewTransform is the pan/zoom state supplied by the rendering layer.
// World coordinates map to screen as screen = world*Zoom + Pan.
type ViewTransform struct {
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
	Zoom float64 `json:"zoom"`
}

// zoom returns the effective zoom factor, treating non-positive values as 1
// so a zero-value transform behaves as the identity.
func (v ViewTransform) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ScreenToWorld applies the inverse of the pan/zoom transform, mapping
// device coordinates into canvas world coordinates.
func (v ViewTransform) ScreenToWorld(p Point) Point {
	z := v.zoom()
	return Point{X: (p.X - v.PanX) / z, Y: (p.Y - v.PanY) / z}
}

// WorldToScreen maps canvas world coordinates to device coordinates.
func (v ViewTransform) WorldToScreen(p Point) Point {
	z := v.zoom()
	return Point{X: p.X*z + v.PanX, Y: p.Y*z + v.PanY}
}

// Resolver computes world-frame geometry for nodes in a scene store.
// It holds no state besides the store reference and re-derives everything
// on every call, so it never observes stale positions across mutations.
type Resolver struct {
	store *scene.Store
}

// NewResolver creates a resolver reading from the given store.
func NewResolver(s *scene.Store) *Resolver {
	return &Resolver{store: s}
}

// AbsolutePosition returns the node's world-frame position: its own
// relative offset plus the offsets of every ancestor up to the root.
// A dangling parent reference terminates the walk early, as if the walk
// had reached a root; that is a robustness choice, not a correctness
// guarantee - dangling parents are a data bug prevented upstream by the
// store. Returns ok=false only when the node itself does not exist.
func (r *Resolver) AbsolutePosition(nodeID string) (Point, bool) {
	n, ok := r.store.Node(nodeID)
	if !ok {
		return Point{}, false
	}
	p := Point{X: n.Geometry.X, Y: n.Geometry.Y}
	seen := map[string]bool{nodeID: true}
	for parentID := n.ParentID; parentID != ""; {
		if seen[parentID] {
			break // corrupt containment loop; stop rather than spin
		}
		seen[parentID] = true
		parent, ok := r.store.Node(parentID)
		if !ok {
			break
		}
		p.X += parent.Geometry.X
		p.Y += parent.Geometry.Y
		parentID = parent.ParentID
	}
	return p, true
}

// AbsoluteBounds returns the node's world-frame bounding rectangle.
func (r *Resolver) AbsoluteBounds(nodeID string) (Rect, bool) {
	n, ok := r.store.Node(nodeID)
	if !ok {
		return Rect{}, false
	}
	p, _ := r.AbsolutePosition(nodeID)
	return Rect{X: p.X, Y: p.Y, W: n.Geometry.W, H: n.Geometry.H}, true
}

// AbsoluteCenter returns the world-frame center of the node's rectangle.
func (r *Resolver) AbsoluteCenter(nodeID string) (Point, bool) {
	b, ok := r.AbsoluteBounds(nodeID)
	if !ok {
		return Point{}, false
	}
	return b.Center(), true
}

// ConvertFrame re-expresses a node's current absolute position relative to
// a new parent frame. With toParentID == "" the absolute position comes
// back unchanged (world frame). Docking uses this so a reparented node
// keeps its visual position: new relative = absolute - new parent absolute.
// Returns ok=false when the node or the target parent does not exist.
func (r *Resolver) ConvertFrame(nodeID, toParentID string) (Point, bool) {
	abs, ok := r.AbsolutePosition(nodeID)
	if !ok {
		return Point{}, false
	}
	if toParentID == "" {
		return abs, true
	}
	parentAbs, ok := r.AbsolutePosition(toParentID)
	if !ok {
		return Point{}, false
	}
	return abs.Sub(parentAbs), true
}

// Depth returns the number of ancestors above the node: 0 for roots and
// missing nodes. The walk stops at dangling references and loops.
func (r *Resolver) Depth(nodeID string) int {
	n, ok := r.store.Node(nodeID)
	if !ok {
		return 0
	}
	depth := 0
	seen := map[string]bool{nodeID: true}
	for parentID := n.ParentID; parentID != ""; {
		if seen[parentID] {
			break
		}
		seen[parentID] = true
		parent, ok := r.store.Node(parentID)
		if !ok {
			break
		}
		depth++
		parentID = parent.ParentID
	}
	return depth
}

// IsAncestor reports whether ancestorID appears on nodeID's parent chain.
// A node is not its own ancestor.
func (r *Resolver) IsAncestor(ancestorID, nodeID string) bool {
	n, ok := r.store.Node(nodeID)
	if !ok {
		return false
	}
	seen := map[string]bool{nodeID: true}
	for parentID := n.ParentID; parentID != ""; {
		if parentID == ancestorID {
			return true
		}
		if seen[parentID] {
			return false
		}
		seen[parentID] = true
		parent, ok := r.store.Node(parentID)
		if !ok {
			return false
		}
		parentID = parent.ParentID
	}
	return false
}
