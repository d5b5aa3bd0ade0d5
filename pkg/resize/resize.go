// Package resize implements the proportional resize cascade for container
// nodes.
//
// A resize is a session: Start captures the initial geometry of every
// descendant, each Move rescales all of them from that initial snapshot,
// and End discards it. Scaling always from the initial state - never from
// the previous frame - keeps hundreds of small pointer-move events from
// compounding rounding drift.
package resize

import (
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// Minimum size floors, clamped rather than rejected.
const (
	// MinNodeSize is the floor for the node being resized.
	MinNodeSize = 30.0
	// MinChildSize is the floor for rescaled descendants.
	MinChildSize = 20.0
)

// Session is one active resize gesture over a single node.
// Not safe for concurrent use; a surface runs at most one resize at a time.
type Session struct {
	store    *scene.Store
	nodeID   string
	initialW float64
	initialH float64
	initial  map[string]scene.Geometry // descendant ID -> geometry at Start
	active   bool
}

// Start begins a resize session for the given node, snapshotting the
// initial geometry of the node and all descendants (depth-first, unbounded
// depth). Returns nil when the node does not exist.
func Start(s *scene.Store, nodeID string) *Session {
	n, ok := s.Node(nodeID)
	if !ok {
		return nil
	}
	snap := make(map[string]scene.Geometry)
	for _, id := range s.Descendants(nodeID) {
		if d, ok := s.Node(id); ok {
			snap[id] = d.Geometry
		}
	}
	return &Session{
		store:    s,
		nodeID:   nodeID,
		initialW: n.Geometry.W,
		initialH: n.Geometry.H,
		initial:  snap,
		active:   true,
	}
}

// Active reports whether the session still accepts Move calls.
func (s *Session) Active() bool { return s != nil && s.active }

// Move applies a new size to the resized node and proportionally rewrites
// every descendant from the initial snapshot:
//
//	scaleX = newW / initialW
//	x' = initial.x * scaleX, w' = max(MinChildSize, initial.w * scaleX)
//
// and likewise on the vertical axis. The resized node itself is floored at
// MinNodeSize. A zero initial extent scales as identity on that axis.
// Calling Move after End is a no-op.
func (s *Session) Move(newW, newH float64) {
	if !s.Active() {
		return
	}
	n, ok := s.store.Node(s.nodeID)
	if !ok {
		return
	}
	if newW < MinNodeSize {
		newW = MinNodeSize
	}
	if newH < MinNodeSize {
		newH = MinNodeSize
	}

	scaleX, scaleY := 1.0, 1.0
	if s.initialW > 0 {
		scaleX = newW / s.initialW
	}
	if s.initialH > 0 {
		scaleY = newH / s.initialH
	}

	s.store.SetGeometry(s.nodeID, scene.Geometry{X: n.Geometry.X, Y: n.Geometry.Y, W: newW, H: newH})

	for id, g := range s.initial {
		w := g.W * scaleX
		if w < MinChildSize {
			w = MinChildSize
		}
		h := g.H * scaleY
		if h < MinChildSize {
			h = MinChildSize
		}
		// Descendants deleted mid-gesture drop out silently: SetGeometry
		// no-ops on missing IDs.
		s.store.SetGeometry(id, scene.Geometry{X: g.X * scaleX, Y: g.Y * scaleY, W: w, H: h})
	}
}

// End discards the snapshot and deactivates the session. The last applied
// Move remains committed in the store.
func (s *Session) End() {
	if s == nil {
		return
	}
	s.active = false
	s.initial = nil
}
