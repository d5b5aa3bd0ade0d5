// Package docking resolves drop targets for dragged nodes and commits
// reparent operations with compensating coordinate translation.
//
// Containment cycles are prevented here, structurally: a node's own
// subtree is never offered as a drop target, so no sequence of docking
// operations can make a node its own ancestor. The store performs no
// cycle check of its own.
package docking

import (
	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// State is the drag state machine position.
// Transitions: Idle → Dragging → (Docking | Idle) → Idle.
type State int

const (
	// StateIdle means no drag is active.
	StateIdle State = iota
	// StateDragging means a node is being dragged and candidate targets
	// are recomputed on every pointer move.
	StateDragging
	// StateDocking means the drag ended over a container and the commit
	// is in progress.
	StateDocking
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateDocking:
		return "docking"
	default:
		return "unknown"
	}
}

// Resolver hit-tests drop targets and commits docking operations against
// one scene store. It carries the per-drag state machine; create one
// resolver per editing surface.
type Resolver struct {
	store *scene.Store
	geo   *geometry.Resolver

	state     State
	draggedID string
	targetID  string // current candidate parent, "" = root level
}

// NewResolver creates a docking resolver over the given store.
func NewResolver(s *scene.Store) *Resolver {
	return &Resolver{store: s, geo: geometry.NewResolver(s)}
}

// State returns the current drag state.
func (r *Resolver) State() State { return r.state }

// DraggedID returns the node being dragged, or "" outside a drag.
func (r *Resolver) DraggedID() string { return r.draggedID }

// TargetID returns the current candidate parent, or "" for root level.
func (r *Resolver) TargetID() string { return r.targetID }

// BeginDrag moves Idle → Dragging for the given node. Returns false (and
// stays Idle) when the node does not exist or a drag is already active.
func (r *Resolver) BeginDrag(nodeID string) bool {
	if r.state != StateIdle {
		return false
	}
	if _, ok := r.store.Node(nodeID); !ok {
		return false
	}
	r.state = StateDragging
	r.draggedID = nodeID
	r.targetID = ""
	return true
}

// UpdatePotentialTarget recomputes the candidate drop target from the
// dragged node's current absolute center. Call on every pointer move
// while dragging; outside a drag it returns "".
func (r *Resolver) UpdatePotentialTarget() string {
	if r.state != StateDragging {
		return ""
	}
	center, ok := r.geo.AbsoluteCenter(r.draggedID)
	if !ok {
		r.targetID = ""
		return ""
	}
	r.targetID = r.FindContainerAt(center, r.draggedID)
	return r.targetID
}

// FindContainerAt returns the ID of the innermost container whose absolute
// bounds contain the point, or "" when no container qualifies (the drop
// position becomes root level). The node excludeID and its entire subtree
// are excluded from candidacy; this is what keeps the containment relation
// cycle-free. Among containing candidates the greatest containment depth
// wins; ties between equally deep overlapping containers are
// implementation-defined.
func (r *Resolver) FindContainerAt(p geometry.Point, excludeID string) string {
	best := ""
	bestDepth := -1
	for _, n := range r.store.Nodes() {
		if !n.IsContainer() || n.ID == excludeID {
			continue
		}
		if excludeID != "" && r.geo.IsAncestor(excludeID, n.ID) {
			continue
		}
		bounds, ok := r.geo.AbsoluteBounds(n.ID)
		if !ok || !bounds.Contains(p) {
			continue
		}
		if depth := r.geo.Depth(n.ID); depth > bestDepth {
			best = n.ID
			bestDepth = depth
		}
	}
	return best
}

// Drop ends the active drag, committing the node into the current
// candidate target (Dragging → Docking → Idle). Without an active drag it
// does nothing. Releasing the pointer is the only cancellation signal; an
// aborted drag simply never reaches Drop.
func (r *Resolver) Drop() {
	if r.state != StateDragging {
		return
	}
	r.state = StateDocking
	r.CommitDocking(r.draggedID, r.targetID)
	r.reset()
}

// CancelDrag abandons the active drag without committing anything,
// leaving the store in its last fully committed state.
func (r *Resolver) CancelDrag() { r.reset() }

// CommitDocking reparents a node under candidateParentID (or to root when
// ""), atomically rewriting both the parent reference and the relative
// geometry so the node's absolute position is unchanged. No-ops: missing
// node, unchanged parent, missing or non-container target, and any target
// inside the node's own subtree.
func (r *Resolver) CommitDocking(nodeID, candidateParentID string) {
	n, ok := r.store.Node(nodeID)
	if !ok || n.ParentID == candidateParentID {
		return
	}
	if candidateParentID != "" {
		parent, ok := r.store.Node(candidateParentID)
		if !ok || !parent.IsContainer() {
			return
		}
		if candidateParentID == nodeID || r.geo.IsAncestor(nodeID, candidateParentID) {
			return
		}
	}
	rel, ok := r.geo.ConvertFrame(nodeID, candidateParentID)
	if !ok {
		return
	}
	r.store.Reparent(nodeID, candidateParentID)
	r.store.SetGeometry(nodeID, scene.Geometry{X: rel.X, Y: rel.Y, W: n.Geometry.W, H: n.Geometry.H})
}

// Undock moves a node to root level, preserving its absolute position.
func (r *Resolver) Undock(nodeID string) {
	r.CommitDocking(nodeID, "")
}

func (r *Resolver) reset() {
	r.state = StateIdle
	r.draggedID = ""
	r.targetID = ""
}
