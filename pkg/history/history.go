// Package history provides linear undo/redo over full scene snapshots.
//
// Snapshots are whole deep copies of the node/edge collections, not
// deltas - the simplest correct design for a store this small, where
// whole-state copies are cheap next to UI responsiveness. Undo and redo
// rebuild the entire store from the target snapshot (clear, then recreate
// every node and edge) rather than patching in place, which guarantees
// convergence even if intermediate mutations were inconsistent.
//
// Capture is normally driven by a [Recorder], which coalesces bursts of
// micro-mutations (every pixel of a drag) into one user-perceived action
// per snapshot.
package history

import (
	"maps"

	"github.com/nestgraph/nestgraph/pkg/scene"
)

// DefaultMaxEntries caps retained snapshots; the oldest are evicted first.
const DefaultMaxEntries = 100

// History is a linear undo/redo cursor over snapshots of one store.
// entries[cursor] always mirrors the store's current state. Not safe for
// concurrent use; the engine serializes access.
type History struct {
	store     *scene.Store
	entries   []*scene.Store
	cursor    int
	max       int
	restoring bool
}

// New creates a history for the given store and records the current state
// as the first snapshot, so the very first mutation is undoable.
// maxEntries values below 2 fall back to DefaultMaxEntries.
func New(store *scene.Store, maxEntries int) *History {
	if maxEntries < 2 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		store:   store,
		entries: []*scene.Store{store.Clone()},
		cursor:  0,
		max:     maxEntries,
	}
}

// Record pushes a deep copy of the current store state. If undos have
// moved the cursor off the end, the "future" entries are truncated first -
// standard linear-undo semantics. Beyond the cap the oldest entry is
// evicted. Capture during an active restoration is suppressed so the
// restoration never records itself.
func (h *History) Record() {
	if h.restoring {
		return
	}
	h.entries = h.entries[:h.cursor+1]
	h.entries = append(h.entries, h.store.Clone())
	h.cursor++
	if len(h.entries) > h.max {
		evict := len(h.entries) - h.max
		h.entries = h.entries[evict:]
		h.cursor -= evict
	}
}

// CanUndo reports whether an earlier snapshot exists.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether an undone snapshot can be reapplied.
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

// Restoring reports whether a restoration is in flight. Callers must not
// accept further mutations while this is true.
func (h *History) Restoring() bool { return h.restoring }

// Undo moves one snapshot back and rebuilds the store from it.
// Returns false without touching the store when CanUndo is false.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	h.restore(h.entries[h.cursor])
	return true
}

// Redo reapplies the next snapshot. Returns false when CanRedo is false.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	h.restore(h.entries[h.cursor])
	return true
}

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the index of the snapshot mirroring the current state.
func (h *History) Cursor() int { return h.cursor }

// Max returns the snapshot retention cap.
func (h *History) Max() int { return h.max }

// restore wipes the live store and recreates every node and edge from the
// snapshot. CreateNode keeps provided IDs and tolerates children arriving
// before their parents, so plain map iteration order is fine.
func (h *History) restore(snap *scene.Store) {
	h.restoring = true
	defer func() { h.restoring = false }()

	h.store.Clear()
	for _, n := range snap.Nodes() {
		cp := *n
		if n.Style != nil {
			cp.Style = maps.Clone(n.Style)
		}
		if n.Data != nil {
			cp.Data = maps.Clone(n.Data)
		}
		h.store.CreateNode(cp)
	}
	for _, e := range snap.Edges() {
		h.store.RestoreEdge(*e)
	}
}
