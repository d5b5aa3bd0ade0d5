// Package engine provides the top-level facade over the scene graph.
//
// It wires the scene store together with geometry resolution, docking,
// resize sessions, edge routing, and undo/redo history behind a single
// mutex-guarded API that can be shared by the CLI, the HTTP server, and
// tests. The underlying packages are single-threaded by design; the
// Engine is the one place where locking happens.
//
// # Usage
//
// Create an engine and drive it with commands:
//
//	eng := engine.New(engine.Options{Logger: logger})
//	defer eng.Close()
//
//	a, _ := eng.CreateNode(scene.Node{Kind: scene.KindContainer, Geometry: scene.Geometry{W: 400, H: 300}})
//	b, _ := eng.CreateNode(scene.Node{ParentID: a.ID, Geometry: scene.Geometry{X: 10, Y: 10, W: 80, H: 40}})
//	eng.CreateEdge(a.ID, b.ID, scene.RoutingOrthogonal)
//
//	eng.Undo()
//	eng.Redo()
//
// Interactive gestures (drag, resize) group their intermediate states into
// a single history entry via batch boundaries:
//
//	eng.BeginBatch()
//	eng.SetGeometry(b.ID, g1)
//	eng.SetGeometry(b.ID, g2)
//	eng.EndBatch() // one undo step
package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nestgraph/nestgraph/pkg/docking"
	"github.com/nestgraph/nestgraph/pkg/errors"
	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/history"
	"github.com/nestgraph/nestgraph/pkg/resize"
	"github.com/nestgraph/nestgraph/pkg/routing"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// Options configures a new Engine. The zero value is usable; unset fields
// fall back to package defaults.
type Options struct {
	// MaxHistory caps the number of retained history snapshots.
	// Values below 2 fall back to history.DefaultMaxEntries.
	MaxHistory int

	// QuietPeriod is the debounce window for automatic history capture.
	// Zero falls back to history.DefaultQuietPeriod.
	QuietPeriod time.Duration

	// Logger receives structured engine events. Nil falls back to
	// log.Default().
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.MaxHistory < 2 {
		o.MaxHistory = history.DefaultMaxEntries
	}
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = history.DefaultQuietPeriod
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Engine owns a scene store and the resolvers built around it.
// All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	store  *scene.Store
	geo    *geometry.Resolver
	dock   *docking.Resolver
	router *routing.Router
	hist   *history.History
	rec    *history.Recorder
	resize *resize.Session
	logger *log.Logger
}

// New creates an engine with an empty scene.
func New(opts Options) *Engine {
	opts.setDefaults()

	store := scene.New()
	e := &Engine{
		store:  store,
		geo:    geometry.NewResolver(store),
		dock:   docking.NewResolver(store),
		router: routing.NewRouter(store),
		hist:   history.New(store, opts.MaxHistory),
		logger: opts.Logger,
	}
	// The capture callback fires on the recorder's timer goroutine and
	// must take the engine lock itself.
	e.rec = history.NewRecorder(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.hist.Record()
	}, opts.QuietPeriod)
	return e
}

// Load replaces the engine's scene with the contents of another store and
// starts a fresh history rooted at the loaded state.
func (e *Engine) Load(src *scene.Store) {
	e.rec.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Clear()
	for _, n := range src.Nodes() {
		e.store.CreateNode(*n)
	}
	for _, ed := range src.Edges() {
		e.store.RestoreEdge(*ed)
	}
	e.hist = history.New(e.store, e.hist.Max())
	e.logger.Debug("loaded scene", "nodes", e.store.NodeCount(), "edges", e.store.EdgeCount())
}

// Close releases the engine's recorder. Pending debounced captures are
// discarded; call Flush first to keep them.
func (e *Engine) Close() {
	e.rec.Close()
}

// =============================================================================
// Commands
// =============================================================================

// CreateNode adds a node to the scene. A blank ID is assigned a fresh UUID.
func (e *Engine) CreateNode(n scene.Node) (*scene.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return nil, err
	}

	created := e.store.CreateNode(n)
	e.logger.Debug("created node", "id", created.ID, "kind", created.Kind, "parent", created.ParentID)
	e.rec.Touch()
	return created, nil
}

// UpdateNode applies a partial update to an existing node.
func (e *Engine) UpdateNode(id string, upd scene.NodeUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if _, ok := e.store.Node(id); !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}

	e.store.UpdateNode(id, upd)
	e.rec.Touch()
	return nil
}

// SetGeometry replaces a node's parent-relative frame.
func (e *Engine) SetGeometry(id string, g scene.Geometry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if _, ok := e.store.Node(id); !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}

	e.store.SetGeometry(id, g)
	e.rec.Touch()
	return nil
}

// DeleteNode removes a node, its descendants, and all incident edges.
func (e *Engine) DeleteNode(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if _, ok := e.store.Node(id); !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}

	e.store.DeleteNode(id)
	e.logger.Debug("deleted node", "id", id)
	e.rec.Touch()
	return nil
}

// CreateEdge connects two nodes. Self-loops, missing endpoints, and
// unordered duplicates are rejected.
func (e *Engine) CreateEdge(sourceID, targetID, style string) (*scene.Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return nil, err
	}

	edge := e.store.CreateEdge(sourceID, targetID, style)
	if edge == nil {
		return nil, errors.New(errors.ErrCodeInvalidTopology,
			"cannot connect %q to %q", sourceID, targetID)
	}
	e.logger.Debug("created edge", "id", edge.ID, "source", sourceID, "target", targetID)
	e.rec.Touch()
	return edge, nil
}

// DeleteEdge removes an edge by ID.
func (e *Engine) DeleteEdge(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if _, ok := e.store.Edge(id); !ok {
		return errors.New(errors.ErrCodeEdgeNotFound, "edge %q does not exist", id)
	}

	e.store.DeleteEdge(id)
	e.rec.Touch()
	return nil
}

// UpdateEdgeRouting changes an edge's path style.
func (e *Engine) UpdateEdgeRouting(id, style string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if _, ok := e.store.Edge(id); !ok {
		return errors.New(errors.ErrCodeEdgeNotFound, "edge %q does not exist", id)
	}

	e.store.UpdateEdgeRouting(id, style)
	e.rec.Touch()
	return nil
}

// =============================================================================
// Docking
// =============================================================================

// BeginDrag starts a drag gesture for the given node. Intermediate moves
// are grouped into a single history entry until Drop or CancelDrag.
func (e *Engine) BeginDrag(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if !e.dock.BeginDrag(nodeID) {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", nodeID)
	}
	e.rec.BeginBatch()
	return nil
}

// DragMove updates the dragged node's frame and recomputes the potential
// drop target. Returns the current candidate container ID ("" for root).
func (e *Engine) DragMove(g scene.Geometry) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return "", err
	}
	id := e.dock.DraggedID()
	if id == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "no drag in progress")
	}
	e.store.SetGeometry(id, g)
	e.rec.Touch()
	return e.dock.UpdatePotentialTarget(), nil
}

// Drop commits the drag gesture, reparenting the node into the current
// candidate container while preserving its absolute position.
//
// EndBatch may run the capture callback, which takes e.mu itself, so it
// must happen after the lock is released.
func (e *Engine) Drop() error {
	e.mu.Lock()
	if err := e.checkWritable(); err != nil {
		e.mu.Unlock()
		return err
	}
	id := e.dock.DraggedID()
	before := ""
	if n, ok := e.store.Node(id); ok {
		before = n.ParentID
	}
	e.dock.Drop()
	if n, ok := e.store.Node(id); ok && n.ParentID != before {
		e.rec.Touch()
	}
	e.mu.Unlock()

	e.rec.EndBatch()
	return nil
}

// CancelDrag abandons the drag gesture without reparenting.
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	e.dock.CancelDrag()
	e.mu.Unlock()

	// Moves already applied stay in the store, so a dirty batch still
	// captures here. The callback takes e.mu; keep it outside the lock.
	e.rec.EndBatch()
}

// CommitDocking reparents a node into a container directly, outside of a
// drag gesture. The node's absolute position is preserved.
func (e *Engine) CommitDocking(nodeID, containerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	e.dock.CommitDocking(nodeID, containerID)
	e.rec.Touch()
	return nil
}

// Undock moves a node to the root frame, preserving absolute position.
func (e *Engine) Undock(nodeID string) error {
	return e.CommitDocking(nodeID, "")
}

// =============================================================================
// Resize
// =============================================================================

// ResizeStart begins a proportional resize gesture on the given node.
// Descendant frames are snapshotted so repeated moves scale from the
// original geometry rather than compounding.
func (e *Engine) ResizeStart(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	s := resize.Start(e.store, nodeID)
	if s == nil {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", nodeID)
	}
	e.resize = s
	e.rec.BeginBatch()
	return nil
}

// ResizeMove applies a new size to the node under resize and cascades the
// scale to its descendants.
func (e *Engine) ResizeMove(newW, newH float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkWritable(); err != nil {
		return err
	}
	if e.resize == nil || !e.resize.Active() {
		return errors.New(errors.ErrCodeInvalidInput, "no resize in progress")
	}
	e.resize.Move(newW, newH)
	e.rec.Touch()
	return nil
}

// ResizeEnd finishes the resize gesture and records one history entry.
// The capture callback takes e.mu, so EndBatch runs outside the lock.
func (e *Engine) ResizeEnd() {
	e.mu.Lock()
	active := e.resize != nil
	if active {
		e.resize.End()
		e.resize = nil
	}
	e.mu.Unlock()

	if active {
		e.rec.EndBatch()
	}
}

// =============================================================================
// History
// =============================================================================

// BeginBatch opens an explicit history batch. Mutations inside the batch
// collapse into a single undo step captured at EndBatch.
func (e *Engine) BeginBatch() {
	e.rec.BeginBatch()
}

// EndBatch closes the innermost batch.
func (e *Engine) EndBatch() {
	e.rec.EndBatch()
}

// Flush captures any pending debounced history entry immediately.
func (e *Engine) Flush() {
	e.rec.Flush()
}

// Undo steps the scene back one history entry. Returns false when there is
// nothing to undo.
func (e *Engine) Undo() bool {
	e.rec.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	ok := e.hist.Undo()
	if ok {
		e.logger.Debug("undo", "cursor", e.hist.Cursor())
	}
	return ok
}

// Redo steps the scene forward one history entry. Returns false when there
// is nothing to redo.
func (e *Engine) Redo() bool {
	e.rec.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	ok := e.hist.Redo()
	if ok {
		e.logger.Debug("redo", "cursor", e.hist.Cursor())
	}
	return ok
}

// CanUndo reports whether an undo step is available.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo()
}

// CanRedo reports whether a redo step is available.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanRedo()
}

func (e *Engine) checkWritable() error {
	if e.hist.Restoring() {
		return errors.New(errors.ErrCodeRestoreInProgress, "history restore in progress")
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// Node returns a node by ID.
func (e *Engine) Node(id string) (*scene.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Node(id)
}

// Edge returns an edge by ID.
func (e *Engine) Edge(id string) (*scene.Edge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Edge(id)
}

// Nodes returns all nodes sorted by ID.
func (e *Engine) Nodes() []*scene.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Nodes()
}

// Edges returns all edges sorted by ID.
func (e *Engine) Edges() []*scene.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Edges()
}

// Children returns the direct children of a node, or the root nodes for "".
func (e *Engine) Children(parentID string) []*scene.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := e.store.Children(parentID)
	out := make([]*scene.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := e.store.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// AbsolutePosition resolves a node's world-frame origin.
func (e *Engine) AbsolutePosition(nodeID string) (geometry.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geo.AbsolutePosition(nodeID)
}

// AbsoluteBounds resolves a node's world-frame rectangle.
func (e *Engine) AbsoluteBounds(nodeID string) (geometry.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geo.AbsoluteBounds(nodeID)
}

// FindContainerAt returns the innermost container whose bounds contain the
// given world point, excluding excludeID and its subtree.
func (e *Engine) FindContainerAt(p geometry.Point, excludeID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dock.FindContainerAt(p, excludeID)
}

// EdgePath computes the rendered path and anchors for an edge by ID.
func (e *Engine) EdgePath(edgeID string) (routing.Path, routing.Anchor, routing.Anchor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	edge, ok := e.store.Edge(edgeID)
	if !ok {
		return routing.Path{}, routing.Anchor{}, routing.Anchor{}, false
	}
	return e.router.EdgePath(edge)
}

// Snapshot returns a deep copy of the current scene, decoupled from any
// further engine mutations. Exporters and persistence use this to work
// outside the engine lock.
func (e *Engine) Snapshot() *scene.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Clone()
}

// Stats summarizes the current scene for logging and the API.
type Stats struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	History int `json:"history"`
}

// Stats returns current scene counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Nodes:   e.store.NodeCount(),
		Edges:   e.store.EdgeCount(),
		History: e.hist.Len(),
	}
}
