package scene

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Store owns the flat node and edge collections for one diagram surface.
// It is the sole owner of node/edge lifetime; all other packages hold IDs
// and re-derive anything positional on demand.
//
// The zero value is not usable - use New. Store is not safe for concurrent
// use without external synchronization.
type Store struct {
	nodes    map[string]*Node
	edges    map[string]*Edge
	children map[string]map[string]struct{} // parentID -> child ID set
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		children: make(map[string]map[string]struct{}),
	}
}

// CreateNode adds a node and returns a pointer to the stored copy.
// An empty ID is replaced with a fresh unique one; a provided ID is kept
// (history restoration relies on this). A provided ID that already exists
// returns the existing node unchanged. Negative width or height are
// clamped to zero. An unknown Kind defaults to KindShape.
func (s *Store) CreateNode(n Node) *Node {
	if n.ID == "" {
		n.ID = uuid.NewString()
	} else if existing, ok := s.nodes[n.ID]; ok {
		return existing
	}
	if n.Kind != KindContainer && n.Kind != KindShape {
		n.Kind = KindShape
	}
	n.Geometry = clampSize(n.Geometry)
	node := &n
	s.nodes[node.ID] = node
	s.indexChild(node.ParentID, node.ID)
	return node
}

// Node returns the node with the given ID and true, or nil and false.
// The pointer refers to the stored node; geometry and parent changes must
// go through UpdateNode, SetGeometry, or Reparent so indexes stay correct.
func (s *Store) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// UpdateNode applies a partial update to a node. Missing IDs are a silent
// no-op. Geometry, when present, replaces the whole rectangle with sizes
// clamped non-negative; Style and Data entries are merged key by key.
func (s *Store) UpdateNode(id string, u NodeUpdate) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	if u.Kind != nil {
		n.Kind = *u.Kind
	}
	if u.Geometry != nil {
		n.Geometry = clampSize(*u.Geometry)
	}
	if len(u.Style) > 0 {
		if n.Style == nil {
			n.Style = make(map[string]string, len(u.Style))
		}
		maps.Copy(n.Style, u.Style)
	}
	if len(u.Data) > 0 {
		if n.Data == nil {
			n.Data = make(map[string]any, len(u.Data))
		}
		maps.Copy(n.Data, u.Data)
	}
}

// SetGeometry replaces a node's rectangle. Missing IDs are a silent no-op.
func (s *Store) SetGeometry(id string, g Geometry) {
	if n, ok := s.nodes[id]; ok {
		n.Geometry = clampSize(g)
	}
}

// Reparent changes a node's parent reference and nothing else: the caller
// is responsible for re-expressing geometry in the new frame (the docking
// package does both atomically). A missing node ID is a silent no-op, and
// so is a non-empty newParentID that does not exist - the store never
// creates dangling parent references.
func (s *Store) Reparent(id, newParentID string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	if newParentID != "" {
		if _, ok := s.nodes[newParentID]; !ok {
			return
		}
	}
	s.unindexChild(n.ParentID, id)
	n.ParentID = newParentID
	s.indexChild(newParentID, id)
}

// DeleteNode removes a node, every descendant, and every edge touching any
// removed node. Missing IDs are a silent no-op.
func (s *Store) DeleteNode(id string) {
	if _, ok := s.nodes[id]; !ok {
		return
	}
	doomed := append([]string{id}, s.Descendants(id)...)
	for _, nodeID := range doomed {
		n := s.nodes[nodeID]
		s.unindexChild(n.ParentID, nodeID)
		delete(s.children, nodeID)
		delete(s.nodes, nodeID)
		for edgeID, e := range s.edges {
			if e.Touches(nodeID) {
				delete(s.edges, edgeID)
			}
		}
	}
}

// CreateEdge connects two existing nodes and returns the stored edge.
// Returns nil without mutating when the endpoints are equal, when either
// endpoint does not exist, or when an edge already connects the unordered
// pair. An empty routing style gets DefaultRouting.
func (s *Store) CreateEdge(sourceID, targetID, routing string) *Edge {
	if sourceID == targetID {
		return nil
	}
	if _, ok := s.nodes[sourceID]; !ok {
		return nil
	}
	if _, ok := s.nodes[targetID]; !ok {
		return nil
	}
	if _, ok := s.EdgeBetween(sourceID, targetID); ok {
		return nil
	}
	if routing == "" {
		routing = DefaultRouting
	}
	e := &Edge{
		ID:       uuid.NewString(),
		SourceID: sourceID,
		TargetID: targetID,
		Routing:  routing,
	}
	s.edges[e.ID] = e
	return e
}

// RestoreEdge re-adds an edge preserving its original ID, applying the same
// endpoint and duplicate checks as CreateEdge. Used by history restoration.
func (s *Store) RestoreEdge(e Edge) *Edge {
	if e.ID == "" {
		return s.CreateEdge(e.SourceID, e.TargetID, e.Routing)
	}
	if _, ok := s.edges[e.ID]; ok {
		return nil
	}
	if e.SourceID == e.TargetID {
		return nil
	}
	if _, ok := s.nodes[e.SourceID]; !ok {
		return nil
	}
	if _, ok := s.nodes[e.TargetID]; !ok {
		return nil
	}
	if _, ok := s.EdgeBetween(e.SourceID, e.TargetID); ok {
		return nil
	}
	if e.Routing == "" {
		e.Routing = DefaultRouting
	}
	edge := &e
	s.edges[edge.ID] = edge
	return edge
}

// Edge returns the edge with the given ID and true, or nil and false.
func (s *Store) Edge(id string) (*Edge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// EdgeBetween returns the edge connecting the unordered pair {a, b}, if any.
func (s *Store) EdgeBetween(a, b string) (*Edge, bool) {
	for _, e := range s.edges {
		if (e.SourceID == a && e.TargetID == b) || (e.SourceID == b && e.TargetID == a) {
			return e, true
		}
	}
	return nil, false
}

// DeleteEdge removes an edge. Missing IDs are a silent no-op.
func (s *Store) DeleteEdge(id string) {
	delete(s.edges, id)
}

// UpdateEdgeRouting changes an edge's routing style. Missing IDs are a
// silent no-op; an empty style resets to DefaultRouting.
func (s *Store) UpdateEdgeRouting(id, routing string) {
	e, ok := s.edges[id]
	if !ok {
		return
	}
	if routing == "" {
		routing = DefaultRouting
	}
	e.Routing = routing
}

// Clear empties both collections atomically from the caller's point of view.
func (s *Store) Clear() {
	s.nodes = make(map[string]*Node)
	s.edges = make(map[string]*Edge)
	s.children = make(map[string]map[string]struct{})
}

// Nodes returns all nodes sorted by ID for deterministic iteration.
// The slice is fresh but the pointers refer to the stored nodes.
func (s *Store) Nodes() []*Node {
	nodes := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return nodes
}

// Edges returns all edges sorted by ID for deterministic iteration.
func (s *Store) Edges() []*Edge {
	edges := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, func(a, b *Edge) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return edges
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// Children returns the IDs of a node's direct children in sorted order.
// Returns nil when the node has none. Passing "" lists root nodes.
func (s *Store) Children(parentID string) []string {
	set := s.children[parentID]
	if len(set) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}

// Descendants returns every node below the given one, depth-first, with
// children visited in sorted order. Returns nil for leaves and missing IDs.
func (s *Store) Descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(parent string) {
		for _, child := range s.Children(parent) {
			out = append(out, child)
			walk(child)
		}
	}
	walk(id)
	return out
}

// Roots returns the IDs of all nodes without a parent, in sorted order.
func (s *Store) Roots() []string {
	var out []string
	for id, n := range s.nodes {
		if n.ParentID == "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy of the store. Node style/data maps and all
// indexes are copied, so mutations on either side are invisible to the
// other. History snapshots are built on this.
func (s *Store) Clone() *Store {
	c := New()
	for id, n := range s.nodes {
		cp := *n
		if n.Style != nil {
			cp.Style = maps.Clone(n.Style)
		}
		if n.Data != nil {
			cp.Data = maps.Clone(n.Data)
		}
		c.nodes[id] = &cp
		c.indexChild(cp.ParentID, id)
	}
	for id, e := range s.edges {
		cp := *e
		c.edges[id] = &cp
	}
	return c
}

func (s *Store) indexChild(parentID, childID string) {
	set, ok := s.children[parentID]
	if !ok {
		set = make(map[string]struct{})
		s.children[parentID] = set
	}
	set[childID] = struct{}{}
}

func (s *Store) unindexChild(parentID, childID string) {
	if set, ok := s.children[parentID]; ok {
		delete(set, childID)
		if len(set) == 0 {
			delete(s.children, parentID)
		}
	}
}

func clampSize(g Geometry) Geometry {
	if g.W < 0 {
		g.W = 0
	}
	if g.H < 0 {
		g.H = 0
	}
	return g
}
