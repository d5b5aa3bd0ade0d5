package scene

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Node kinds.
const (
	// KindContainer marks a node that can hold other nodes.
	KindContainer = "container"
	// KindShape marks a leaf node that cannot accept children.
	KindShape = "shape"
)

// Routing styles for edges. The routing package interprets these when
// producing connector path geometry; unknown values fall back to
// RoutingStraight.
const (
	RoutingStraight   = "straight"
	RoutingOrthogonal = "orthogonal"
	RoutingCurved     = "curved"
	RoutingBezier     = "bezier"
)

// DefaultRouting is the global default routing style applied when an edge
// is created without one.
const DefaultRouting = RoutingStraight

// Geometry is an axis-aligned rectangle expressed in the local frame of a
// node's parent (or the canvas world frame for root nodes). W and H are
// never negative; minimum-size floors are enforced by mutating operations
// (resize, docking), not by storage.
type Geometry struct {
	X float64 `json:"x" bson:"x" yaml:"x"`
	Y float64 `json:"y" bson:"y" yaml:"y"`
	W float64 `json:"w" bson:"w" yaml:"w"`
	H float64 `json:"h" bson:"h" yaml:"h"`
}

// Node is a single element on the diagram surface.
//
// ParentID encodes containment: an empty string means the node is a root in
// the world frame. Geometry is always relative to the parent's local frame.
// Style holds presentation key-value pairs the engine never interprets;
// Data holds arbitrary caller-owned payload.
type Node struct {
	ID       string            `json:"id" bson:"id" yaml:"id"`
	ParentID string            `json:"parent_id,omitempty" bson:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Kind     string            `json:"kind" bson:"kind" yaml:"kind"`
	Geometry Geometry          `json:"geometry" bson:"geometry" yaml:"geometry"`
	Style    map[string]string `json:"style,omitempty" bson:"style,omitempty" yaml:"style,omitempty"`
	Data     map[string]any    `json:"data,omitempty" bson:"data,omitempty" yaml:"data,omitempty"`
}

// IsContainer reports whether the node can accept docked children.
func (n *Node) IsContainer() bool { return n.Kind == KindContainer }

// IsRoot reports whether the node lives directly in the world frame.
func (n *Node) IsRoot() bool { return n.ParentID == "" }

// Edge is a connection between two nodes, independent of containment depth.
// Endpoints are referenced by ID only; the edge does not care where in the
// containment tree either node sits. At most one edge exists per unordered
// {SourceID, TargetID} pair, and SourceID never equals TargetID.
type Edge struct {
	ID       string `json:"id" bson:"id" yaml:"id"`
	SourceID string `json:"source_id" bson:"source_id" yaml:"source_id"`
	TargetID string `json:"target_id" bson:"target_id" yaml:"target_id"`
	Routing  string `json:"routing,omitempty" bson:"routing,omitempty" yaml:"routing,omitempty"`
}

// Touches reports whether the edge has the given node as either endpoint.
func (e *Edge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// NodeUpdate describes a partial node mutation applied by [Store.UpdateNode].
// Nil fields are left untouched. Geometry replaces the whole rectangle;
// Style and Data entries are shallow-merged key by key.
type NodeUpdate struct {
	Kind     *string
	Geometry *Geometry
	Style    map[string]string
	Data     map[string]any
}
