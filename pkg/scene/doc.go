// Package scene implements the flat node/edge store underlying a nested
// diagram surface.
//
// Nodes form an implicit containment tree encoded solely through ParentID
// references: the store itself is a pair of flat maps, never a materialized
// tree. This lets edges connect nodes at arbitrary, unequal nesting depths
// without traversing nested structures. Every geometry value is relative to
// the node's immediate parent; resolving world coordinates is the job of
// the geometry package.
//
// # Containment
//
// A node with an empty ParentID is a root, positioned in the canvas world
// frame. Containment depth is unbounded. The store maintains a reverse
// index from parent ID to child ID set so child lookups do not scan the
// whole node map. Cycle freedom is not checked here - it is guaranteed by
// the docking package, which never offers a node's own subtree as a drop
// target.
//
// # Failure modes
//
// Mutating operations on missing IDs are silent no-ops, never errors.
// Callers that need to distinguish "not found" from "applied" check
// existence with [Store.Node] or [Store.Edge] first. Duplicate edge
// creation (same unordered endpoint pair) and self-loop creation return
// nil rather than failing.
//
// # Usage
//
//	s := scene.New()
//	root := s.CreateNode(scene.Node{Kind: scene.KindContainer, Geometry: scene.Geometry{X: 10, Y: 10, W: 400, H: 300}})
//	box := s.CreateNode(scene.Node{ParentID: root.ID, Kind: scene.KindShape, Geometry: scene.Geometry{X: 20, Y: 20, W: 80, H: 40}})
//	s.CreateEdge(root.ID, box.ID, scene.RoutingStraight)
//
// Store is not safe for concurrent use without external synchronization.
package scene
