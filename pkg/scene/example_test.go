package scene_test

import (
	"fmt"

	"github.com/nestgraph/nestgraph/pkg/scene"
)

func Example() {
	s := scene.New()

	group := s.CreateNode(scene.Node{ID: "group", Kind: scene.KindContainer,
		Geometry: scene.Geometry{X: 10, Y: 10, W: 400, H: 300}})
	box := s.CreateNode(scene.Node{ID: "box", ParentID: group.ID,
		Geometry: scene.Geometry{X: 20, Y: 20, W: 80, H: 40}})
	free := s.CreateNode(scene.Node{ID: "free",
		Geometry: scene.Geometry{X: 500, Y: 50, W: 60, H: 60}})

	// Edges connect nodes regardless of containment depth.
	s.CreateEdge(box.ID, free.ID, scene.RoutingOrthogonal)

	fmt.Println("children of group:", s.Children(group.ID))
	fmt.Println("roots:", s.Roots())
	fmt.Println("edges:", s.EdgeCount())

	// Deleting a container cascades to its subtree and incident edges.
	s.DeleteNode(group.ID)
	fmt.Println("after delete:", s.NodeCount(), "nodes,", s.EdgeCount(), "edges")

	// Output:
	// children of group: [box]
	// roots: [free group]
	// edges: 1
	// after delete: 1 nodes, 0 edges
}
