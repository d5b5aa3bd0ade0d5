package docking

import (
	"math"
	"testing"

	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// buildNested creates two root containers, outer/inner nesting, and a shape:
//
//	A (0,0 400x400) ⊃ A1 (50,50 200x200)
//	B (500,0 300x300)
//	box (20,20 40x40) under A1
func buildNested(t *testing.T) (s *scene.Store, a, a1, b, box *scene.Node) {
	t.Helper()
	s = scene.New()
	a = s.CreateNode(scene.Node{ID: "A", Kind: scene.KindContainer, Geometry: scene.Geometry{X: 0, Y: 0, W: 400, H: 400}})
	a1 = s.CreateNode(scene.Node{ID: "A1", ParentID: "A", Kind: scene.KindContainer, Geometry: scene.Geometry{X: 50, Y: 50, W: 200, H: 200}})
	b = s.CreateNode(scene.Node{ID: "B", Kind: scene.KindContainer, Geometry: scene.Geometry{X: 500, Y: 0, W: 300, H: 300}})
	box = s.CreateNode(scene.Node{ID: "box", ParentID: "A1", Kind: scene.KindShape, Geometry: scene.Geometry{X: 20, Y: 20, W: 40, H: 40}})
	return s, a, a1, b, box
}

func TestFindContainerAt(t *testing.T) {
	tests := []struct {
		name    string
		point   geometry.Point
		exclude string
		want    string
	}{
		{name: "InnermostWins", point: geometry.Point{X: 100, Y: 100}, exclude: "box", want: "A1"},
		{name: "OuterOnly", point: geometry.Point{X: 10, Y: 380}, exclude: "box", want: "A"},
		{name: "OtherRoot", point: geometry.Point{X: 600, Y: 100}, exclude: "box", want: "B"},
		{name: "EmptySpace", point: geometry.Point{X: 450, Y: 450}, exclude: "box", want: ""},
		{name: "ExcludesSelf", point: geometry.Point{X: 100, Y: 100}, exclude: "A1", want: "A"},
		{name: "ExcludesSubtree", point: geometry.Point{X: 100, Y: 100}, exclude: "A", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _, _ := buildNested(t)
			r := NewResolver(s)
			if got := r.FindContainerAt(tt.point, tt.exclude); got != tt.want {
				t.Errorf("FindContainerAt(%+v, %q) = %q, want %q", tt.point, tt.exclude, got, tt.want)
			}
		})
	}
}

// Cycle freedom: no candidate parent inside the dragged node's subtree is
// ever returned, for any probe point.
func TestFindContainerAtNeverReturnsSubtree(t *testing.T) {
	s, a, a1, _, _ := buildNested(t)
	r := NewResolver(s)

	probes := []geometry.Point{
		{X: 100, Y: 100}, {X: 60, Y: 60}, {X: 200, Y: 200}, {X: 0, Y: 0},
	}
	for _, p := range probes {
		got := r.FindContainerAt(p, a.ID)
		if got == a.ID || got == a1.ID {
			t.Errorf("probe %+v returned %q from the excluded subtree", p, got)
		}
	}
}

func TestCommitDockingPreservesAbsolutePosition(t *testing.T) {
	s, _, _, b, box := buildNested(t)
	r := NewResolver(s)
	geo := geometry.NewResolver(s)

	before, _ := geo.AbsolutePosition(box.ID)
	r.CommitDocking(box.ID, b.ID)
	after, _ := geo.AbsolutePosition(box.ID)

	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Errorf("absolute moved: %+v -> %+v", before, after)
	}
	if box.ParentID != b.ID {
		t.Errorf("parent = %q, want %q", box.ParentID, b.ID)
	}
	// Relative frame actually changed: absolute {70,70} minus B's {500,0}.
	if math.Abs(box.Geometry.X-(-430)) > 1e-9 || math.Abs(box.Geometry.Y-70) > 1e-9 {
		t.Errorf("relative = {%v %v}, want {-430 70}", box.Geometry.X, box.Geometry.Y)
	}
}

// Round-trip docking: dock into B then back into A1 restores the original
// absolute position within floating-point tolerance.
func TestRoundTripDocking(t *testing.T) {
	s, _, a1, b, box := buildNested(t)
	r := NewResolver(s)
	geo := geometry.NewResolver(s)

	orig, _ := geo.AbsolutePosition(box.ID)
	r.CommitDocking(box.ID, b.ID)
	r.CommitDocking(box.ID, a1.ID)
	back, _ := geo.AbsolutePosition(box.ID)

	if math.Abs(orig.X-back.X) > 1e-9 || math.Abs(orig.Y-back.Y) > 1e-9 {
		t.Errorf("round trip drifted: %+v -> %+v", orig, back)
	}
	if box.ParentID != a1.ID {
		t.Errorf("parent = %q, want %q", box.ParentID, a1.ID)
	}
}

func TestCommitDockingNoOps(t *testing.T) {
	tests := []struct {
		name   string
		node   string
		target string
	}{
		{name: "MissingNode", node: "ghost", target: "B"},
		{name: "SameParent", node: "box", target: "A1"},
		{name: "MissingTarget", node: "box", target: "ghost"},
		{name: "ShapeTarget", node: "A1", target: "box"},
		{name: "SelfTarget", node: "A1", target: "A1"},
		{name: "DescendantTarget", node: "A", target: "A1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _, _ := buildNested(t)
			r := NewResolver(s)

			var wantParent string
			var wantGeo scene.Geometry
			if n, ok := s.Node(tt.node); ok {
				wantParent = n.ParentID
				wantGeo = n.Geometry
			}

			r.CommitDocking(tt.node, tt.target)

			if n, ok := s.Node(tt.node); ok {
				if n.ParentID != wantParent {
					t.Errorf("parent = %q, want unchanged %q", n.ParentID, wantParent)
				}
				if n.Geometry != wantGeo {
					t.Errorf("geometry = %+v, want unchanged %+v", n.Geometry, wantGeo)
				}
			}
		})
	}
}

func TestUndock(t *testing.T) {
	s, _, _, _, box := buildNested(t)
	r := NewResolver(s)
	geo := geometry.NewResolver(s)

	before, _ := geo.AbsolutePosition(box.ID)
	r.Undock(box.ID)

	if box.ParentID != "" {
		t.Errorf("parent = %q, want root", box.ParentID)
	}
	after, _ := geo.AbsolutePosition(box.ID)
	if before != after {
		t.Errorf("absolute moved on undock: %+v -> %+v", before, after)
	}
	if box.Geometry.X != before.X || box.Geometry.Y != before.Y {
		t.Error("root-level relative geometry should equal absolute position")
	}
}

func TestDragStateMachine(t *testing.T) {
	s, _, _, b, box := buildNested(t)
	r := NewResolver(s)

	if r.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", r.State())
	}
	if r.UpdatePotentialTarget() != "" {
		t.Error("target outside a drag should be empty")
	}
	if !r.BeginDrag(box.ID) {
		t.Fatal("BeginDrag failed")
	}
	if r.BeginDrag(b.ID) {
		t.Error("second BeginDrag during a drag should be refused")
	}
	if r.State() != StateDragging {
		t.Fatalf("state = %v, want dragging", r.State())
	}

	// Move the dragged node so its center lands inside B, as a pointer-move
	// handler would, then let the resolver pick the target.
	s.SetGeometry(box.ID, scene.Geometry{X: 530, Y: 80, W: 40, H: 40})
	s.Reparent(box.ID, "") // drag visually lifts the node to root level
	if got := r.UpdatePotentialTarget(); got != b.ID {
		t.Fatalf("target = %q, want %q", got, b.ID)
	}

	r.Drop()
	if r.State() != StateIdle {
		t.Errorf("state after drop = %v, want idle", r.State())
	}
	if box.ParentID != b.ID {
		t.Errorf("parent = %q, want %q", box.ParentID, b.ID)
	}
}

func TestCancelDragLeavesStoreUntouched(t *testing.T) {
	s, _, _, _, box := buildNested(t)
	r := NewResolver(s)

	r.BeginDrag(box.ID)
	r.UpdatePotentialTarget()
	r.CancelDrag()

	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
	if box.ParentID != "A1" {
		t.Errorf("parent = %q, want A1", box.ParentID)
	}
}

func TestBeginDragMissingNode(t *testing.T) {
	s, _, _, _, _ := buildNested(t)
	r := NewResolver(s)
	if r.BeginDrag("ghost") {
		t.Error("BeginDrag should refuse a missing node")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v, want idle", r.State())
	}
}
