package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nestgraph/nestgraph/pkg/scene"
)

func inspectScene(t *testing.T) *scene.Store {
	t.Helper()
	s := scene.New()
	s.CreateNode(scene.Node{ID: "box", Kind: scene.KindContainer, Geometry: scene.Geometry{X: 100, Y: 100, W: 200, H: 200}})
	s.CreateNode(scene.Node{ID: "inner", ParentID: "box", Geometry: scene.Geometry{X: 10, Y: 20, W: 40, H: 40}})
	s.CreateNode(scene.Node{ID: "solo", Geometry: scene.Geometry{X: 500, Y: 0, W: 40, H: 40}})
	s.CreateEdge("inner", "solo", scene.RoutingStraight)
	return s
}

func TestNewTreeModelFlattensDepthFirst(t *testing.T) {
	m := NewTreeModel("demo", inspectScene(t))

	var got []string
	var depths []int
	for _, row := range m.Rows {
		got = append(got, row.node.ID)
		depths = append(depths, row.depth)
	}

	want := []string{"box", "inner", "solo"}
	for i, id := range want {
		if i >= len(got) || got[i] != id {
			t.Fatalf("rows = %v, want %v", got, want)
		}
	}
	if depths[0] != 0 || depths[1] != 1 || depths[2] != 0 {
		t.Errorf("depths = %v, want [0 1 0]", depths)
	}
}

func TestTreeModelNavigation(t *testing.T) {
	m := NewTreeModel("demo", inspectScene(t))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(TreeModel)
	if m.Cursor != 1 {
		t.Errorf("cursor after down = %d, want 1", m.Cursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(TreeModel)
	if m.Cursor != 0 {
		t.Errorf("cursor after up = %d, want 0", m.Cursor)
	}

	// Up at the top stays put.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(TreeModel)
	if m.Cursor != 0 {
		t.Errorf("cursor pinned = %d, want 0", m.Cursor)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestTreeModelViewShowsDetail(t *testing.T) {
	m := NewTreeModel("demo", inspectScene(t))
	m.Cursor = 1 // "inner"

	view := m.View()
	for _, want := range []string{"Inspect demo", "inner", "x=10.0", "x=110.0 y=120.0"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTreeModelEmptyScene(t *testing.T) {
	m := NewTreeModel("empty", scene.New())
	if len(m.Rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(m.Rows))
	}
	if !strings.Contains(m.View(), "empty document") {
		t.Error("empty view missing placeholder")
	}
}
