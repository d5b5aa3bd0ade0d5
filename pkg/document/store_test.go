package document

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nestgraph/nestgraph/pkg/errors"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// storeContract runs the behavior shared by every Store implementation.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "ghost"); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("Load missing: got %v, want DOCUMENT_NOT_FOUND", err)
	}

	doc := FromStore("alpha", buildScene(t))
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.UpdatedAt.IsZero() {
		t.Error("Save should stamp UpdatedAt")
	}

	got, err := s.Load(ctx, "alpha")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Nodes) != 3 || len(got.Edges) != 1 {
		t.Errorf("loaded %d nodes, %d edges", len(got.Nodes), len(got.Edges))
	}

	// Overwrite keeps one copy per name.
	doc.Nodes = doc.Nodes[:1]
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, _ = s.Load(ctx, "alpha")
	if len(got.Nodes) != 1 {
		t.Errorf("overwrite not applied: %d nodes", len(got.Nodes))
	}

	if err := s.Save(ctx, &Document{Name: "beta"}); err != nil {
		t.Fatalf("Save beta: %v", err)
	}
	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Errorf("List = %v, want [alpha beta]", names)
	}

	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Errorf("repeat Delete should be silent: %v", err)
	}
	if _, err := s.Load(ctx, "alpha"); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("Load after delete: got %v", err)
	}

	if err := s.Save(ctx, &Document{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save unnamed: got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	storeContract(t, s)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc := &Document{Name: "iso", Nodes: []scene.Node{{ID: "a", Geometry: scene.Geometry{W: 10, H: 10}}}}
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc.Nodes[0].Geometry.W = 99

	got, err := s.Load(ctx, "iso")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Nodes[0].Geometry.W != 10 {
		t.Errorf("stored document mutated: W = %v", got.Nodes[0].Geometry.W)
	}
}

func TestFileStoreSanitizesNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := s.Save(ctx, &Document{Name: "../escape"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".._escape.json")); err != nil {
		t.Errorf("sanitized file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json")); err == nil {
		t.Error("document escaped the store directory")
	}
}
