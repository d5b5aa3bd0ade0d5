package document

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nestgraph/nestgraph/pkg/errors"
)

// FileStore persists documents as JSON files in a directory, one file per
// document. Used by the CLI.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir. The directory is
// created if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create store directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Load retrieves a document by name.
func (s *FileStore) Load(ctx context.Context, name string) (*Document, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeDocumentNotFound, "document %q does not exist", name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read document %q", name)
	}
	return Unmarshal(data)
}

// Save writes the document to disk. The write goes through a temp file and
// rename so a crash never leaves a truncated document behind.
func (s *FileStore) Save(ctx context.Context, d *Document) error {
	if d.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document name is required")
	}
	d.UpdatedAt = time.Now().UTC()
	data, err := Marshal(d)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".doc-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save document %q", d.Name)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStorage, err, "save document %q", d.Name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStorage, err, "save document %q", d.Name)
	}
	if err := os.Rename(tmp.Name(), s.path(d.Name)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStorage, err, "save document %q", d.Name)
	}
	return nil
}

// List returns the names of all stored documents, sorted.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list documents")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a document file.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete document %q", name)
	}
	return nil
}

// Close does nothing for the file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(name string) string {
	// Document names become file names directly; path separators are
	// stripped so a name can never escape the store directory.
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return filepath.Join(s.dir, safe+".json")
}

var _ Store = (*FileStore)(nil)
