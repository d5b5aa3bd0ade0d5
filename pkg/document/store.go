package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nestgraph/nestgraph/pkg/errors"
)

// Store persists named documents. Implementations must be safe for
// concurrent use.
type Store interface {
	// Load retrieves a document by name. Returns a DOCUMENT_NOT_FOUND
	// coded error when it does not exist.
	Load(ctx context.Context, name string) (*Document, error)

	// Save stores a document under its name, overwriting any previous
	// version. The document's UpdatedAt is stamped on success.
	Save(ctx context.Context, d *Document) error

	// List returns the names of all stored documents, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a document. Deleting a missing document is not an
	// error.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources.
	Close() error
}

// MemoryStore keeps documents in process memory. Used in tests and for
// ephemeral single-process deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Load retrieves a document by name.
func (s *MemoryStore) Load(ctx context.Context, name string) (*Document, error) {
	s.mu.RLock()
	data, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeDocumentNotFound, "document %q does not exist", name)
	}
	return Unmarshal(data)
}

// Save stores a serialized copy of the document, so later mutations of the
// caller's value never leak into the store.
func (s *MemoryStore) Save(ctx context.Context, d *Document) error {
	if d.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document name is required")
	}
	d.UpdatedAt = time.Now().UTC()
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[d.Name] = data
	s.mu.Unlock()
	return nil
}

// List returns all stored document names, sorted.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a document by name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	delete(s.docs, name)
	s.mu.Unlock()
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
