// Package document provides the canonical serialization format for scenes
// and pluggable persistence backends.
//
// A Document is the flat, order-stable representation of a scene graph:
// node and edge lists sorted by ID, with containment encoded purely through
// parent references. The format is human-readable and designed for
// round-trip fidelity: loading and re-saving reproduces the scene content
// exactly, with only the UpdatedAt stamp changing between saves.
//
// Persistence is abstracted behind the Store interface with four backends:
// in-memory (tests, ephemeral sessions), files (CLI), MongoDB, and Redis
// (shared server deployments).
package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nestgraph/nestgraph/pkg/errors"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// Format constants for on-disk encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the serialization format for a scene graph.
type Document struct {
	Name      string       `json:"name" bson:"_id" yaml:"name"`
	Nodes     []scene.Node `json:"nodes" bson:"nodes" yaml:"nodes"`
	Edges     []scene.Edge `json:"edges" bson:"edges" yaml:"edges"`
	UpdatedAt time.Time    `json:"updated_at,omitempty" bson:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// FromStore captures a store's contents as a document. Nodes and edges are
// sorted by ID for deterministic output.
func FromStore(name string, s *scene.Store) *Document {
	doc := &Document{
		Name:  name,
		Nodes: make([]scene.Node, 0, s.NodeCount()),
		Edges: make([]scene.Edge, 0, s.EdgeCount()),
	}
	for _, n := range s.Nodes() {
		doc.Nodes = append(doc.Nodes, *n)
	}
	for _, e := range s.Edges() {
		doc.Edges = append(doc.Edges, *e)
	}
	return doc
}

// ToStore rebuilds a live store from the document. Parent references are
// resolved after all nodes exist, so serialization order never matters.
func (d *Document) ToStore() *scene.Store {
	s := scene.New()
	for _, n := range d.Nodes {
		s.CreateNode(n)
	}
	for _, e := range d.Edges {
		s.RestoreEdge(e)
	}
	return s
}

// Marshal encodes the document as indented JSON.
func Marshal(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal document %q", d.Name)
	}
	return data, nil
}

// Unmarshal decodes a JSON document.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse document")
	}
	return &d, nil
}

// Write encodes the document to a writer in the given format.
func Write(d *Document, w io.Writer, format string) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode document %q", d.Name)
		}
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(d); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode document %q", d.Name)
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported document format: %s", format)
	}
	return nil
}

// Read decodes a document from a reader in the given format.
func Read(r io.Reader, format string) (*Document, error) {
	var d Document
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse document")
		}
	case FormatYAML, "yml":
		if err := yaml.NewDecoder(r).Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse document")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported document format: %s", format)
	}
	return &d, nil
}

// WriteFile saves a document to disk, choosing the encoding from the file
// extension (.json, .yaml, .yml).
func WriteFile(d *Document, path string) error {
	format, err := formatForPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create %s", path)
	}
	defer f.Close()
	return Write(d, f, format)
}

// ReadFile loads a document from disk, choosing the encoding from the file
// extension.
func ReadFile(path string) (*Document, error) {
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeDocumentNotFound, err, "document file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s", path)
	}
	defer f.Close()

	d, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return d, nil
}

func formatForPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "unsupported document extension: %s", ext)
	}
}
