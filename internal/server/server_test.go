package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nestgraph/nestgraph/pkg/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{
		Logger:      log.New(io.Discard),
		QuietPeriod: time.Hour,
	})
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response into out when out is non-nil.
func doJSON(t *testing.T, s *Server, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	var resp struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", nil, &resp)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	return resp.ID
}

func createNode(t *testing.T, s *Server, sessionID string, node map[string]any) string {
	t.Helper()
	var created struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sessionID+"/nodes", node, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create node: %d %s", rec.Code, rec.Body.String())
	}
	return created.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	var got struct {
		ID    string       `json:"id"`
		Stats engine.Stats `json:"stats"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/sessions/"+id, nil, &got)
	if rec.Code != http.StatusOK || got.ID != id {
		t.Fatalf("get session: %d %+v", rec.Code, got)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/sessions/"+id, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete session: %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+id, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted session: %d", rec.Code)
	}
}

func TestCreateSessionWithDocument(t *testing.T) {
	s := newTestServer(t)
	doc := map[string]any{
		"name": "seed",
		"nodes": []map[string]any{
			{"id": "a", "kind": "shape", "geometry": map[string]float64{"x": 1, "y": 2, "w": 30, "h": 30}},
		},
	}
	var resp struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", doc, &resp)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+resp.ID+"/nodes/a/position", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("seeded node missing: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNodeCRUD(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)

	id := createNode(t, s, sid, map[string]any{
		"kind":     "shape",
		"geometry": map[string]float64{"x": 10, "y": 20, "w": 50, "h": 50},
	})

	kind := "container"
	rec := doJSON(t, s, http.MethodPatch, "/api/sessions/"+sid+"/nodes/"+id,
		map[string]any{"kind": kind}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}

	var pos map[string]float64
	doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/nodes/"+id+"/position", nil, &pos)
	if pos["x"] != 10 || pos["y"] != 20 {
		t.Errorf("position = %v", pos)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/sessions/"+sid+"/nodes/"+id, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/sessions/"+sid+"/nodes/"+id, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: %d", rec.Code)
	}
}

func TestEdgeEndpoints(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)
	a := createNode(t, s, sid, map[string]any{"id": "a", "geometry": map[string]float64{"w": 40, "h": 40}})
	b := createNode(t, s, sid, map[string]any{"id": "b", "geometry": map[string]float64{"x": 200, "w": 40, "h": 40}})

	var edge struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/edges",
		map[string]string{"source_id": a, "target_id": b, "routing": "orthogonal"}, &edge)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create edge: %d %s", rec.Code, rec.Body.String())
	}

	// Duplicate (reversed) pairs are rejected.
	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/edges",
		map[string]string{"source_id": b, "target_id": a}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate edge: %d", rec.Code)
	}

	var path struct {
		Style string `json:"style"`
		D     string `json:"d"`
		Source struct {
			Side string `json:"side"`
		} `json:"source"`
	}
	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/edges/"+edge.ID+"/path", nil, &path)
	if rec.Code != http.StatusOK {
		t.Fatalf("edge path: %d", rec.Code)
	}
	if path.Style != "orthogonal" || !strings.HasPrefix(path.D, "M ") {
		t.Errorf("path = %+v", path)
	}
	if path.Source.Side != "right" {
		t.Errorf("source side = %q, want right", path.Source.Side)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/edges/"+edge.ID+"/routing",
		map[string]string{"routing": "bezier"}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update routing: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/sessions/"+sid+"/edges/"+edge.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete edge: %d", rec.Code)
	}
}

func TestDockPreservesAbsolutePosition(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)
	box := createNode(t, s, sid, map[string]any{"id": "box", "kind": "container",
		"geometry": map[string]float64{"x": 100, "y": 100, "w": 300, "h": 300}})
	n := createNode(t, s, sid, map[string]any{"id": "n",
		"geometry": map[string]float64{"x": 150, "y": 150, "w": 40, "h": 40}})

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/nodes/"+n+"/dock",
		map[string]string{"container_id": box}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("dock: %d %s", rec.Code, rec.Body.String())
	}

	var pos map[string]float64
	doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/nodes/"+n+"/position", nil, &pos)
	if pos["x"] != 150 || pos["y"] != 150 {
		t.Errorf("absolute after dock = %v, want 150,150", pos)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/nodes/"+n+"/undock", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("undock: %d", rec.Code)
	}
	doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/nodes/"+n+"/position", nil, &pos)
	if pos["x"] != 150 || pos["y"] != 150 {
		t.Errorf("absolute after undock = %v, want 150,150", pos)
	}
}

func TestFindContainerQuery(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)
	box := createNode(t, s, sid, map[string]any{"id": "box", "kind": "container",
		"geometry": map[string]float64{"x": 0, "y": 0, "w": 200, "h": 200}})

	var resp struct {
		ContainerID string `json:"container_id"`
	}
	doJSON(t, s, http.MethodGet,
		fmt.Sprintf("/api/sessions/%s/containers?x=50&y=50", sid), nil, &resp)
	if resp.ContainerID != box {
		t.Errorf("container = %q, want %q", resp.ContainerID, box)
	}

	doJSON(t, s, http.MethodGet,
		fmt.Sprintf("/api/sessions/%s/containers?x=50&y=50&exclude=%s", sid, box), nil, &resp)
	if resp.ContainerID != "" {
		t.Errorf("excluded container still matched: %q", resp.ContainerID)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/containers", nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing coords: %d", rec.Code)
	}
}

func TestResizeFlow(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)
	p := createNode(t, s, sid, map[string]any{"id": "p", "kind": "container",
		"geometry": map[string]float64{"w": 100, "h": 100}})
	createNode(t, s, sid, map[string]any{"id": "c", "parent_id": "p",
		"geometry": map[string]float64{"x": 10, "y": 10, "w": 40, "h": 40}})

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/nodes/"+p+"/resize/start", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("resize start: %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/resize/move",
		map[string]float64{"w": 200, "h": 200}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("resize move: %d %s", rec.Code, rec.Body.String())
	}
	doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/resize/end", nil, nil)

	var pos map[string]float64
	doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/nodes/c/position", nil, &pos)
	if pos["x"] != 20 || pos["w"] != 80 {
		t.Errorf("child after resize = %v, want x=20 w=80", pos)
	}
}

func TestUndoRedoEndpoints(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)

	var resp struct {
		Applied bool `json:"applied"`
	}
	doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/undo", nil, &resp)
	if resp.Applied {
		t.Error("undo on empty history should not apply")
	}

	createNode(t, s, sid, map[string]any{"id": "a", "geometry": map[string]float64{"w": 30, "h": 30}})
	doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/undo", nil, &resp)
	if !resp.Applied {
		t.Error("undo after create should apply")
	}
	doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/redo", nil, &resp)
	if !resp.Applied {
		t.Error("redo should apply")
	}
}

func TestExportFormats(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)
	createNode(t, s, sid, map[string]any{"id": "a", "geometry": map[string]float64{"w": 30, "h": 30}})

	rec := doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/export?format=dot", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "digraph G {") {
		t.Errorf("dot export: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/export?format=svg", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<svg") {
		t.Errorf("svg export: %d", rec.Code)
	}

	var doc struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/export?format=json", nil, &doc)
	if rec.Code != http.StatusOK || len(doc.Nodes) != 1 {
		t.Errorf("json export: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+sid+"/export?format=gif", nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown format: %d", rec.Code)
	}
}

func TestDocumentPersistence(t *testing.T) {
	s := newTestServer(t)
	sid := createSession(t, s)
	createNode(t, s, sid, map[string]any{"id": "a", "geometry": map[string]float64{"w": 30, "h": 30}})

	rec := doJSON(t, s, http.MethodPost, "/api/sessions/"+sid+"/save",
		map[string]string{"name": "drawing"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}

	var list struct {
		Documents []string `json:"documents"`
	}
	doJSON(t, s, http.MethodGet, "/api/documents", nil, &list)
	if len(list.Documents) != 1 || list.Documents[0] != "drawing" {
		t.Errorf("documents = %v", list.Documents)
	}

	// Load into a second session.
	sid2 := createSession(t, s)
	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sid2+"/load",
		map[string]string{"name": "drawing"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodGet, "/api/sessions/"+sid2+"/nodes/a/position", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("loaded node missing: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/sessions/"+sid2+"/load",
		map[string]string{"name": "ghost"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("load missing: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/documents/drawing", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete document: %d", rec.Code)
	}
}

func TestSessionStoreEviction(t *testing.T) {
	store := NewSessionStore(2, time.Hour, func() *engine.Engine {
		return engine.New(engine.Options{Logger: log.New(io.Discard)})
	})
	a := store.Create()
	time.Sleep(2 * time.Millisecond)
	store.Create()
	time.Sleep(2 * time.Millisecond)
	store.Create()

	if store.Len() != 2 {
		t.Fatalf("len = %d, want 2", store.Len())
	}
	if _, ok := store.Get(a.ID); ok {
		t.Error("oldest session should have been evicted")
	}
}

func TestSessionStoreCleanup(t *testing.T) {
	store := NewSessionStore(10, 10*time.Millisecond, func() *engine.Engine {
		return engine.New(engine.Options{Logger: log.New(io.Discard)})
	})
	sess := store.Create()
	time.Sleep(20 * time.Millisecond)
	store.Cleanup()
	if _, ok := store.Get(sess.ID); ok {
		t.Error("expired session should have been removed")
	}
}
