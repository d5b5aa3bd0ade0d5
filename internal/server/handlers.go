package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nestgraph/nestgraph/pkg/document"
	"github.com/nestgraph/nestgraph/pkg/errors"
	"github.com/nestgraph/nestgraph/pkg/export"
	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// maxBodySize limits request bodies; scenes are metadata, not assets.
const maxBodySize = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrCodeInvalidInput),
		errors.Is(err, errors.ErrCodeInvalidTopology),
		errors.Is(err, errors.ErrCodeInvalidGeometry),
		errors.Is(err, errors.ErrCodeInvalidRouting),
		errors.Is(err, errors.ErrCodeInvalidFormat),
		errors.Is(err, errors.ErrCodeUnsupported):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrCodeRestoreInProgress):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrCodeStorage):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse request body"))
		return false
	}
	return true
}

// session resolves the {id} route parameter, writing a 404 on miss.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeSessionNotFound, "session %q does not exist", id))
		return nil, false
	}
	return sess, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// handleCreateSession starts a session. A non-empty JSON body is treated
// as a document to load into the fresh engine.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err == nil && len(doc.Nodes) > 0 {
		sess.Engine.Load(doc.ToStore())
	}

	s.logger.Info("session created", "id", sess.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	eng := sess.Engine
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       sess.ID,
		"stats":    eng.Stats(),
		"document": document.FromStore(sess.ID, eng.Snapshot()),
		"can_undo": eng.CanUndo(),
		"can_redo": eng.CanRedo(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var n scene.Node
	if !decodeBody(w, r, &n) {
		return
	}
	created, err := sess.Engine.CreateNode(n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type nodeUpdateRequest struct {
	Kind     *string           `json:"kind"`
	Geometry *scene.Geometry   `json:"geometry"`
	Style    map[string]string `json:"style"`
	Data     map[string]any    `json:"data"`
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req nodeUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	err := sess.Engine.UpdateNode(nodeID, scene.NodeUpdate{
		Kind:     req.Kind,
		Geometry: req.Geometry,
		Style:    req.Style,
		Data:     req.Data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	n, _ := sess.Engine.Node(nodeID)
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.DeleteNode(chi.URLParam(r, "nodeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodePosition(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	bounds, found := sess.Engine.AbsoluteBounds(nodeID)
	if !found {
		writeError(w, errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", nodeID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"x": bounds.X, "y": bounds.Y, "w": bounds.W, "h": bounds.H,
	})
}

// =============================================================================
// Docking and Resize
// =============================================================================

func (s *Server) handleDock(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		ContainerID string `json:"container_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.Engine.CommitDocking(chi.URLParam(r, "nodeID"), req.ContainerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUndock(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.Undock(chi.URLParam(r, "nodeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResizeStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.ResizeStart(chi.URLParam(r, "nodeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResizeMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		W float64 `json:"w"`
		H float64 `json:"h"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.Engine.ResizeMove(req.W, req.H); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResizeEnd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine.ResizeEnd()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFindContainer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "x and y query parameters are required"))
		return
	}
	id := sess.Engine.FindContainerAt(geometry.Point{X: x, Y: y}, q.Get("exclude"))
	writeJSON(w, http.StatusOK, map[string]string{"container_id": id})
}

// =============================================================================
// Edges
// =============================================================================

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
		Routing  string `json:"routing"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	edge, err := sess.Engine.CreateEdge(req.SourceID, req.TargetID, req.Routing)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.DeleteEdge(chi.URLParam(r, "edgeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdgeRouting(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Routing string `json:"routing"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.Engine.UpdateEdgeRouting(chi.URLParam(r, "edgeID"), req.Routing); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type anchorResponse struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Side string  `json:"side"`
}

func (s *Server) handleEdgePath(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	edgeID := chi.URLParam(r, "edgeID")
	path, src, dst, found := sess.Engine.EdgePath(edgeID)
	if !found {
		writeError(w, errors.New(errors.ErrCodeEdgeNotFound, "edge %q does not exist", edgeID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"style":  path.Style,
		"d":      path.SVG(),
		"source": anchorResponse{X: src.Point.X, Y: src.Point.Y, Side: string(src.Side)},
		"target": anchorResponse{X: dst.Point.X, Y: dst.Point.Y, Side: string(dst.Side)},
	})
}

// =============================================================================
// History
// =============================================================================

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": sess.Engine.Undo()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": sess.Engine.Redo()})
}

// =============================================================================
// Export and Persistence
// =============================================================================

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := sess.Engine.Snapshot()

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, document.FromStore(sess.ID, snap))
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(export.ToDOT(snap)))
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(export.RenderSVG(snap))
	case "png":
		data, err := export.RenderGraphvizPNG(r.Context(), export.ToDOT(snap))
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "render png"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	default:
		writeError(w, errors.New(errors.ErrCodeUnsupported, "unsupported export format: %s", format))
	}
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	doc := document.FromStore(req.Name, sess.Engine.Snapshot())
	if err := s.docs.Save(r.Context(), doc); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("document saved", "name", req.Name, "session", sess.ID)
	writeJSON(w, http.StatusOK, map[string]string{"name": req.Name})
}

func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := s.docs.Load(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.Engine.Load(doc.ToStore())
	s.logger.Info("document loaded", "name", req.Name, "session", sess.ID)
	writeJSON(w, http.StatusOK, map[string]any{"name": req.Name, "stats": sess.Engine.Stats()})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := s.docs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": names})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
