package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nestgraph/nestgraph/pkg/document"
	"github.com/nestgraph/nestgraph/pkg/engine"
)

// Config holds server construction parameters.
type Config struct {
	// MaxSessions caps concurrent editing sessions.
	MaxSessions int

	// SessionTTL is the idle lifetime of a session.
	SessionTTL time.Duration

	// HistoryLimit caps undo history per session.
	HistoryLimit int

	// QuietPeriod is the debounce window for automatic history capture.
	QuietPeriod time.Duration

	// Documents persists named scenes across sessions. Nil disables the
	// document endpoints' backing store and falls back to memory.
	Documents document.Store

	// Logger receives request and session events. Nil falls back to
	// log.Default().
	Logger *log.Logger
}

// Server is the HTTP API over engine sessions.
type Server struct {
	router   chi.Router
	sessions *SessionStore
	docs     document.Store
	logger   *log.Logger
}

// New creates a server with all routes configured.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Documents == nil {
		cfg.Documents = document.NewMemoryStore()
	}

	s := &Server{
		docs:   cfg.Documents,
		logger: cfg.Logger,
	}
	s.sessions = NewSessionStore(cfg.MaxSessions, cfg.SessionTTL, func() *engine.Engine {
		return engine.New(engine.Options{
			MaxHistory:  cfg.HistoryLimit,
			QuietPeriod: cfg.QuietPeriod,
			Logger:      cfg.Logger,
		})
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			r.Post("/nodes", s.handleCreateNode)
			r.Patch("/nodes/{nodeID}", s.handleUpdateNode)
			r.Delete("/nodes/{nodeID}", s.handleDeleteNode)
			r.Get("/nodes/{nodeID}/position", s.handleNodePosition)
			r.Post("/nodes/{nodeID}/dock", s.handleDock)
			r.Post("/nodes/{nodeID}/undock", s.handleUndock)
			r.Post("/nodes/{nodeID}/resize/start", s.handleResizeStart)
			r.Post("/resize/move", s.handleResizeMove)
			r.Post("/resize/end", s.handleResizeEnd)

			r.Post("/edges", s.handleCreateEdge)
			r.Delete("/edges/{edgeID}", s.handleDeleteEdge)
			r.Post("/edges/{edgeID}/routing", s.handleEdgeRouting)
			r.Get("/edges/{edgeID}/path", s.handleEdgePath)

			r.Get("/containers", s.handleFindContainer)

			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)

			r.Get("/export", s.handleExport)
			r.Post("/save", s.handleSaveDocument)
			r.Post("/load", s.handleLoadDocument)
		})

		r.Get("/documents", s.handleListDocuments)
		r.Delete("/documents/{name}", s.handleDeleteDocument)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions exposes the session store for lifecycle management.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}
