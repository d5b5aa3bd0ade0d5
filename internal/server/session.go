// Package server exposes the engine over HTTP.
//
// Each editing session owns one engine instance; sessions live in an
// in-memory store with TTL expiry and a capacity cap. All scene state is
// held server-side, so clients only exchange commands and query results.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nestgraph/nestgraph/pkg/engine"
)

// Session defaults.
const (
	DefaultMaxSessions     = 100
	DefaultSessionTTL      = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// Session binds an engine instance to an ID and access bookkeeping.
type Session struct {
	ID         string
	Engine     *engine.Engine
	CreatedAt  time.Time
	LastAccess time.Time
}

// SessionStore is a thread-safe in-memory session registry with TTL
// cleanup and capacity-based eviction of the least recently used session.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	newEngine   func() *engine.Engine
}

// NewSessionStore creates a session store. Non-positive limits fall back
// to the package defaults.
func NewSessionStore(maxSessions int, ttl time.Duration, newEngine func() *engine.Engine) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		newEngine:   newEngine,
	}
}

// Create starts a new session with a fresh engine. At capacity, the least
// recently used session is evicted and its engine closed.
func (s *SessionStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldestTime time.Time
		for id, sess := range s.sessions {
			if oldestTime.IsZero() || sess.LastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = sess.LastAccess
			}
		}
		s.sessions[oldestID].Engine.Close()
		delete(s.sessions, oldestID)
	}

	now := time.Now()
	sess := &Session{
		ID:         uuid.NewString(),
		Engine:     s.newEngine(),
		CreatedAt:  now,
		LastAccess: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get retrieves a session by ID and refreshes its access time.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastAccess = time.Now()
	return sess, true
}

// Delete removes a session and closes its engine.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Engine.Close()
		delete(s.sessions, id)
	}
}

// List returns the IDs of all live sessions.
func (s *SessionStore) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle past the TTL.
func (s *SessionStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			sess.Engine.Close()
			delete(s.sessions, id)
		}
	}
}

// StartCleanup runs Cleanup on an interval until the returned stop
// function is called.
func (s *SessionStore) StartCleanup(interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
