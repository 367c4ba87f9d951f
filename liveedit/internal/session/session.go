// Package session keeps the live editing sessions of a service. Each session
// owns one edit engine over its own document; Do serializes every operation
// on it so at most one apply or undo is in flight per session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/edit"
	"github.com/hazyhaar/liveedit/idgen"
)

// ErrNotFound is returned for an unknown or expired session id.
var ErrNotFound = errors.New("session: not found")

// Session is one document under edit.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	engine   *edit.Engine
	now      func() time.Time
	lastUsed atomic.Int64 // unix nanos
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(*edit.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engine)
	s.lastUsed.Store(s.now().UnixNano())
}

// LastUsed reports when the session last ran an operation.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Manager indexes sessions by id and expires idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
	newID    idgen.Generator
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTTL sets how long an unused session survives. Zero disables expiry.
func WithIdleTTL(d time.Duration) Option { return func(m *Manager) { m.idleTTL = d } }

// WithIDGenerator overrides session id generation. Default: "sess_" + UUIDv7.
func WithIDGenerator(g idgen.Generator) Option { return func(m *Manager) { m.newID = g } }

// WithClock overrides the time source used for expiry and session activity.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets a custom logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		newID:    idgen.Prefixed("sess_", idgen.Default),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create registers a new session editing doc.
func (m *Manager) Create(doc *dom.Document, engineOpts ...edit.Option) *Session {
	now := m.now()
	s := &Session{
		ID:        m.newID(),
		CreatedAt: now,
		engine:    edit.New(doc, engineOpts...),
		now:       m.now,
	}
	s.lastUsed.Store(now.UnixNano())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("session: created", "session_id", s.ID)
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close drops a session and its history.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.logger.Info("session: closed", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SweepOnce removes sessions idle for longer than the TTL and returns how
// many were dropped.
func (m *Manager) SweepOnce() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Info("session: expired idle sessions", "count", n, "remaining", len(m.sessions))
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 {
		return
	}
	if interval <= 0 {
		interval = m.idleTTL / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepOnce()
		}
	}
}
