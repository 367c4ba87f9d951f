// Package liveedit is the live-edit service: it keeps editing sessions over
// HTML documents, applies and undoes edits through the edit engine, saves
// documents with their change logs and exposes all of it over HTTP and MCP.
//
// Usage:
//
//	svc, err := liveedit.New(cfg, logger)
//	defer svc.Close()
//	svc.Start(ctx)
//	http.ListenAndServe(cfg.Addr, svc.Routes())
//	svc.RegisterMCP(mcpServer)
package liveedit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/liveedit/audit"
	"github.com/hazyhaar/liveedit/classify"
	"github.com/hazyhaar/liveedit/dbopen"
	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/edit"
	"github.com/hazyhaar/liveedit/horosafe"
	"github.com/hazyhaar/liveedit/idgen"
	"github.com/hazyhaar/liveedit/liveedit/internal/session"
	"github.com/hazyhaar/liveedit/liveedit/internal/store"
	"github.com/hazyhaar/liveedit/report"
	"github.com/hazyhaar/liveedit/shield"
	"github.com/hazyhaar/liveedit/summarize"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session id.
	ErrSessionNotFound = session.ErrNotFound
	// ErrSavedNotFound is returned for an unknown saved document id.
	ErrSavedNotFound = store.ErrNotFound
	// ErrBadFormat is returned by Report for a format other than html or markdown.
	ErrBadFormat = errors.New("liveedit: unknown report format")
)

// Report formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// SessionInfo describes a live session.
type SessionInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
	HistoryLen int       `json:"history_len"`
}

// SavedDocument is a stored rendering of a session's document.
type SavedDocument struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id"`
	HTML        string        `json:"html,omitempty"`
	ContentHash string        `json:"content_hash"`
	CreatedAt   time.Time     `json:"created_at"`
	Changes     []edit.Record `json:"changes,omitempty"`
}

// Service wires sessions, the store and the summarizer together.
type Service struct {
	cfg        *Config
	store      *store.Store
	audit      *audit.SQLiteLogger
	ep         endpoints
	sessions   *session.Manager
	summarizer *summarize.Client
	sanitizer  *dom.Sanitizer
	limiter    *shield.RateLimiter // nil when rate limiting is off
	newDocID   idgen.Generator
	logger     *slog.Logger
}

// New opens the database at cfg.DBPath and builds the service.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Summarize.URL != "" {
		if err := horosafe.ValidateEndpoint(cfg.Summarize.URL, cfg.Summarize.AllowPrivate); err != nil {
			return nil, fmt.Errorf("liveedit: summarize url: %w", err)
		}
	}

	st, err := store.Open(cfg.DBPath, dbopen.WithSchema(audit.Schema))
	if err != nil {
		return nil, fmt.Errorf("liveedit: open store: %w", err)
	}

	styles := cfg.Sanitize.AllowStyles
	if len(styles) == 0 {
		styles = dom.DefaultStyles
	}

	var limiter *shield.RateLimiter
	if cfg.RateLimit.MaxRequests > 0 {
		limiter = shield.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		limiter.SetLogger(logger)
	}

	s := &Service{
		cfg:   cfg,
		store: st,
		audit: audit.NewSQLiteLogger(st.DB, audit.WithLogger(logger)),
		sessions: session.NewManager(
			session.WithIdleTTL(cfg.Session.IdleTTL),
			session.WithLogger(logger),
		),
		summarizer: summarize.New(cfg.Summarize.URL,
			summarize.WithTimeout(cfg.Summarize.Timeout),
			summarize.WithRetries(cfg.Summarize.MaxRetries),
			summarize.WithLogger(logger),
		),
		sanitizer: dom.NewSanitizer(styles...),
		limiter:   limiter,
		newDocID:  idgen.Prefixed("doc_", idgen.Default),
		logger:    logger,
	}
	s.ep = s.buildEndpoints()
	return s, nil
}

// Start launches the idle-session sweeper and the rate limiter GC.
func (s *Service) Start(ctx context.Context) {
	go s.sessions.Run(ctx, 0)
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}
	s.logger.Info("liveedit: started", "db", s.cfg.DBPath, "idle_ttl", s.cfg.Session.IdleTTL)
}

// Close flushes the audit trail and closes the database.
func (s *Service) Close() error {
	s.audit.Close()
	return s.store.Close()
}

// CreateSession parses markup into a new Target Document and opens a session on it.
func (s *Service) CreateSession(markup string) (*SessionInfo, error) {
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("liveedit: parse document: %w", err)
	}
	sess := s.sessions.Create(doc,
		edit.WithLogger(s.logger),
		edit.WithMaxHistory(s.cfg.Session.MaxHistory),
		edit.WithSanitizer(s.sanitizer),
	)
	return info(sess), nil
}

// Session returns the state of a live session.
func (s *Service) Session(id string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return info(sess), nil
}

// CloseSession discards a session, its document and its history.
func (s *Service) CloseSession(id string) error {
	return s.sessions.Close(id)
}

// Apply runs one edit instruction. The error is only set for an unknown
// session; a failed edit is reported in the Result.
func (s *Service) Apply(ctx context.Context, id string, in edit.Instruction) (edit.Result, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return edit.Result{}, err
	}
	var res edit.Result
	sess.Do(func(e *edit.Engine) { res = e.Apply(in) })
	if !res.Success {
		s.logger.DebugContext(ctx, "liveedit: edit rejected", "session_id", id, "kind", in.Kind, "code", res.Code)
	}
	return res, nil
}

// Undo reverts the most recent edit of a session.
func (s *Service) Undo(ctx context.Context, id string) (edit.Result, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return edit.Result{}, err
	}
	var res edit.Result
	sess.Do(func(e *edit.Engine) { res = e.UndoLast() })
	if !res.Success {
		s.logger.DebugContext(ctx, "liveedit: undo rejected", "session_id", id, "code", res.Code)
	}
	return res, nil
}

// History returns a session's records, oldest first.
func (s *Service) History(id string) ([]edit.Record, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	var out []edit.Record
	sess.Do(func(e *edit.Engine) { out = e.History() })
	return out, nil
}

// ClearHistory drops a session's records without touching its document.
func (s *Service) ClearHistory(id string) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	sess.Do(func(e *edit.Engine) { e.ClearHistory() })
	return nil
}

// Document renders a session's current document.
func (s *Service) Document(id string) (string, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return "", err
	}
	var out string
	sess.Do(func(e *edit.Engine) { out = e.Document().Render() })
	return out, nil
}

// Report renders a session's change log as "html" or "markdown".
func (s *Service) Report(id, format string) (string, error) {
	records, err := s.History(id)
	if err != nil {
		return "", err
	}
	opts := report.Options{Snapshots: true}
	switch strings.ToLower(format) {
	case "", FormatHTML:
		return report.HTML(records, opts)
	case FormatMarkdown, "md":
		return report.Markdown(records, opts)
	default:
		return "", fmt.Errorf("%w: %q", ErrBadFormat, format)
	}
}

// Save stores the session's current document and history.
func (s *Service) Save(ctx context.Context, id string) (*SavedDocument, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	var (
		markup  string
		records []edit.Record
	)
	sess.Do(func(e *edit.Engine) {
		markup = e.Document().Render()
		records = e.History()
	})

	d := &store.Document{ID: s.newDocID(), SessionID: id, HTML: markup}
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("liveedit: marshal record %s: %w", r.ID, err)
		}
		d.Changes = append(d.Changes, raw)
	}
	if err := s.store.SaveDocument(ctx, d); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "liveedit: document saved", "session_id", id, "document_id", d.ID, "changes", len(records))
	return fromStore(d)
}

// Saved loads a saved document with its change log.
func (s *Service) Saved(ctx context.Context, savedID string) (*SavedDocument, error) {
	d, err := s.store.GetDocument(ctx, savedID)
	if err != nil {
		return nil, err
	}
	return fromStore(d)
}

// ListSaved lists the documents saved from a session, newest first. It works
// after the session itself is closed.
func (s *Service) ListSaved(ctx context.Context, sessionID string) ([]*SavedDocument, error) {
	docs, err := s.store.ListDocuments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*SavedDocument, 0, len(docs))
	for _, d := range docs {
		sd, err := fromStore(d)
		if err != nil {
			return nil, err
		}
		out = append(out, sd)
	}
	return out, nil
}

// Summarize asks the summarization endpoint to condense text. An empty text
// summarizes the visible text of the session's document instead. The call
// runs outside the session lock so edits are never blocked on it.
func (s *Service) Summarize(ctx context.Context, id, text string) (string, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		sess.Do(func(e *edit.Engine) {
			if body := e.Document().Body(); body != nil {
				text = dom.TotalText(body)
			}
		})
	}
	return s.summarizer.Summarize(ctx, text, id)
}

// Classify reports whether a free-text change request can be applied live.
func (s *Service) Classify(text string) classify.Result {
	return classify.Explain(text)
}

func info(sess *session.Session) *SessionInfo {
	out := &SessionInfo{ID: sess.ID, CreatedAt: sess.CreatedAt}
	sess.Do(func(e *edit.Engine) { out.HistoryLen = e.Len() })
	out.LastUsed = sess.LastUsed()
	return out
}

func fromStore(d *store.Document) (*SavedDocument, error) {
	out := &SavedDocument{
		ID:          d.ID,
		SessionID:   d.SessionID,
		HTML:        d.HTML,
		ContentHash: d.ContentHash,
		CreatedAt:   time.UnixMilli(d.CreatedAt).UTC(),
	}
	for i, raw := range d.Changes {
		var r edit.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("liveedit: decode change %d of %s: %w", i+1, d.ID, err)
		}
		out.Changes = append(out.Changes, r)
	}
	return out, nil
}
