// Package edit is the edit-application and undo engine.
//
// An Engine applies typed Instructions to nodes of a dom.Document found by
// locator, and keeps an append-only history of Records holding enough state
// to reverse the most recent edit, including edits that detach their node.
//
// Apply and UndoLast are total: failures come back as a Result with a Code,
// never as a panic or Go error. The Engine is not safe for concurrent use;
// hosts serialise calls (one in-flight apply or undo per document).
//
// Usage:
//
//	eng := edit.New(doc, edit.WithLogger(logger))
//	res := eng.Apply(edit.Instruction{Kind: edit.KindText, Locator: "#a", Value: "Hi"})
//	res = eng.UndoLast()
package edit

import (
	"log/slog"
	"time"

	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/idgen"
)

// Engine applies and reverses edits on one document.
type Engine struct {
	doc        *dom.Document
	history    []Record
	logger     *slog.Logger
	newID      idgen.Generator
	now        func() time.Time
	maxHistory int
	sanitizer  *dom.Sanitizer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator sets the record ID generator. Default: "mod_" + UUIDv7.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxHistory caps the history length; the oldest records are dropped
// first. 0 means unbounded.
func WithMaxHistory(n int) Option {
	return func(e *Engine) { e.maxHistory = n }
}

// WithSanitizer sets the policy applied to markup payloads of replace and
// insert edits. Default: dom.NewSanitizer().
func WithSanitizer(s *dom.Sanitizer) Option {
	return func(e *Engine) { e.sanitizer = s }
}

// New creates an Engine over doc. A nil doc is accepted; every call then
// fails with CodeUnavailable.
func New(doc *dom.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:    doc,
		logger: slog.Default(),
		newID:  idgen.Prefixed("mod_", idgen.Default),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.sanitizer == nil {
		e.sanitizer = dom.NewSanitizer()
	}
	return e
}

// Document returns the target document.
func (e *Engine) Document() *dom.Document { return e.doc }

// History returns a copy of the history, oldest first.
func (e *Engine) History() []Record {
	out := make([]Record, len(e.history))
	copy(out, e.history)
	return out
}

// Len returns the number of records in the history.
func (e *Engine) Len() int { return len(e.history) }

// Last returns the tail record.
func (e *Engine) Last() (Record, bool) {
	if len(e.history) == 0 {
		return Record{}, false
	}
	return e.history[len(e.history)-1], true
}

// ClearHistory drops every record. The document is left as is.
func (e *Engine) ClearHistory() {
	e.history = nil
	e.logger.Debug("edit: history cleared")
}

func (e *Engine) push(r Record) {
	e.history = append(e.history, r)
	if e.maxHistory > 0 && len(e.history) > e.maxHistory {
		excess := len(e.history) - e.maxHistory
		e.history = append([]Record(nil), e.history[excess:]...)
	}
}

func (e *Engine) pop() (Record, bool) {
	if len(e.history) == 0 {
		return Record{}, false
	}
	r := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	return r, true
}
