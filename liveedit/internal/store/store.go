// Package store persists saved documents and the change log recorded
// alongside each of them.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/liveedit/dbopen"
)

// ErrNotFound is returned when no saved document has the requested id.
var ErrNotFound = errors.New("store: document not found")

// Store is the liveedit database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies Schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Document is a saved rendering of a session's document.
type Document struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	HTML        string            `json:"html,omitempty"`
	ContentHash string            `json:"content_hash"`
	CreatedAt   int64             `json:"created_at"`
	Changes     []json.RawMessage `json:"changes,omitempty"`
}

// ContentHash returns the hex SHA-256 of html.
func ContentHash(html string) string {
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])
}

// SaveDocument stores d and its change log in one transaction. ContentHash and
// CreatedAt are filled in when empty.
func (s *Store) SaveDocument(ctx context.Context, d *Document) error {
	if d.ContentHash == "" {
		d.ContentHash = ContentHash(d.HTML)
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().UnixMilli()
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO saved_documents (id, session_id, html, content_hash, created_at)
			VALUES (?,?,?,?,?)`,
			d.ID, d.SessionID, d.HTML, d.ContentHash, d.CreatedAt,
		); err != nil {
			return fmt.Errorf("store: insert document: %w", err)
		}
		for i, c := range d.Changes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO change_logs (document_id, seq, record_json) VALUES (?,?,?)`,
				d.ID, i+1, string(c),
			); err != nil {
				return fmt.Errorf("store: insert change %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// GetDocument loads a saved document with its change log.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, session_id, html, content_hash, created_at
		FROM saved_documents WHERE id = ?`, id).Scan(
		&d.ID, &d.SessionID, &d.HTML, &d.ContentHash, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT record_json FROM change_logs WHERE document_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d.Changes = append(d.Changes, json.RawMessage(raw))
	}
	return d, rows.Err()
}

// ListDocuments returns the saved documents of a session, newest first,
// without their HTML or change logs.
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]*Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, session_id, content_hash, created_at
		FROM saved_documents WHERE session_id = ?
		ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.SessionID, &d.ContentHash, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
