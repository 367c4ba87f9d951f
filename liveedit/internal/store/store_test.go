package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/liveedit/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d := &Document{
		ID:        "doc_1",
		SessionID: "sess_a",
		HTML:      "<p>Hi</p>",
		Changes: []json.RawMessage{
			json.RawMessage(`{"id":"mod_1"}`),
			json.RawMessage(`{"id":"mod_2"}`),
		},
	}
	if err := s.SaveDocument(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	if d.ContentHash != ContentHash("<p>Hi</p>") || d.CreatedAt == 0 {
		t.Fatalf("defaults not filled: %+v", d)
	}

	got, err := s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HTML != "<p>Hi</p>" || got.SessionID != "sess_a" {
		t.Errorf("got %+v", got)
	}
	if len(got.Changes) != 2 || string(got.Changes[1]) != `{"id":"mod_2"}` {
		t.Errorf("changes = %s", got.Changes)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSave_DuplicateRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := &Document{ID: "doc_1", SessionID: "s", HTML: "x"}
	if err := s.SaveDocument(ctx, d); err != nil {
		t.Fatal(err)
	}
	dup := &Document{ID: "doc_1", SessionID: "s", HTML: "y", Changes: []json.RawMessage{json.RawMessage(`{}`)}}
	if err := s.SaveDocument(ctx, dup); err == nil {
		t.Fatal("duplicate id accepted")
	}
	var n int
	s.DB.QueryRow(`SELECT COUNT(*) FROM change_logs`).Scan(&n)
	if n != 0 {
		t.Fatalf("change_logs rows = %d, want 0", n)
	}
}

func TestListDocuments(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i, id := range []string{"doc_a", "doc_b", "doc_c"} {
		sess := "sess_1"
		if id == "doc_c" {
			sess = "sess_2"
		}
		if err := s.SaveDocument(ctx, &Document{ID: id, SessionID: sess, HTML: id, CreatedAt: int64(1000 + i)}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListDocuments(ctx, "sess_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "doc_b" || list[1].ID != "doc_a" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].HTML != "" {
		t.Error("list should not carry html")
	}
}
