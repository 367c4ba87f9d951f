package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/liveedit/dom"
	"github.com/hazyhaar/liveedit/edit"
)

func newDoc(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(`<p id="a">0</p>`)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCreateGetClose(t *testing.T) {
	m := NewManager()
	s := m.Create(newDoc(t))
	if !strings.HasPrefix(s.ID, "sess_") {
		t.Fatalf("id = %q", s.ID)
	}
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := m.Close(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after close: %v", err)
	}
	if err := m.Close(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double close: %v", err)
	}
}

func TestSweepOnce(t *testing.T) {
	now := time.Now()
	m := NewManager(WithIdleTTL(time.Minute), WithClock(func() time.Time { return now }))
	old := m.Create(newDoc(t))
	old.lastUsed.Store(now.Add(-2 * time.Minute).UnixNano())
	fresh := m.Create(newDoc(t))

	if n := m.SweepOnce(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := m.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("idle session survived")
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Error("fresh session expired")
	}
}

func TestSweep_Disabled(t *testing.T) {
	m := NewManager()
	s := m.Create(newDoc(t))
	s.lastUsed.Store(0)
	if n := m.SweepOnce(); n != 0 || m.Len() != 1 {
		t.Fatalf("swept %d with expiry disabled", n)
	}
}

func TestDo_Serializes(t *testing.T) {
	m := NewManager()
	s := m.Create(newDoc(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func(e *edit.Engine) {
				e.Apply(edit.Instruction{Kind: edit.KindText, Locator: "#a", Value: "x"})
			})
		}()
	}
	wg.Wait()

	var n int
	s.Do(func(e *edit.Engine) { n = e.Len() })
	if n != 20 {
		t.Fatalf("history = %d, want 20", n)
	}
}

func TestDo_UsesManagerClock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := start
	m := NewManager(WithIdleTTL(time.Minute), WithClock(func() time.Time { return now }))
	s := m.Create(newDoc(t))

	now = start.Add(50 * time.Second)
	s.Do(func(*edit.Engine) {})
	if !s.LastUsed().Equal(now) {
		t.Fatalf("LastUsed = %v, want %v", s.LastUsed(), now)
	}

	// Idle 40s since the last Do, 90s since creation.
	now = start.Add(90 * time.Second)
	if n := m.SweepOnce(); n != 0 {
		t.Fatalf("swept %d, session was used within the TTL", n)
	}
	now = start.Add(111 * time.Second)
	if n := m.SweepOnce(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
}

func TestNilOptionsIgnored(t *testing.T) {
	m := NewManager(WithLogger(nil), WithClock(nil))
	s := m.Create(newDoc(t))
	s.Do(func(*edit.Engine) {})
	if err := m.Close(s.ID); err != nil {
		t.Fatal(err)
	}
}
