package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/liveedit/horosafe"
)

func TestSummarize_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text != "long text" || req.SessionID != "sess_1" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(Response{Summary: "short"})
	}))
	defer srv.Close()

	got, err := New(srv.URL).Summarize(context.Background(), "long text", "sess_1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "short" {
		t.Errorf("summary = %q", got)
	}
}

func TestSummarize_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Response{Summary: "third time"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetries(2), WithBackoff(time.Millisecond))
	got, err := c.Summarize(context.Background(), "x", "s")
	if err != nil {
		t.Fatal(err)
	}
	if got != "third time" || calls.Load() != 3 {
		t.Errorf("summary = %q after %d calls", got, calls.Load())
	}
}

func TestSummarize_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithBackoff(time.Millisecond)).Summarize(context.Background(), "x", "s")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestSummarize_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithRetries(1), WithBackoff(time.Millisecond)).Summarize(context.Background(), "x", "s")
	if err == nil || !strings.Contains(err.Error(), "retries exhausted") {
		t.Fatalf("err = %v", err)
	}
}

func TestSummarize_Preconditions(t *testing.T) {
	if _, err := New("").Summarize(context.Background(), "x", "s"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if _, err := New("http://127.0.0.1:1").Summarize(context.Background(), "  ", "s"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestSummarize_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, WithBackoff(time.Hour)).Summarize(ctx, "x", "s")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSummarize_OversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"summary":"`))
		w.Write([]byte(strings.Repeat("a", int(horosafe.MaxResponseBody))))
		w.Write([]byte(`"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Summarize(context.Background(), "x", "s")
	if !errors.Is(err, horosafe.ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
