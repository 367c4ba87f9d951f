package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id == prev {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		if id < prev {
			t.Fatalf("UUIDv7: %q sorts before previous %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("mod_", UUIDv7())()
	if !strings.HasPrefix(id, "mod_") {
		t.Fatalf("Prefixed: expected prefix 'mod_', got %q", id)
	}
	if _, err := Parse(id); err != nil {
		t.Fatalf("Parse prefixed: %v", err)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("rec_")
	if got := gen(); got != "rec_000001" {
		t.Fatalf("first = %q", got)
	}
	if got := gen(); got != "rec_000002" {
		t.Fatalf("second = %q", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("sess_not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error for invalid UUID")
	}
}
