// Package idgen provides pluggable ID generation.
//
// Constructors that mint identifiers (edit.Engine records, liveedit sessions,
// saved documents) accept a Generator, so tests can swap in a deterministic
// sequence while production keeps time-sortable UUIDv7 values.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Lexical order follows creation order at millisecond resolution.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID
// (e.g. "mod_", "sess_", "doc_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator yielding prefix + a zero-padded counter
// starting at 1. Safe for concurrent use.
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		v := n.Add(1)
		s := strconv.FormatUint(v, 10)
		for len(s) < 6 {
			s = "0" + s
		}
		return prefix + s
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a UUID string, ignoring a "xxx_" type prefix.
func Parse(s string) (string, error) {
	raw := s
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			raw = s[i+1:]
			break
		}
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid UUID: %w", err)
	}
	return s[:len(s)-len(raw)] + u.String(), nil
}
