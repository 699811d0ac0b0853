package store

import (
	"errors"
	"strings"
)

// Sentinel errors surfaced by store operations, matched with errors.Is by
// callers that need to distinguish "already there" from a real failure.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
)

// isUniqueViolation reports whether err came from a UNIQUE constraint,
// the signal Cerno's idempotent writers use instead of check-then-insert.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
