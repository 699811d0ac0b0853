package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fragment is a transient atomic unit of text extracted from a context file.
// Fragments are never persisted; the Accumulator consumes them and discards
// them after producing (or matching) an Insight.
type Fragment struct {
	ID             string
	Content        string
	SourcePath     string
	SourceProject  string
	SectionHeading string // empty means the file's leading preamble
	LineStart      int
	LineEnd        int
	FileHash       string
	ExtractedAt    time.Time
}

// FragmentID derives the deterministic identity of a fragment: the SHA-256
// of sourcePath concatenated with content, lowercase hex.
func FragmentID(sourcePath, content string) string {
	h := sha256.Sum256([]byte(sourcePath + content))
	return hex.EncodeToString(h[:])
}

// ContentHash derives the SHA-256 hex digest used for exact-dedup identity
// on Insight and Principle content.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// FileHash derives the SHA-256 hex digest of an entire source file's bytes,
// used for WatchedProject change detection and InsightSource provenance.
func FileHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
