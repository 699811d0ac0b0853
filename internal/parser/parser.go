// Package parser splits context files into ordered, identity-stable
// Fragments and exposes a pluggable-by-filename-pattern registry, the way
// the teacher dispatches file handling by language/extension.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cerno/internal/logging"
	"cerno/internal/model"
)

// Sentinel errors surfaced to the caller immediately (input validation kind).
var (
	ErrFileTooLarge  = errors.New("file too large")
	ErrUnknownFormat = errors.New("unknown format")
)

// DefaultMaxFileSize is the parser's size cap absent configuration.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

var h2Heading = regexp.MustCompile(`(?m)^##\s+(.*)$`)

// Parse splits a single file's content into Fragments. path is used for
// identity (source_path, source_project) and is not re-read from disk by
// this function; callers that want file-size enforcement should read via
// ParseFile instead.
func Parse(path string, content []byte) ([]model.Fragment, error) {
	fileHash := model.FileHash(content)
	text := string(content)
	sourceProject := filepath.Base(filepath.Dir(path))

	lines := splitLines(text)
	headingLines := headingLineIndexes(lines)

	type section struct {
		heading    string
		start, end int // 0-based, inclusive, into lines
	}

	var sections []section
	if len(headingLines) == 0 || headingLines[0] != 0 {
		firstStart := 0
		firstEnd := len(lines) - 1
		if len(headingLines) > 0 {
			firstEnd = headingLines[0] - 1
		}
		sections = append(sections, section{heading: "", start: firstStart, end: firstEnd})
	}

	for i, hl := range headingLines {
		heading := strings.TrimSpace(h2Heading.FindStringSubmatch(lines[hl])[1])
		end := len(lines) - 1
		if i+1 < len(headingLines) {
			end = headingLines[i+1] - 1
		}
		sections = append(sections, section{heading: heading, start: hl, end: end})
	}

	var fragments []model.Fragment
	now := time.Now()
	for _, s := range sections {
		raw := strings.Join(lines[s.start:s.end+1], "\n")
		var body string
		if s.heading != "" {
			// drop the heading line itself from the fragment content
			bodyLines := lines[s.start+1 : s.end+1]
			body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
		} else {
			body = strings.TrimSpace(raw)
		}
		if body == "" {
			continue
		}
		fragments = append(fragments, model.Fragment{
			ID:             model.FragmentID(path, body),
			Content:        body,
			SourcePath:     path,
			SourceProject:  sourceProject,
			SectionHeading: s.heading,
			LineStart:      s.start + 1,
			LineEnd:        s.end + 1,
			FileHash:       fileHash,
			ExtractedAt:    now,
		})
	}

	logging.ParserDebug("parsed %s: %d fragments", path, len(fragments))
	return fragments, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

func headingLineIndexes(lines []string) []int {
	var idx []int
	for i, l := range lines {
		if h2Heading.MatchString(l) {
			idx = append(idx, i)
		}
	}
	return idx
}

// ParseFile reads a file from disk, enforcing maxSize, computes its hash,
// and parses it via Parse. maxSize <= 0 uses DefaultMaxFileSize.
func ParseFile(path string, maxSize int64) ([]model.Fragment, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxSize {
		logging.ParserWarn("%s exceeds max file size (%d > %d)", path, info.Size(), maxSize)
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}
