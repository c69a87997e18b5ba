package models

import (
	"fmt"
	"strings"
	"time"
)

// EndLine is appended to every RevisionGroup's line list once aggregation
// closes. Renderers read it as "membership runs to the end of the visible range".
const EndLine = -1

// LineRevision is the change history of a single source line
type LineRevision struct {
	Revision  string `json:"revision"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"` // epoch millis

	// Character offsets into the current buffer, filled in by the offset mapper
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}

// Date returns the change date of the line
func (l *LineRevision) Date() time.Time {
	return time.UnixMilli(l.Timestamp)
}

// RevisionInfo is what a revision history provider returns for one file
type RevisionInfo struct {
	Fingerprint string          `json:"fingerprint"`
	Lines       []*LineRevision `json:"lines"`
}

// RGB is a display color
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RevisionGroup aggregates every line sharing one revision id
type RevisionGroup struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Color     RGB    `json:"color"`
	Timestamp int64  `json:"timestamp"`
	Lines     []int  `json:"lines"` // 1-based, closed by EndLine
}

// Date returns the revision date
func (g *RevisionGroup) Date() time.Time {
	return time.UnixMilli(g.Timestamp)
}

// HoverInfo is the message shown for a ranked revision marker
func (g *RevisionGroup) HoverInfo() string {
	return fmt.Sprintf("%s %s %s", ShortID(g.ID), g.Author, g.Date().Format(time.UnixDate))
}

// Members returns the group's line numbers without the EndLine sentinel
func (g *RevisionGroup) Members() []int {
	lines := make([]int, 0, len(g.Lines))
	for _, l := range g.Lines {
		if l != EndLine {
			lines = append(lines, l)
		}
	}
	return lines
}

// ShortID abbreviates a revision id for display
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Bundle is the displayable revision information for one file
type Bundle struct {
	File        string           `json:"file"`
	Fingerprint string           `json:"fingerprint"`
	Mode        HighlightingMode `json:"mode"`
	Groups      []*RevisionGroup `json:"groups"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CacheEntry is the per-file annotation cache record. Markers is how many
// annotation markers the run that wrote the entry left in the marker store.
type CacheEntry struct {
	Fingerprint string           `json:"fingerprint"`
	Mode        HighlightingMode `json:"mode"`
	Bundle      *Bundle          `json:"bundle"`
	Markers     int              `json:"markers"`
}

// Matches reports whether the entry is still valid for the given fingerprint and mode
func (e *CacheEntry) Matches(fingerprint string, mode HighlightingMode) bool {
	return e != nil && e.Fingerprint == fingerprint && e.Mode == mode
}

// MarkerKind tags a marker so a whole family can be deleted at once
type MarkerKind string

const (
	// MarkerNewLine marks a line selected by the interest predicate
	MarkerNewLine MarkerKind = "rev.new_line"

	// TopRevisions is how many recency ranks get their own marker kind
	TopRevisions = 5
)

// RankMarker returns the marker kind for a recency rank (0 = most recent)
func RankMarker(rank int) MarkerKind {
	return MarkerKind(fmt.Sprintf("rev.rank%d", rank))
}

// RankOf returns the rank encoded in a rank marker kind, or -1
func RankOf(kind MarkerKind) int {
	s, ok := strings.CutPrefix(string(kind), "rev.rank")
	if !ok || len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return -1
	}
	return int(s[0] - '0')
}

// AnnotationKinds lists every marker kind owned by the annotator
func AnnotationKinds() []MarkerKind {
	kinds := make([]MarkerKind, 0, TopRevisions+1)
	for i := 0; i < TopRevisions; i++ {
		kinds = append(kinds, RankMarker(i))
	}
	return append(kinds, MarkerNewLine)
}

// MarkerSpec is one marker over the half-open character range [Start, End)
type MarkerSpec struct {
	Kind    MarkerKind `json:"kind" db:"kind"`
	Start   int        `json:"start" db:"char_start"`
	End     int        `json:"end" db:"char_end"`
	Message string     `json:"message" db:"message"`
}

// Diagnostic records a per-line failure that degraded, but did not abort, a pass
type Diagnostic struct {
	Stage string `json:"stage"`
	Line  int    `json:"line"` // 1-based, 0 when not line specific
	Err   error  `json:"-"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", d.Stage, d.Line, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Stage, d.Err)
}
