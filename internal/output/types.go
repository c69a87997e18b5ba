package output

import (
	"strings"
	"time"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// LineView is one rendered source line with its revision gutter
type LineView struct {
	Number   int               `json:"line"`
	Text     string            `json:"text"`
	Revision string            `json:"revision,omitempty"`
	Author   string            `json:"author,omitempty"`
	Date     time.Time         `json:"date,omitempty"`
	Color    string            `json:"color,omitempty"`
	Marker   models.MarkerKind `json:"marker,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// FileView is everything a formatter needs to render an annotated file
type FileView struct {
	File        string                  `json:"file"`
	Mode        models.HighlightingMode `json:"mode"`
	Fingerprint string                  `json:"fingerprint"`
	Revisions   int                     `json:"revisions"`
	Lines       []LineView              `json:"lines"`
}

// BuildFileView joins decoded file text, the revision bundle and the stored
// markers. Markers are matched to lines by character offset.
func BuildFileView(bundle *models.Bundle, text string, markers []models.MarkerSpec) *FileView {
	view := &FileView{}
	if bundle != nil {
		view.File = bundle.File
		view.Mode = bundle.Mode
		view.Fingerprint = bundle.Fingerprint
		view.Revisions = len(bundle.Groups)
	}

	owners := make(map[int]*models.RevisionGroup)
	if bundle != nil {
		for _, g := range bundle.Groups {
			for _, l := range g.Members() {
				owners[l] = g
			}
		}
	}

	byStart := make(map[int]models.MarkerSpec, len(markers))
	for _, m := range markers {
		if _, taken := byStart[m.Start]; !taken {
			byStart[m.Start] = m
		}
	}

	offset := 0
	for i, line := range splitLines(text) {
		lv := LineView{
			Number: i + 1,
			Text:   strings.TrimRight(line, "\r\n"),
		}
		if g, ok := owners[lv.Number]; ok {
			lv.Revision = models.ShortID(g.ID)
			lv.Author = g.Author
			lv.Date = g.Date()
			lv.Color = g.Color.Hex()
		}
		if m, ok := byStart[offset]; ok && m.End > offset {
			lv.Marker = m.Kind
			lv.Message = m.Message
		}
		view.Lines = append(view.Lines, lv)
		offset += len([]rune(line))
	}

	return view
}

// splitLines splits after every '\n', keeping the terminator
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(strings.TrimSuffix(text, "\n"), "\n")
}
