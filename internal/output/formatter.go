package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// Formatter renders an annotated file
type Formatter interface {
	FormatFile(w io.Writer, view *FileView) error
}

// Supported output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// NewFormatter creates the formatter for format, defaulting to a table
func NewFormatter(format string, color bool) Formatter {
	return NewBlameFormatter(format, color)
}

// ParseFormat validates an output format name
func ParseFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or csv)", format)
	}
}

// ANSI colors for marker kinds. Rank 0 is the hottest.
var rankColors = [models.TopRevisions]string{
	"\033[1;31m", // bold red
	"\033[31m",   // red
	"\033[33m",   // yellow
	"\033[32m",   // green
	"\033[36m",   // cyan
}

const (
	colorNewLine = "\033[1;35m"
	colorReset   = "\033[0m"
)

func markerColor(kind models.MarkerKind) string {
	if kind == models.MarkerNewLine {
		return colorNewLine
	}
	if r := models.RankOf(kind); r >= 0 && r < len(rankColors) {
		return rankColors[r]
	}
	return ""
}

// markerTag is the short gutter label of a marker kind
func markerTag(kind models.MarkerKind) string {
	if kind == models.MarkerNewLine {
		return "new"
	}
	if r := models.RankOf(kind); r >= 0 {
		return fmt.Sprintf("#%d", r+1)
	}
	return ""
}
