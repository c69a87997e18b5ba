package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// BlameFormatter renders a file with a revision gutter
type BlameFormatter struct {
	format string // "table", "json", "csv"
	color  bool
}

// NewBlameFormatter creates a new blame formatter
func NewBlameFormatter(format string, color bool) *BlameFormatter {
	return &BlameFormatter{format: format, color: color}
}

// FormatFile formats one annotated file
func (f *BlameFormatter) FormatFile(w io.Writer, view *FileView) error {
	switch f.format {
	case FormatJSON:
		return f.formatJSON(w, view)
	case FormatCSV:
		return f.formatCSV(w, view)
	default:
		return f.formatTable(w, view)
	}
}

func (f *BlameFormatter) formatTable(w io.Writer, view *FileView) error {
	if len(view.Lines) == 0 {
		fmt.Fprintf(w, "No lines in %s\n", view.File)
		return nil
	}

	fmt.Fprintf(w, "File: %s (%d lines, %d revisions, mode %s)\n\n",
		view.File, len(view.Lines), view.Revisions, view.Mode)

	width := len(strconv.Itoa(len(view.Lines)))
	marked := 0

	for _, line := range view.Lines {
		tag := markerTag(line.Marker)
		if tag != "" {
			marked++
		}

		author := line.Author
		if r := []rune(author); len(r) > 16 {
			author = string(r[:13]) + "..."
		}
		date := ""
		if !line.Date.IsZero() {
			date = line.Date.Format("2006-01-02")
		}

		gutter := fmt.Sprintf("%-4s %-8s %-16s %-10s", tag, line.Revision, author, date)
		if f.color && tag != "" {
			gutter = markerColor(line.Marker) + gutter + colorReset
		}

		fmt.Fprintf(w, "%s %*d │ %s\n", gutter, width, line.Number, line.Text)
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%d of %d lines marked\n", marked, len(view.Lines))

	return nil
}

func (f *BlameFormatter) formatJSON(w io.Writer, view *FileView) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}

func (f *BlameFormatter) formatCSV(w io.Writer, view *FileView) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	// Header
	if err := writer.Write([]string{
		"line", "revision", "author", "date", "marker", "message", "text",
	}); err != nil {
		return err
	}

	// Rows
	for _, line := range view.Lines {
		date := ""
		if !line.Date.IsZero() {
			date = line.Date.UTC().Format(time.RFC3339)
		}
		if err := writer.Write([]string{
			strconv.Itoa(line.Number),
			line.Revision,
			line.Author,
			date,
			string(line.Marker),
			line.Message,
			line.Text,
		}); err != nil {
			return err
		}
	}

	return writer.Error()
}
