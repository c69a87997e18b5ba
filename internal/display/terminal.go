package display

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/rohankatakam/crisk-annotate/internal/annotate"
	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/models"
	"github.com/rohankatakam/crisk-annotate/internal/output"
	"github.com/rohankatakam/crisk-annotate/internal/storage"
)

const renderTimeout = 10 * time.Second

// Terminal is a Display that treats every open file as an editor and
// renders revision information to a writer.
type Terminal struct {
	out       io.Writer
	files     annotate.FileSource
	markers   storage.MarkerStore
	formatter output.Formatter
	logger    *logrus.Logger

	mu      sync.Mutex
	editors map[string]*TerminalEditor
}

// NewTerminal creates a terminal display
func NewTerminal(out io.Writer, files annotate.FileSource, markers storage.MarkerStore, formatter output.Formatter, logger *logrus.Logger) *Terminal {
	return &Terminal{
		out:       out,
		files:     files,
		markers:   markers,
		formatter: formatter,
		logger:    logger,
		editors:   make(map[string]*TerminalEditor),
	}
}

// Open registers an editor for file without activating it
func (t *Terminal) Open(file string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.editors[file]; !ok {
		t.editors[file] = &TerminalEditor{file: file, terminal: t}
	}
}

// FindEditor implements annotate.Display
func (t *Terminal) FindEditor(file string, open bool) (annotate.Editor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// a terminal has no focus, so activating an open editor is just a lookup
	ed, ok := t.editors[file]
	switch {
	case ok:
	case open:
		ed = &TerminalEditor{file: file, terminal: t}
		t.editors[file] = ed
	default:
		return nil, false
	}
	return ed, true
}

// OpenFiles lists files with an open editor
func (t *Terminal) OpenFiles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	files := make([]string, 0, len(t.editors))
	for f := range t.editors {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// TerminalEditor renders one file
type TerminalEditor struct {
	file     string
	terminal *Terminal
}

// ShowRevisionInformation renders the file's text, the bundle and the
// file's current markers.
func (e *TerminalEditor) ShowRevisionInformation(bundle *models.Bundle) error {
	t := e.terminal
	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	text, err := e.readText(ctx)
	if err != nil {
		return err
	}

	markers, err := t.markers.List(ctx, e.file)
	if err != nil {
		return errors.StorageError(err, "list markers for "+e.file)
	}

	view := output.BuildFileView(bundle, text, markers)
	if view.File == "" {
		view.File = e.file
	}

	t.logger.WithFields(logrus.Fields{
		"file":    e.file,
		"lines":   len(view.Lines),
		"markers": len(markers),
	}).Debug("rendering revision information")

	return t.formatter.FormatFile(t.out, view)
}

func (e *TerminalEditor) readText(ctx context.Context) (string, error) {
	t := e.terminal
	rc, err := t.files.Open(e.file)
	if err != nil {
		return "", errors.FileSystemError(err, "open "+e.file)
	}
	defer rc.Close()

	decoded, _ := annotate.Decode(rc, t.files.Charset(ctx, e.file))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", errors.FileSystemError(err, "read "+e.file)
	}
	return string(data), nil
}

// ColorEnabled resolves a color setting ("auto", "always", "never") for f
func ColorEnabled(setting string, f *os.File) bool {
	switch setting {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
