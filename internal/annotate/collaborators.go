// Package annotate turns per-line revision history into character-range
// markers and a displayable revision bundle for one file at a time.
package annotate

import (
	"context"
	"io"
	"time"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// RevisionProvider returns the per-line revision history of a file.
// A nil info with a nil error means there is nothing to annotate.
type RevisionProvider interface {
	RevisionInfo(ctx context.Context, file string) (*models.RevisionInfo, error)
}

// FileSource gives access to the current text of a file
type FileSource interface {
	Open(file string) (io.ReadCloser, error)

	// Charset returns the declared character encoding, "" when unknown
	Charset(ctx context.Context, file string) string
}

// Highlighter decides which changes are worth a marker in unchecked mode
type Highlighter interface {
	IsChangeOfInterest(file string, date time.Time, author string) bool
}

// Progress receives coarse progress for one invocation
type Progress interface {
	Begin(name string, total int)
	Worked(n int)
	Done()
}

// Editor is an open view onto a file that can show revision information
type Editor interface {
	ShowRevisionInformation(bundle *models.Bundle) error
}

// Display locates editors. It is only ever called on the display goroutine.
type Display interface {
	// FindEditor returns the editor showing file, activating it when open is
	// set, or opening a new one when open is set and none exists. ok is false
	// when the file is not displayed.
	FindEditor(file string, open bool) (editor Editor, ok bool)
}

// Dispatcher runs fn on the display goroutine and waits for it
type Dispatcher interface {
	Sync(ctx context.Context, fn func()) error
}

// NopProgress ignores all progress
type NopProgress struct{}

func (NopProgress) Begin(string, int) {}
func (NopProgress) Worked(int)        {}
func (NopProgress) Done()             {}
