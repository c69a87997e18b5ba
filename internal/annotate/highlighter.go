package annotate

import (
	"strings"
	"time"
)

// StdHighlighter treats a change as interesting when it is recent and was
// made by someone other than the ignored authors.
type StdHighlighter struct {
	window time.Duration
	ignore map[string]bool
	now    func() time.Time
}

// NewStdHighlighter creates a highlighter. window <= 0 disables the age check.
func NewStdHighlighter(window time.Duration, ignoreAuthors []string) *StdHighlighter {
	ignore := make(map[string]bool, len(ignoreAuthors))
	for _, a := range ignoreAuthors {
		if a = strings.TrimSpace(a); a != "" {
			ignore[strings.ToLower(a)] = true
		}
	}
	return &StdHighlighter{
		window: window,
		ignore: ignore,
		now:    time.Now,
	}
}

func (h *StdHighlighter) IsChangeOfInterest(file string, date time.Time, author string) bool {
	if h.ignore[strings.ToLower(author)] {
		return false
	}
	if h.window > 0 && date.Before(h.now().Add(-h.window)) {
		return false
	}
	return true
}
