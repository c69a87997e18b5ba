// Package progress reports annotation progress to the log and, when
// attached to a terminal, as a single updating status line.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Reporter implements annotate.Progress. It is safe for concurrent use.
type Reporter struct {
	logger      *logrus.Logger
	out         io.Writer
	interactive bool

	mu      sync.Mutex
	name    string
	total   int
	worked  int
	started time.Time
	done    bool
}

// NewReporter creates a reporter. Status lines are written to out only when
// interactive is set.
func NewReporter(logger *logrus.Logger, out io.Writer, interactive bool) *Reporter {
	return &Reporter{logger: logger, out: out, interactive: interactive}
}

func (r *Reporter) Begin(name string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.name = name
	r.total = total
	r.worked = 0
	r.started = time.Now()
	r.done = false

	r.logger.WithFields(logrus.Fields{
		"task":  name,
		"total": total,
	}).Debug("started")
	r.render()
}

func (r *Reporter) Worked(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worked += n
	r.render()
}

func (r *Reporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true

	r.logger.WithFields(logrus.Fields{
		"task":     r.name,
		"worked":   r.worked,
		"duration": time.Since(r.started).Round(time.Millisecond),
	}).Info("finished")

	if r.interactive {
		fmt.Fprintln(r.out)
	}
}

// Snapshot returns the work done so far and the expected total
func (r *Reporter) Snapshot() (worked, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.worked, r.total
}

func (r *Reporter) render() {
	if !r.interactive {
		return
	}
	if r.total > 0 {
		fmt.Fprintf(r.out, "\r%s: %d/%d", r.name, r.worked, r.total)
	} else {
		fmt.Fprintf(r.out, "\r%s: %d", r.name, r.worked)
	}
}
