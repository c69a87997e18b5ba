// Package display owns everything that must happen on the single display
// goroutine: editor lookup and rendering of revision information.
package display

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	cerrors "github.com/rohankatakam/crisk-annotate/internal/errors"
)

// ErrClosed is returned by Sync after Close
var ErrClosed = errors.New("display executor closed")

type task struct {
	fn   func()
	done chan error
}

// Executor runs tasks one at a time on a dedicated goroutine
type Executor struct {
	tasks  chan task
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
	logger *logrus.Logger
}

// NewExecutor starts the display goroutine
func NewExecutor(logger *logrus.Logger) *Executor {
	e := &Executor{
		tasks:  make(chan task),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		select {
		case t := <-e.tasks:
			t.done <- e.run(t.fn)
		case <-e.quit:
			return
		}
	}
}

func (e *Executor) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("display task panicked")
			err = cerrors.InternalErrorf("display task panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Sync runs fn on the display goroutine and waits for it to finish.
// If ctx ends before fn is picked up, fn never runs.
func (e *Executor) Sync(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan error, 1)}

	select {
	case e.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrClosed
	}

	return <-t.done
}

// Close stops the display goroutine after the running task, if any
func (e *Executor) Close() {
	e.once.Do(func() { close(e.quit) })
	<-e.done
}
