// Package watch re-annotates files when they change on disk
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Handler is called once per settled file change
type Handler func(ctx context.Context, file string)

// Watcher watches a directory tree and reports debounced file changes
type Watcher struct {
	root     string
	debounce time.Duration
	exclude  []string
	handler  Handler
	logger   *logrus.Logger

	fs      *fsnotify.Watcher
	pending map[string]time.Time
	wg      sync.WaitGroup
}

// New creates a watcher over root and every directory below it that is not excluded
func New(root string, debounce time.Duration, exclude []string, handler Handler, logger *logrus.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		root:     abs,
		debounce: debounce,
		exclude:  append([]string{".git"}, exclude...),
		handler:  handler,
		logger:   logger,
		fs:       fw,
		pending:  make(map[string]time.Time),
	}

	if err := w.addTree(abs); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.Excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory '%s': %w", path, err)
		}
		w.logger.WithField("directory", path).Debug("watching")
		return nil
	})
}

// Excluded reports whether path matches an exclude pattern, by base name or
// by path relative to the root.
func (w *Watcher) Excluded(path string) bool {
	base := filepath.Base(path)
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	for _, pattern := range w.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, pattern+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run delivers changes until ctx is cancelled, then waits for running handlers
func (w *Watcher) Run(ctx context.Context) error {
	defer w.wg.Wait()

	tick := w.debounce / 2
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("file watcher error")

		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if w.Excluded(event.Name) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.WithError(err).Warn("failed to watch new directory")
			}
		}
		return
	}

	w.logger.WithFields(logrus.Fields{
		"file": event.Name,
		"op":   event.Op.String(),
	}).Debug("file change detected")
	w.pending[event.Name] = time.Now()
}

// flush hands off every file that has been quiet for the debounce interval
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for file, last := range w.pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		delete(w.pending, file)

		w.wg.Add(1)
		go func(file string) {
			defer w.wg.Done()
			w.handler(ctx, file)
		}(file)
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fs.Close()
}
