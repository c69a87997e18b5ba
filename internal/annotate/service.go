package annotate

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rohankatakam/crisk-annotate/internal/git"
	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// ModeSource returns the active highlighting mode. It is read once per invocation.
type ModeSource func() models.HighlightingMode

// FixedMode always returns mode
func FixedMode(mode models.HighlightingMode) ModeSource {
	return func() models.HighlightingMode { return mode }
}

// Service is the fire-and-forget entry point used by commands and the watcher.
// Invocations for the same file never overlap. Callers that arrive while a run
// is in progress share one follow-up run, which starts after they arrived.
type Service struct {
	builder    *Builder
	display    Display
	dispatcher Dispatcher
	mode       ModeSource
	logger     *logrus.Logger

	flights singleflight.Group
	locks   keyedMutex
}

// NewService creates an annotation service
func NewService(builder *Builder, display Display, dispatcher Dispatcher, mode ModeSource, logger *logrus.Logger) *Service {
	return &Service{
		builder:    builder,
		display:    display,
		dispatcher: dispatcher,
		mode:       mode,
		logger:     logger,
		locks:      keyedMutex{locks: make(map[string]*refLock)},
	}
}

// Annotate computes and displays revision annotations for file. Failures are
// logged and swallowed. progress.Done is called exactly once before returning.
func (s *Service) Annotate(ctx context.Context, file string, openEditor bool, progress Progress) {
	if progress == nil {
		progress = NopProgress{}
	}
	defer progress.Done()

	key := file
	if openEditor {
		key += "\x00open"
	}
	s.flights.Do(key, func() (interface{}, error) {
		s.annotate(ctx, key, file, openEditor, progress)
		return nil, nil
	})
}

func (s *Service) annotate(ctx context.Context, key, file string, openEditor bool, progress Progress) {
	log := s.logger.WithFields(logrus.Fields{
		"file": file,
		"run":  uuid.NewString(),
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("annotation aborted")
		}
	}()

	unlock := s.locks.Lock(file)
	defer unlock()

	// revision info is read after this point, so later callers need a new run
	s.flights.Forget(key)

	progress.Begin("annotate "+file, 2)

	result, err := s.builder.Build(ctx, file, s.mode())
	switch {
	case err == nil:
	case git.IsProviderFailure(err):
		log.WithError(err).Debug("no revision history, skipping")
		return
	default:
		log.WithError(err).Warn("annotation failed")
		return
	}
	if result == nil {
		log.Debug("provider returned nothing, skipping")
		return
	}

	for _, d := range result.Diagnostics {
		log.WithFields(logrus.Fields{
			"stage": d.Stage,
			"line":  d.Line,
		}).WithError(d.Err).Debug("annotation degraded")
	}
	progress.Worked(1)

	bundle := result.Bundle
	err = s.dispatcher.Sync(ctx, func() {
		editor, ok := s.display.FindEditor(file, openEditor)
		if !ok {
			return
		}
		if err := editor.ShowRevisionInformation(bundle); err != nil {
			log.WithError(err).Warn("failed to show revision information")
		}
	})
	if err != nil {
		log.WithError(err).Debug("display handoff abandoned")
		return
	}
	progress.Worked(1)
}

// AnnotateAll annotates files with at most workers running at once. progress
// sees one unit of work per file. It only fails when ctx is cancelled.
func (s *Service) AnnotateAll(ctx context.Context, files []string, openEditor bool, workers int, progress Progress) error {
	if progress == nil {
		progress = NopProgress{}
	}
	progress.Begin("annotate files", len(files))
	defer progress.Done()

	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.Annotate(ctx, file, openEditor, &subProgress{parent: progress})
			return nil
		})
	}

	return g.Wait()
}

// subProgress reports a whole child invocation as one unit of its parent
type subProgress struct {
	parent Progress
	once   sync.Once
}

func (p *subProgress) Begin(string, int) {}
func (p *subProgress) Worked(int)        {}

func (p *subProgress) Done() {
	p.once.Do(func() { p.parent.Worked(1) })
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
