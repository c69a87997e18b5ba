package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/rohankatakam/crisk-annotate/internal/annotate"
	"github.com/rohankatakam/crisk-annotate/internal/cache"
	"github.com/rohankatakam/crisk-annotate/internal/config"
	"github.com/rohankatakam/crisk-annotate/internal/display"
	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/git"
	"github.com/rohankatakam/crisk-annotate/internal/models"
	"github.com/rohankatakam/crisk-annotate/internal/output"
	"github.com/rohankatakam/crisk-annotate/internal/progress"
	"github.com/rohankatakam/crisk-annotate/internal/storage"
)

// app holds the wired components shared by the annotate and watch commands
type app struct {
	markers  storage.MarkerStore
	cache    cache.Store
	files    *git.FileSource
	executor *display.Executor
	terminal *display.Terminal
	builder  *annotate.Builder
	service  *annotate.Service
	progress *progress.Reporter
}

type appOptions struct {
	mode   models.HighlightingMode
	format string
	out    *os.File
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts appOptions) (*app, error) {
	markers, err := openMarkerStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := openCache(ctx, cfg, logger)
	if err != nil {
		markers.Close()
		return nil, err
	}

	a := &app{
		markers: markers,
		cache:   store,
		files:   git.NewFileSource(cfg.Git.Binary, logger),
	}

	provider := git.NewBlameProvider(cfg.Git.Binary, cfg.Git.RateLimit, cfg.Git.Timeout, logger)
	highlighter := newHighlighter(ctx, cfg, logger)
	a.builder = annotate.NewBuilder(provider, a.files, highlighter, markers, store, logger)

	color := display.ColorEnabled(cfg.Display.Color, opts.out)
	formatter := output.NewFormatter(opts.format, color)
	a.terminal = display.NewTerminal(opts.out, a.files, markers, formatter, logger)
	a.executor = display.NewExecutor(logger)

	a.service = annotate.NewService(a.builder, a.terminal, a.executor, annotate.FixedMode(opts.mode), logger)

	interactive := term.IsTerminal(int(os.Stderr.Fd())) && opts.out != os.Stderr
	a.progress = progress.NewReporter(logger, os.Stderr, interactive)

	return a, nil
}

func (a *app) Close() {
	a.executor.Close()
	if err := a.cache.Close(); err != nil {
		logger.WithError(err).Warn("failed to close cache")
	}
	if err := a.markers.Close(); err != nil {
		logger.WithError(err).Warn("failed to close marker store")
	}
}

func openMarkerStore(cfg *config.Config, logger *logrus.Logger) (storage.MarkerStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.PostgresDSN, logger)
	default:
		return storage.NewSQLiteStore(cfg.Storage.LocalPath, logger)
	}
}

// openCache puts an in-memory cache in front of the configured persistent one
func openCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (cache.Store, error) {
	front := cache.NewMemoryStore(cfg.Cache.TTL, logger)

	switch cfg.Cache.Type {
	case "memory":
		return front, nil
	case "redis":
		r := cfg.Cache.Redis
		back, err := cache.NewRedisStore(ctx, r.Host, r.Port, r.Password, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, err
		}
		return cache.NewTieredStore(front, back, logger), nil
	default:
		back, err := cache.NewBoltStore(cfg.Cache.Directory, logger)
		if err != nil {
			return nil, err
		}
		return cache.NewTieredStore(front, back, logger), nil
	}
}

func newHighlighter(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *annotate.StdHighlighter {
	ignore := append([]string(nil), cfg.Highlight.IgnoreAuthors...)
	if cfg.Highlight.IgnoreSelf {
		wd, _ := os.Getwd()
		if name, err := git.UserName(ctx, cfg.Git.Binary, wd); err == nil && name != "" {
			ignore = append(ignore, name)
		} else {
			logger.Debug("git user.name unavailable, not ignoring own changes")
		}
	}
	return annotate.NewStdHighlighter(cfg.Highlight.Window, ignore)
}

// resolveMode returns the --mode flag value, falling back to the configured mode
func resolveMode(flag string, cfg *config.Config) (models.HighlightingMode, error) {
	if flag == "" {
		flag = cfg.Highlight.Mode
	}
	mode, err := models.ParseHighlightingMode(flag)
	if err != nil {
		return "", errors.ValidationErrorf("%v", err)
	}
	return mode, nil
}

// modeUsage is the help text of the --mode flag
func modeUsage() string {
	names := make([]string, 0, 3)
	for _, m := range models.Modes() {
		names = append(names, m.String())
	}
	return "Highlighting mode: " + strings.Join(names, ", ") + " (default from config)"
}

// absFiles makes every path absolute so cache and marker keys are stable
func absFiles(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
