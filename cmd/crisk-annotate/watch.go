package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/crisk-annotate/internal/git"
	"github.com/rohankatakam/crisk-annotate/internal/output"
	"github.com/rohankatakam/crisk-annotate/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-annotate files as they change",
	Long: `Watch a directory tree and refresh markers whenever a file is saved.

Changed files are only rendered when they are shown (--show) or when --open is set.

Examples:
  # Keep markers fresh for the whole repository
  crisk-annotate watch .

  # Render main.go every time anything saves it
  crisk-annotate watch --show main.go .`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("mode", "", modeUsage())
	watchCmd.Flags().StringSlice("show", nil, "Files to render on every change")
	watchCmd.Flags().Bool("open", false, "Render every changed file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := "."
	if len(args) == 1 {
		root = args[0]
	} else if wd, err := os.Getwd(); err == nil {
		// default to the whole repository
		if top, err := git.FindGitRoot(ctx, cfg.Git.Binary, wd); err == nil {
			root = top
		}
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	show, _ := cmd.Flags().GetStringSlice("show")
	openAll, _ := cmd.Flags().GetBool("open")

	mode, err := resolveMode(modeFlag, cfg)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(cfg.Display.Format)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger.Logger, appOptions{mode: mode, format: format, out: os.Stdout})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	shown, err := absFiles(show)
	if err != nil {
		return err
	}
	for _, f := range shown {
		a.terminal.Open(f)
	}
	// render the shown files once before waiting for changes
	if err := a.service.AnnotateAll(ctx, a.terminal.OpenFiles(), false, cfg.Workers, nil); err != nil {
		return nil
	}

	handler := func(ctx context.Context, file string) {
		a.service.Annotate(ctx, file, openAll, nil)
	}

	w, err := watch.New(root, cfg.Watch.Debounce, cfg.Watch.Exclude, handler, logger.Logger)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.WithField("root", root).Info("watching for changes, press Ctrl+C to stop")

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
