package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/output"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <file>...",
	Short: "Annotate files with the revisions that last changed each line",
	Long: `Annotate files with the revisions that last changed each line.

Markers are stored per file and the annotated file is rendered with a revision gutter.
Files whose history is unchanged since the last run are served from the cache.

Examples:
  # Mark lines from the five most recent revisions
  crisk-annotate annotate internal/auth/login.go

  # Mark recent changes made by other people
  crisk-annotate annotate --mode unchecked *.go

  # Only refresh markers, render nothing
  crisk-annotate annotate --no-show ./...

  # Output as JSON
  crisk-annotate annotate --format=json main.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().String("mode", "", modeUsage())
	annotateCmd.Flags().Int("workers", 0, "Files annotated concurrently (default from config)")
	annotateCmd.Flags().String("format", "", "Output format: table, json, csv (default from config)")
	annotateCmd.Flags().Bool("no-show", false, "Apply markers without rendering")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	modeFlag, _ := cmd.Flags().GetString("mode")
	workers, _ := cmd.Flags().GetInt("workers")
	formatFlag, _ := cmd.Flags().GetString("format")
	noShow, _ := cmd.Flags().GetBool("no-show")

	mode, err := resolveMode(modeFlag, cfg)
	if err != nil {
		return err
	}
	if formatFlag == "" {
		formatFlag = cfg.Display.Format
	}
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return errors.ValidationErrorf("%v", err)
	}
	if workers <= 0 {
		workers = cfg.Workers
	}

	files, err := absFiles(args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger.Logger, appOptions{mode: mode, format: format, out: os.Stdout})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	if err := a.service.AnnotateAll(ctx, files, !noShow, workers, a.progress); err != nil {
		done, total := a.progress.Snapshot()
		logger.WithFields(logrus.Fields{
			"annotated": done,
			"files":     total,
		}).Warn("annotation interrupted")
		return err
	}
	return nil
}
