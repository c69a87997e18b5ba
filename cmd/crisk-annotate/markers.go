package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Inspect stored markers",
}

var markersListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List the markers of a file, or every file with markers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMarkersList,
}

func init() {
	markersCmd.AddCommand(markersListCmd)
}

func runMarkersList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openMarkerStore(cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to open marker store: %w", err)
	}
	defer store.Close()

	if len(args) == 0 {
		files, err := store.Files(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No markers stored")
			return nil
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	}

	files, err := absFiles(args)
	if err != nil {
		return err
	}
	markers, err := store.List(ctx, files[0])
	if err != nil {
		return err
	}
	if len(markers) == 0 {
		fmt.Printf("No markers for %s\n", files[0])
		return nil
	}

	w := os.Stdout
	printf(w, "%-14s %8s %8s  %s\n", "Kind", "Start", "End", "Message")
	printf(w, "%s\n", strings.Repeat("─", 72))
	for _, m := range markers {
		printf(w, "%-14s %8d %8d  %s\n", m.Kind, m.Start, m.End, m.Message)
	}
	return nil
}
