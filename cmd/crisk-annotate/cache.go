package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/crisk-annotate/internal/cache"
	"github.com/rohankatakam/crisk-annotate/internal/models"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the annotation cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the cached annotation record of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheShow,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache backend health and cached files",
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [file]...",
	Short: "Drop cached records for the given files, or all of them",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openCache(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	files, err := absFiles(args)
	if err != nil {
		return err
	}

	entry, ok, err := store.Get(ctx, files[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("No cached annotations for %s\n", files[0])
		return nil
	}

	type groupSummary struct {
		Revision string `json:"revision"`
		Author   string `json:"author"`
		Date     string `json:"date"`
		Lines    int    `json:"lines"`
	}
	summary := struct {
		File        string                  `json:"file"`
		Fingerprint string                  `json:"fingerprint"`
		Mode        models.HighlightingMode `json:"mode"`
		Markers     int                     `json:"markers"`
		CreatedAt   string                  `json:"created_at,omitempty"`
		Groups      []groupSummary          `json:"groups"`
	}{
		File:        files[0],
		Fingerprint: entry.Fingerprint,
		Mode:        entry.Mode,
		Markers:     entry.Markers,
	}
	if entry.Bundle != nil {
		summary.CreatedAt = entry.Bundle.CreatedAt.Format("2006-01-02 15:04:05")
		for _, g := range entry.Bundle.Groups {
			summary.Groups = append(summary.Groups, groupSummary{
				Revision: models.ShortID(g.ID),
				Author:   g.Author,
				Date:     g.Date().Format("2006-01-02"),
				Lines:    len(g.Members()),
			})
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openCache(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	if len(args) == 0 {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("✅ Cache cleared")
		return nil
	}

	files, err := absFiles(args)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := store.Delete(ctx, f); err != nil {
			return err
		}
	}
	fmt.Printf("✅ Cleared %d cached file(s)\n", len(files))
	return nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Printf("Cache type: %s\n", cfg.Cache.Type)
	fmt.Printf("TTL: %s\n", cfg.Cache.TTL)

	store, err := openCache(ctx, cfg, logger.Logger)
	if err != nil {
		fmt.Printf("Status: ❌ %v\n", err)
		return nil
	}
	defer store.Close()

	if h, ok := store.(cache.HealthChecker); ok {
		if err := h.HealthCheck(ctx); err != nil {
			fmt.Printf("Status: ❌ %v\n", err)
			return nil
		}
	}
	fmt.Println("Status: ✅ Available")

	if l, ok := store.(cache.Lister); ok {
		files, err := l.Files(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Files: %d\n", len(files))
		for _, f := range files {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}
