package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/crisk-annotate/internal/config"
	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logging.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var e *errors.Error
		if verbose && stderrors.As(err, &e) {
			fmt.Fprint(os.Stderr, e.DetailedString())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.GetType(err) == errors.ErrorTypeConfig || errors.GetType(err) == errors.ErrorTypeValidation {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crisk-annotate",
	Short: "Revision-aware line annotations for files under version control",
	Long: `crisk-annotate maps every line of a file to the revision that last changed it,
marks the lines worth a second look, and renders the result next to the source.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
			cfg = config.Default()
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		// Initialize logger
		logger, err = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			OutputFile: cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			JSONFormat: cfg.Log.Format == "json",
			AddSource:  verbose,
		})
		if err != nil {
			return err
		}

		result := cfg.Validate()
		for _, w := range result.Warnings {
			logger.Warn(w)
		}
		return cfg.MustValidate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .crisk-annotate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`crisk-annotate {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	// Add subcommands
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(markersCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crisk-annotate %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
	},
}
