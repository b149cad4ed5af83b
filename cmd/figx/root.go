// Package main is the entry point for the figx CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

// Persistent flag values accessible to every subcommand.
var (
	jobs       int
	verbosity  int
	refetch    bool
	manifestRoot string
)

var rootCmd = &cobra.Command{
	Use:   "figx",
	Short: "Import Figma design assets into a source tree deterministically",
	Long: `figx plans and executes asset pipelines declared in figx.toml and
per-directory manifest.toml files: it resolves node paths against a Figma
file's streamed document, exports and caches the referenced nodes, and
writes transformed output files (SVG, PNG, WebP, Compose ImageVector,
Android vector drawable) into the source tree.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", 0, "worker pool size (default: number of CPUs)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVar(&refetch, "refetch", false, "invalidate cached remote-index entries before running pipelines")
	rootCmd.PersistentFlags().StringVar(&manifestRoot, "root", ".", "workspace root containing figx.toml")

	rootCmd.AddGroup(
		&cobra.Group{ID: "inspect", Title: "Inspecting the workspace"},
		&cobra.Group{ID: "run", Title: "Running pipelines"},
		&cobra.Group{ID: "maintenance", Title: "Cache and credentials"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func logLevel() slog.Level {
	switch {
	case verbosity >= 3:
		return slog.LevelDebug
	case verbosity >= 2:
		return slog.LevelInfo
	case verbosity >= 1:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func newLogger() *slog.Logger {
	if os.Getenv("CI") != "" || os.Getenv("DEBUG") != "" || os.Getenv("ACTIONS_RUNNER_DEBUG") != "" || os.Getenv("ACTIONS_STEP_DEBUG") != "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
}

func exitCodeFor(err error) int {
	fmt.Fprintf(os.Stderr, "figx: %v\n", err)
	return apperrors.ExitCode(err)
}
