package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/cache"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

var dryRun bool

var importCmd = &cobra.Command{
	Use:     "import [patterns...]",
	Short:   "Run the full pipeline for matching resources, writing output files",
	GroupID: "run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd.Context(), args, dryRun)
	},
}

func init() {
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and print the pipeline list without touching network or cache")
	rootCmd.AddCommand(importCmd)
}

// runPipelines implements `import`: it plans, selects, and runs the matching
// pipelines in full. `fetch` has its own command body in fetch.go, which
// trims each pipeline to its export prefix before running it.
func runPipelines(parentCtx context.Context, patterns []string, dry bool) error {
	ws, err := loadWorkspace(manifestRoot)
	if err != nil {
		return err
	}
	pipelines, err := ws.plan()
	if err != nil {
		return err
	}
	matched := selectPipelines(pipelines, patterns)
	if dry {
		for _, p := range matched {
			fmt.Printf("%s -> %s\n", p.Label(), p.OutputPath)
		}
		return nil
	}
	if len(matched) == 0 {
		fmt.Println("figx: no resources matched")
		return nil
	}

	eng, err := newEngine(manifestRoot, len(matched), ws.settings)
	if err != nil {
		return err
	}
	defer eng.close(manifestRoot)

	if refetch {
		for _, remote := range ws.remotes {
			_ = eng.store.InvalidateIndex(cache.IndexKey(remote.FileKey, remote.ContainerNodeIDs))
		}
	}

	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := eng.exec.RunAll(ctx, matched, ws.remotes)
	fmt.Println(eng.term.Summary())
	return summarizeResults(ctx, results)
}

// summarizeResults turns a run's per-pipeline results into a single error
// that preserves the CategoryCancelled/CategoryTimedOut distinction, so
// apperrors.ExitCode maps an interrupted run to exit code 3 instead of the
// generic pipeline-failure code 1.
func summarizeResults(ctx context.Context, results []figmodel.PipelineResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.CategoryCancelled, "cmd.run_pipelines", fmt.Errorf("%d of %d pipelines failed: %w", failed, len(results), ctx.Err()))
	}
	for _, r := range results {
		if apperrors.IsCategory(r.Err, apperrors.CategoryCancelled) || apperrors.IsCategory(r.Err, apperrors.CategoryTimedOut) {
			return apperrors.Wrap(apperrors.CategoryCancelled, "cmd.run_pipelines", fmt.Errorf("%d of %d pipelines failed: %w", failed, len(results), r.Err))
		}
	}
	return fmt.Errorf("%d of %d pipelines failed", failed, len(results))
}
