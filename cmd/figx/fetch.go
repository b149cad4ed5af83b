package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonykolomeytsev/figx/internal/cache"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

var fetchCmd = &cobra.Command{
	Use:     "fetch [patterns...]",
	Short:   "Prime the cache with exported node bytes, without writing any output files",
	GroupID: "run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(manifestRoot)
		if err != nil {
			return err
		}
		pipelines, err := ws.plan()
		if err != nil {
			return err
		}
		matched := selectPipelines(pipelines, args)
		if len(matched) == 0 {
			fmt.Println("figx: no resources matched")
			return nil
		}
		for i, p := range matched {
			matched[i] = trimToExport(p)
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results := eng.exec.RunAll(ctx, matched, ws.remotes)
		fmt.Println(eng.term.Summary())
		return summarizeResults(ctx, results)
	},
}

// trimToExport keeps only the ExportFromRemote prefix of a pipeline's step
// chain, so fetch warms the export cache without running the rest of the
// transform chain or touching the source tree.
func trimToExport(p figmodel.Pipeline) figmodel.Pipeline {
	for i, step := range p.Steps {
		if step.Kind == figmodel.StepExportFromRemote {
			p.Steps = p.Steps[:i+1]
			return p
		}
	}
	return p
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
