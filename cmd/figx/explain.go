package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonykolomeytsev/figx/internal/cache"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

var explainCmd = &cobra.Command{
	Use:     "explain <label>",
	Short:   "Show one resource's resolved node path, output path, and step fingerprints",
	GroupID: "inspect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(manifestRoot)
		if err != nil {
			return err
		}
		pipelines, err := ws.plan()
		if err != nil {
			return err
		}
		matched := selectPipelines(pipelines, []string{args[0]})
		if len(matched) == 0 {
			return fmt.Errorf("no pipeline matches %q", args[0])
		}
		for _, p := range matched {
			fmt.Printf("label:       %s\n", p.Label())
			fmt.Printf("node path:   %s\n", p.NodePath)
			fmt.Printf("output path: %s\n", p.OutputPath)
			var dep figmodel.Fingerprint
			for i, step := range p.Steps {
				fp := cache.Fingerprint(string(step.Kind), stepParams(step), dep)
				fmt.Printf("  %d. %-34s fingerprint=%s\n", i+1, step.Kind, cache.String(fp))
				dep = fp
			}
			fmt.Println()
		}
		return nil
	},
}

func stepParams(s figmodel.StepSpec) []string {
	switch s.Kind {
	case figmodel.StepExportFromRemote:
		return []string{s.Format, fmt.Sprintf("%v", s.Scale)}
	case figmodel.StepRenderRasterFromSvg:
		return []string{fmt.Sprintf("%v", s.Scale)}
	case figmodel.StepTransformRasterToWebp:
		return []string{fmt.Sprintf("%d", s.Quality)}
	case figmodel.StepTransformSvgToImageVector:
		return []string{s.Package}
	case figmodel.StepWriteFile:
		return []string{s.Path}
	default:
		return nil
	}
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
