package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var aqueryCmd = &cobra.Command{
	Use:     "aquery [patterns...]",
	Short:   "Print the planned step chain for matching pipelines",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(manifestRoot)
		if err != nil {
			return err
		}
		pipelines, err := ws.plan()
		if err != nil {
			return err
		}
		for _, p := range selectPipelines(pipelines, args) {
			fmt.Printf("%s -> %s\n", p.Label(), p.OutputPath)
			for i, step := range p.Steps {
				fmt.Printf("  %d. %s\n", i+1, step.Kind)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aqueryCmd)
}
