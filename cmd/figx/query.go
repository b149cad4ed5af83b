package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:     "query [patterns...]",
	Short:   "List resources matching one or more target patterns",
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
		matched := selectPipelines(pipelines, args)
		seen := make(map[string]bool, len(matched))
		for _, p := range matched {
			label := p.Resource.Label()
			if seen[label] {
				continue
			}
			seen[label] = true
			fmt.Println(label)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
