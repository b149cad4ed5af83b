package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:     "info",
	Short:   "Summarize the declared remotes, profiles, and resources",
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
		fmt.Printf("workspace root: %s\n", ws.root)
		fmt.Printf("remotes:        %d\n", len(ws.remotes))
		fmt.Printf("profiles:       %d\n", len(ws.profiles))
		fmt.Printf("resources:      %d\n", len(ws.resources))
		fmt.Printf("pipelines:      %d\n", len(pipelines))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
