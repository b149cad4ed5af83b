package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonykolomeytsev/figx/internal/token"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Verify a credential is resolvable for every declared remote",
	GroupID: "maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(manifestRoot)
		if err != nil {
			return err
		}
		if len(ws.remotes) == 0 {
			fmt.Println("figx: no remotes declared")
			return nil
		}
		var failures int
		for id, remote := range ws.remotes {
			if err := token.Verify(cmd.Context(), remote.TokenSources); err != nil {
				fmt.Printf("%-20s FAIL  %v\n", id, err)
				failures++
				continue
			}
			fmt.Printf("%-20s OK\n", id)
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d remotes have no resolvable credential", failures, len(ws.remotes))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
