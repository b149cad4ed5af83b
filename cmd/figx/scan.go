package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:     "scan <remote-id>",
	Short:   "Stream a remote's document and list every resolvable node path",
	GroupID: "inspect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(manifestRoot)
		if err != nil {
			return err
		}
		remote, ok := ws.remotes[args[0]]
		if !ok {
			return fmt.Errorf("unknown remote %q", args[0])
		}

		eng, err := newEngine(manifestRoot, 0, ws.settings)
		if err != nil {
			return err
		}
		defer eng.close(manifestRoot)

		idx, err := eng.exec.FetchIndex(cmd.Context(), remote)
		if err != nil {
			return err
		}
		for !idx.Done() {
			time.Sleep(20 * time.Millisecond)
		}

		paths := idx.Paths()
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Println(p)
		}
		fmt.Printf("%d resolvable node paths\n", len(paths))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
