package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonykolomeytsev/figx/internal/cache"
)

var (
	cleanAll       bool
	cleanIndexOnly bool
)

var cleanCmd = &cobra.Command{
	Use:     "clean",
	Short:   "Remove cached byproducts and/or remote-index entries",
	GroupID: "maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(filepath.Join(outDir(manifestRoot), "caches"))
		if err != nil {
			return err
		}
		defer store.Close()

		switch {
		case cleanAll:
			if err := store.Clean(""); err != nil {
				return err
			}
			fmt.Println("figx: removed all cached entries")
		case cleanIndexOnly:
			if err := store.Clean(cache.NamespaceIndex); err != nil {
				return err
			}
			fmt.Println("figx: removed cached remote-index entries")
		default:
			if err := store.Clean(cache.NamespaceByproducts); err != nil {
				return err
			}
			fmt.Println("figx: removed cached byproducts")
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "remove both byproducts and index entries")
	cleanCmd.Flags().BoolVar(&cleanIndexOnly, "index-only", false, "remove only cached remote-index entries")
	rootCmd.AddCommand(cleanCmd)
}
