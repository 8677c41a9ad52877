package main

import (
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "linkmint",
		Short:         "Order fulfillment pipeline for article placements and backlink integrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(workerCmd())
	root.AddCommand(migrateCmd())
	return root
}
