// Package cli holds the semzo command tree: serve, migrate and watch.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCommand(name string) *cobra.Command {
	root := &cobra.Command{
		Use:           name,
		Short:         "Semzo Privé membership backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newWatchCommand())
	return root
}
