package cli

import (
	"fmt"
	"os"
	"strings"

	"semzo-prive/config"
	"semzo-prive/database"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := config.DatabaseURL()
			if err != nil {
				return err
			}
			db, err := database.Open(dsn)
			if err != nil {
				return err
			}
			if err := database.Migrate(db, strings.ToLower(currency)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
	def := os.Getenv("CURRENCY")
	if def == "" {
		def = "eur"
	}
	cmd.Flags().StringVar(&currency, "currency", def, "currency for seeded plans")
	return cmd
}
