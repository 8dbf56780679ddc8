package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables and the alert index, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "migrate")
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.ensureSchema(ctx); err != nil {
			return err
		}
		a.log.Info("schema is up to date", "feed", a.cfg.Feed.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
