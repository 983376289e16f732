package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	core "github.com/honeynil/BizPromptService/internal/repository/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := core.Migrate(ctx, a.db); err != nil {
			return err
		}
		slog.Info("migrations applied")
		return nil
	},
}
