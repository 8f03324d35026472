package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/database"
	"github.com/D191001/libra/internal/logger"
)

func migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Open(cmd.Context(), cfg.DB, log)
			if err != nil {
				return err
			}
			defer db.Close()

			if status {
				return database.MigrationStatus(cmd.Context(), db.DB)
			}
			if err := database.Migrate(cmd.Context(), db.DB); err != nil {
				return err
			}
			logger.MakeInfo(log, "migrations applied", zap.String("database", cfg.DB.Name))
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")
	return cmd
}
