package cmd

import (
	"fmt"

	"bucket-list-backend/internal/config"
	"bucket-list-backend/internal/repository/postgres"
	"bucket-list-backend/internal/repository/sqlite"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Apply database migrations",
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch cfg.Database.Driver {
		case config.DriverPostgres:
			store, err := postgres.Open(ctx, cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

		case config.DriverSQLite:
			// sqlite migrates on open
			store, err := sqlite.Open(cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer store.Close()

		default:
			return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
		}

		log.Info().Str("driver", cfg.Database.Driver).Msg("Database is up to date")
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
