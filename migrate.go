package main

import (
	"log/slog"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/billbatista/easychore/config"
	"github.com/billbatista/easychore/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := store.OpenAndMigrate(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return errors.Annotate(err, "migrating database")
		}
		defer db.Close()

		slog.Info("schema up to date", "driver", cfg.DBDriver)
		return nil
	},
}
