package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/medstock/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Aplica o revierte el esquema en PostgreSQL",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		m, err := postgres.NewMigrator(cfg.DB.ConnectionString())
		if err != nil {
			return err
		}
		defer m.Close()

		switch args[0] {
		case "up":
			err = m.Up()
		case "down":
			err = m.Down()
		}
		if err != nil {
			return err
		}
		v, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("leer versión: %w", err)
		}
		log.Info().Str("direction", args[0]).Uint("version", v).Bool("dirty", dirty).Msg("migraciones aplicadas")
		return nil
	},
}
