package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trendchop/internal/storage/migrations"
	"trendchop/internal/storage/postgres"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	var clickhouseDSN, postgresDSN string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded ClickHouse and PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("clickhouse-dsn") {
				cfg.Sinks.ClickHouseDSN = clickhouseDSN
			}
			if cmd.Flags().Changed("postgres-dsn") {
				cfg.Sinks.PostgresDSN = postgresDSN
			}
			if cfg.Sinks.ClickHouseDSN == "" && cfg.Sinks.PostgresDSN == "" {
				return fmt.Errorf("nothing to migrate: set --clickhouse-dsn and/or --postgres-dsn")
			}

			ctx := cmd.Context()
			if cfg.Sinks.ClickHouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Sinks.ClickHouseDSN)
				if err != nil {
					return fmt.Errorf("clickhouse: %w", err)
				}
				conn.Close()
				log.Info().Msg("clickhouse migrations applied")
			}

			if cfg.Sinks.PostgresDSN != "" {
				pool, err := postgres.NewPool(ctx, cfg.Sinks.PostgresDSN)
				if err != nil {
					return fmt.Errorf("postgres: %w", err)
				}
				defer pool.Close()
				if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
					return fmt.Errorf("postgres: %w", err)
				}
				log.Info().Msg("postgres migrations applied")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse DSN")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN")
	return cmd
}
