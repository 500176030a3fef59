package main

import (
	"github.com/dmitrijs2005/weatherdash/internal/server"
	"github.com/dmitrijs2005/weatherdash/internal/server/config"
	"github.com/dmitrijs2005/weatherdash/internal/server/repositories/repomanager"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command of the server binary.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "weatherdash-server",
		Short:        "Weather dashboard account server",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the account API over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			ctx := cmd.Context()
			app, err := server.NewApp(ctx, cfg, server.Options{Version: version, LogOutput: cmd.OutOrStdout()})
			if err != nil {
				return oops.Code("STARTUP_FAILED").Wrap(err)
			}

			app.Run(ctx)
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println("Running migrations...")
			db, _, err := repomanager.Open(cmd.Context(), dsn, repomanager.DefaultBackoff())
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}
			defer db.Close()

			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&dsn, "database_dsn", "d", config.Defaults().DatabaseDSN, "database DSN (postgres://... or sqlite://path)")
	return cmd
}
