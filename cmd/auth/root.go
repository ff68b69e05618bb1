package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/boofmebel/auth/internal/auth/app"
	"github.com/boofmebel/auth/internal/auth/store"
)

// NewRootCmd creates the root command for the auth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Session and token authentication service",
		Long: `auth issues short-lived access tokens and rotating refresh tokens
for email/password accounts, and administers those accounts.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			application, err := app.New(cfg)
			if err != nil {
				return oops.Code("INIT_FAILED").Wrap(err)
			}
			return application.Run()
		},
	}
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(_ app.Config, _ store.Store) error {
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

// withStore loads the configuration, opens and migrates the store, runs fn
// and closes the store again.
func withStore(ctx context.Context, fn func(app.Config, store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	app.NewLogger(cfg)

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DatabaseDriver).Wrap(err)
	}
	defer db.Close()

	return fn(cfg, db)
}
