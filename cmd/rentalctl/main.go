// Command rentalctl runs maintenance jobs against the rental database:
// migrations, monthly billing, expiry sweeps, backups and reminders.
package main

import (
	"context"
	"fmt"
	"os"

	"rental-service/internal/app"
	"rental-service/pkg/config"
	"rental-service/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "rentalctl"

// appFactory opens the application for one command run
type appFactory func(ctx context.Context) (*app.App, error)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: serviceName,
	}); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.GetLogger())
}

func newRootCmd(open appFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Rental management maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		migrateCmd(open),
		paymentsCmd(open),
		contractsCmd(open),
		backupCmd(open),
		notifyCmd(open),
	)
	return rootCmd
}

// withApp opens the application, runs fn and closes it again
func withApp(cmd *cobra.Command, open appFactory, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.GetLogger().Warn("Failed to close database", zap.Error(err))
		}
	}()
	return fn(ctx, a)
}

func migrateCmd(open appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database migrated")
				return nil
			})
		},
	}
}
