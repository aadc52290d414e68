// Package cli provides the cookiewarden command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cookiewarden/internal/app"
	"cookiewarden/internal/config"
)

// NewRootCmd creates the root command.  Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookiewarden",
		Short: "Cookie classification and blocking service",
		Long: `cookiewarden drives a Chromium instance over the DevTools protocol,
removes non-essential cookies as they are written and blocks requests to
tracker and blacklisted domains.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewRulesCmd())
	cmd.AddCommand(NewTokenCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, cfg)
}

// Execute runs the command tree with a background context.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}
