package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/tourista/session-coordinator/cmd/tourista/call"
	"github.com/tourista/session-coordinator/cmd/tourista/login"
	"github.com/tourista/session-coordinator/cmd/tourista/logout"
	"github.com/tourista/session-coordinator/cmd/tourista/migrate"
	"github.com/tourista/session-coordinator/cmd/tourista/register"
	tokenrefresh "github.com/tourista/session-coordinator/cmd/tourista/token-refresher"
	"github.com/tourista/session-coordinator/cmd/tourista/whoami"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	isServiceCmd     bool
	gracefulShutdown time.Duration
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Tourista Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tourista",
		Short: "Tourista",
		Long:  "Tourista client for the tourism REST API, keeping the login session alive across calls.",
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 1*time.Second, "graceful shutdown")

	refresher := tokenrefresh.Cmd(BuildInfo)
	refresher.PreRun = func(*cobra.Command, []string) { isServiceCmd = true }

	cmd.AddCommand(
		versionCmd,
		login.Cmd(BuildInfo),
		register.Cmd(BuildInfo),
		logout.Cmd(BuildInfo),
		whoami.Cmd(BuildInfo),
		call.Cmd(BuildInfo),
		refresher,
		migrate.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "failed to run the command", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if isServiceCmd {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
