package whoami

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
	"github.com/tourista/session-coordinator/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"whoami",
		"Show the current session",
		"Restores the session from the durable store and prints who is logged in",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.WhoAmIMain(ctx, cfg, cmd.OutOrStdout())
		},
	)

	return cmd
}
