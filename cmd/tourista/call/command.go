package call

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
	"github.com/tourista/session-coordinator/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var (
		cmd *cobra.Command
		in  business.CallInput
	)

	cmd = cmdutils.CobraCommand(
		"call PATH",
		"Call a protected API endpoint",
		"Sends one request to the tourism API with the current session. An expired access token is refreshed transparently.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			in.Path = cmd.Flags().Arg(0)
			in.Out = cmd.OutOrStdout()

			return business.CallMain(ctx, cfg, in)
		},
	)
	cmd.Args = cobra.ExactArgs(1)

	flags := cmd.Flags()
	flags.StringVarP(&in.Method, "method", "X", http.MethodGet, "HTTP method")
	flags.StringVarP(&in.Body, "data", "d", "", "request body")
	flags.StringArrayVarP(&in.Headers, "header", "H", nil, "extra header as 'Name: value'")

	return cmd
}
