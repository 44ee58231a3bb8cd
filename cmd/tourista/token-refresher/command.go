package tokenrefresh

import (
	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"token-refresher",
		"Tourista keep-alive job",
		"Tourista keep-alive job refreshes the access token before it expires and purges expired cookies",
		buildInfo,
		cmdutils.RunAsService,
		business.TokenRefresherMain,
	)
}
