package logout

import (
	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"logout",
		"Log out",
		"Clears the session from memory and from the durable store. Logging out twice is not an error.",
		buildInfo,
		cmdutils.RunAsJob,
		business.LogoutMain,
	)
}
