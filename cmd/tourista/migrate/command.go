package migrate

import (
	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Tourista migrations",
		"Applies the session cookie migrations of the postgres durable store",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
