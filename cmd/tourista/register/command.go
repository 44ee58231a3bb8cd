package register

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/cmd/tourista/login"
	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/pkg/session"
)

func Cmd(buildInfo string) *cobra.Command {
	var (
		cmd          *cobra.Command
		registration session.Registration
		role         string
	)

	cmd = cmdutils.CobraCommand(
		"register",
		"Create an account",
		"Registers a user or tour guide account and logs it in. The password is read from stdin when --password is not given.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			switch session.Role(role) {
			case session.RoleUser, session.RoleTourGuide:
				registration.Role = session.Role(role)
			default:
				return fmt.Errorf("unknown role %q, expected %q or %q", role, session.RoleUser, session.RoleTourGuide)
			}

			if registration.Password == "" {
				password, err := login.ReadSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				registration.Password = password
			}
			if registration.ConfirmPassword == "" {
				registration.ConfirmPassword = registration.Password
			}

			return business.RegisterMain(ctx, cfg, business.RegisterInput{
				Registration: registration,
				Out:          cmd.OutOrStdout(),
			})
		},
	)

	flags := cmd.Flags()
	flags.StringVar(&registration.FirstName, "first-name", "", "first name")
	flags.StringVar(&registration.LastName, "last-name", "", "last name")
	flags.StringVar(&registration.Email, "email", "", "account email")
	flags.StringVar(&registration.Password, "password", "", "account password")
	flags.StringVar(&registration.ConfirmPassword, "confirm-password", "", "password confirmation, defaults to --password")
	flags.StringVar(&registration.PhoneNumber, "phone", "", "phone number")
	flags.StringVar(&registration.Country, "country", "", "country")
	flags.StringVar(&role, "role", string(session.RoleUser), "account role: user or tourGuide")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
