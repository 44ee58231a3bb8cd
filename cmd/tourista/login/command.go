package login

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tourista/session-coordinator/internal/business"
	"github.com/tourista/session-coordinator/internal/cmdutils"
	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/pkg/session"
)

var errMissingEmail = errors.New("--email is required")

func Cmd(buildInfo string) *cobra.Command {
	var (
		cmd         *cobra.Command
		credentials session.Credentials
	)

	cmd = cmdutils.CobraCommand(
		"login",
		"Log in to the tourism API",
		"Logs in with email and password. The password is read from stdin when --password is not given.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			if credentials.Email == "" {
				return errMissingEmail
			}

			if credentials.Password == "" {
				password, err := ReadSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				credentials.Password = password
			}

			return business.LoginMain(ctx, cfg, business.LoginInput{
				Credentials: credentials,
				Out:         cmd.OutOrStdout(),
			})
		},
	)

	cmd.Flags().StringVar(&credentials.Email, "email", "", "account email")
	cmd.Flags().StringVar(&credentials.Password, "password", "", "account password")

	return cmd
}

// ReadSecret reads the first line of r.
func ReadSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}

	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty password")
	}

	return secret, nil
}
