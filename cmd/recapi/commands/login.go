package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/recapi/internal/auth"
	"github.com/fivetwenty-io/recapi/internal/constants"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token",
		Long:  "Save the bearer token used to authenticate with the records API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				var err error

				token, err = promptToken(cmd)
				if err != nil {
					return err
				}
			}

			token = strings.TrimSpace(token)
			if token == "" {
				return constants.ErrEmptyToken
			}

			store, err := credentialStore()
			if err != nil {
				return err
			}

			err = store.SetToken(token)
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Token saved to %s\n", store.Path())

			expiry, err := auth.TokenExpiry(token)
			switch {
			case errors.Is(err, constants.ErrInvalidJWTFormat), errors.Is(err, constants.ErrNoExpirationClaim):
				// Opaque token or no expiry; nothing to report.
			case err != nil:
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not read token expiry: %v\n", err)
			case auth.IsExpired(token, time.Now(), 0):
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: token expired at %s\n", formatTime(expiry))
			default:
				_, _ = fmt.Fprintf(out, "Token expires at %s\n", formatTime(expiry))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "bearer token (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		Long:  "Delete the bearer token saved by login",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentialStore()
			if err != nil {
				return err
			}

			err = store.Clear()
			if err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}

// promptToken reads the token without echo from a terminal, or as a line
// from piped input.
func promptToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(cmd.InOrStdin())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		return line, nil
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), "Token: ")

	raw, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	return string(raw), nil
}
