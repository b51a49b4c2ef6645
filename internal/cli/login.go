package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/session"
)

// identityPayload is the whoami/login output shape.
type identityPayload struct {
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName,omitempty"`
	Role        session.Role `json:"role"`
	TokenExpiry *time.Time   `json:"tokenExpiry,omitempty"`
}

func identityOutput(ident session.Identity) identityPayload {
	payload := identityPayload{
		UserID:      ident.UserID,
		DisplayName: ident.DisplayName,
		Role:        ident.Role,
	}
	if !ident.TokenExpiry.IsZero() {
		expiry := ident.TokenExpiry
		payload.TokenExpiry = &expiry
	}
	return payload
}

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SEBO_PASSWORD")
			}
			if email == "" || password == "" {
				return NewExitError(ExitCommandError, "email and password are required (--password or SEBO_PASSWORD)")
			}

			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			formatter := newFormatter(cmd, opts)

			result, err := app.Client.Login(cmd.Context(), email, password)
			if err != nil {
				if api.IsInvalidCredentials(err) {
					return WrapExitError(ExitFailure, "login rejected", err)
				}
				return WrapExitError(ExitFailure, "login failed", err)
			}

			if err := app.Session.Set(result.Token, result.Role); err != nil {
				return WrapExitError(ExitFailure, "store session", err)
			}

			ident, _ := app.Session.Get()
			return formatter.Success(identityOutput(ident), func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s (%s)\n", displayName(ident), ident.Role)
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or SEBO_PASSWORD)")
	return cmd
}

func displayName(ident session.Identity) string {
	if ident.DisplayName != "" {
		return ident.DisplayName
	}
	return ident.UserID
}
