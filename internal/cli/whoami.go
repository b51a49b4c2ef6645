package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ident, ok := app.Session.Get()
			if !ok {
				return NewExitError(ExitFailure, "not signed in")
			}
			if !app.Session.Valid() {
				return NewExitError(ExitFailure, "session expired - run 'sebo login'")
			}

			return newFormatter(cmd, opts).Success(identityOutput(ident), func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", displayName(ident), ident.Role)
			})
		},
	}
}
