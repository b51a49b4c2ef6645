package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Destroy the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			app.Session.Clear()
			return newFormatter(cmd, opts).Success(map[string]string{"status": "signed out"}, func(w io.Writer) {
				fmt.Fprintln(w, "Signed out.")
			})
		},
	}
}
