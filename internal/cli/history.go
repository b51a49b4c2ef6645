package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mviana-dev/sebo/internal/localstate"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local mutation journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			mutations, err := app.State.ListMutations(limit)
			if err != nil {
				return WrapExitError(ExitFailure, "read journal", err)
			}

			return newFormatter(cmd, opts).Success(mutations, func(w io.Writer) {
				renderHistory(w, mutations)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func renderHistory(w io.Writer, mutations []localstate.Mutation) {
	if len(mutations) == 0 {
		fmt.Fprintln(w, "No journaled mutations yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tWHEN\tOP\tPRODUCT\tQTY\tOUTCOME")
	for _, m := range mutations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			m.Seq, m.CreatedAt.Local().Format(time.DateTime), m.Op, m.ProductID, m.Quantity, m.Outcome)
	}
	tw.Flush()
}
