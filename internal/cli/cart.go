package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mviana-dev/sebo/internal/cart"
	"github.com/mviana-dev/sebo/internal/view"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and mutate your cart",
	}

	cmd.AddCommand(newCartShowCommand(opts))
	cmd.AddCommand(newCartAddCommand(opts))
	cmd.AddCommand(newCartSetCommand(opts))
	cmd.AddCommand(newCartRemoveCommand(opts))
	cmd.AddCommand(newCartClearCommand(opts))
	return cmd
}

// cartPayload is the JSON output of every cart command: the (possibly
// filtered) lines plus the authoritative cart total, always recomputed
// from the full replica.
type cartPayload struct {
	Lines []cart.EnrichedLine `json:"lines"`
	Total float64             `json:"total"`
}

func newCartShowCommand(opts *RootOptions) *cobra.Command {
	flags := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg, err := flags.resolve(cmd, app.Config.ViewsPath)
			if err != nil {
				return err
			}

			if err := app.Engine.Load(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "load cart", err)
			}

			lines := view.Apply(app.Engine.Lines(), cfg)
			payload := cartPayload{Lines: lines, Total: app.Engine.Total()}
			return newFormatter(cmd, opts).Success(payload, func(w io.Writer) {
				renderCart(w, payload)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newCartAddCommand(opts *RootOptions) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add an item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartMutation(cmd, opts, func(app *App) error {
				return app.Engine.AddItem(cmd.Context(), args[0], quantity)
			})
		},
	}

	cmd.Flags().IntVar(&quantity, "qty", 1, "quantity to add")
	return cmd
}

func newCartSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set a line's quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("quantity %q is not a number", args[1]))
			}
			return runCartMutation(cmd, opts, func(app *App) error {
				return app.Engine.SetQuantity(cmd.Context(), args[0], quantity)
			})
		},
	}
}

func newCartRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartMutation(cmd, opts, func(app *App) error {
				return app.Engine.RemoveLine(cmd.Context(), args[0])
			})
		},
	}
}

func newCartClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Clearing needs explicit confirmation; the engine itself never
			// asks.
			if !yes && !confirm(cmd, "Clear the whole cart? [y/N] ") {
				return NewExitError(ExitFailure, "aborted")
			}
			return runCartMutation(cmd, opts, func(app *App) error {
				return app.Engine.Clear(cmd.Context())
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// runCartMutation loads the cart, applies one mutation, and prints the
// settled cart.
func runCartMutation(cmd *cobra.Command, opts *RootOptions, mutate func(*App) error) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Engine.Load(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "load cart", err)
	}
	if err := mutate(app); err != nil {
		return WrapExitError(ExitFailure, "cart mutation rejected", err)
	}

	payload := cartPayload{Lines: app.Engine.Lines(), Total: app.Engine.Total()}
	return newFormatter(cmd, opts).Success(payload, func(w io.Writer) {
		renderCart(w, payload)
	})
}

func renderCart(w io.Writer, payload cartPayload) {
	if len(payload.Lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tUNIT\tLINE TOTAL")
	for _, line := range payload.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n",
			line.ProductID, line.Title, line.Quantity, line.UnitPrice, line.LineTotal())
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %.2f\n", payload.Total)
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
