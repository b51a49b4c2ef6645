package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/checkout"
)

// NewCheckoutCommand creates the checkout command group.
func NewCheckoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Start and resolve a payment",
	}

	cmd.AddCommand(newCheckoutBeginCommand(opts))
	cmd.AddCommand(newCheckoutStatusCommand(opts))
	return cmd
}

// checkoutBeginPayload hands the provider widget everything it consumes.
type checkoutBeginPayload struct {
	Summary checkout.Summary    `json:"summary"`
	Session api.CheckoutSession `json:"session"`
}

func newCheckoutBeginCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "begin",
		Short: "Open a payment session for the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Engine.Load(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "load cart", err)
			}

			summary, err := app.Checkout.Summary()
			if err != nil {
				return WrapExitError(ExitFailure, "derive checkout summary", err)
			}
			cs, err := app.Checkout.Begin(cmd.Context())
			if err != nil {
				if errors.Is(err, checkout.ErrEmptyCart) {
					return WrapExitError(ExitFailure, "checkout rejected", err)
				}
				return WrapExitError(ExitFailure, "open payment session", err)
			}

			payload := checkoutBeginPayload{Summary: summary, Session: cs}
			return newFormatter(cmd, opts).Success(payload, func(w io.Writer) {
				fmt.Fprintf(w, "Payment session %s opened for total %.2f\n", cs.SessionID, summary.Total)
				fmt.Fprintf(w, "Client secret: %s\n", cs.ClientSecret)
			})
		},
	}
}

func newCheckoutStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Resolve a payment session and settle the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			// The cart decision needs a loaded replica.
			if err := app.Engine.Load(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "load cart", err)
			}

			result, err := app.Checkout.Resolve(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "resolve payment session", err)
			}

			return newFormatter(cmd, opts).Success(result, func(w io.Writer) {
				switch result.Status {
				case checkout.StatusComplete:
					fmt.Fprintln(w, "Payment complete - thank you! Your cart has been cleared.")
					if result.CustomerEmail != "" {
						fmt.Fprintf(w, "A confirmation email is on its way to %s.\n", result.CustomerEmail)
					}
				case checkout.StatusPending:
					fmt.Fprintln(w, "Payment still pending - the session is open.")
				default:
					fmt.Fprintln(w, "Payment failed - your cart is untouched.")
				}
			})
		},
	}
}
