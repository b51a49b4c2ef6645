package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/cart"
)

// Status is the terminal payment state the cart decision hangs on.
type Status string

const (
	// StatusPending: the provider session is still open; nothing to decide.
	StatusPending Status = "pending"
	// StatusComplete: payment went through; the cart is cleared.
	StatusComplete Status = "complete"
	// StatusFailed: payment did not go through; the cart is untouched.
	StatusFailed Status = "failed"
)

// ErrEmptyCart rejects starting a payment with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty - nothing to check out")

// Summary is what the payment provider widget consumes: the derived total
// and the lines behind it.
type Summary struct {
	Lines []cart.EnrichedLine `json:"lines"`
	Total float64             `json:"total"`
}

// Result is a resolved provider session.
type Result struct {
	Status        Status `json:"status"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CartCleared   bool   `json:"cartCleared"`
}

// API is the provider-session slice of the backend contract.
type API interface {
	CreateCheckoutSession(ctx context.Context) (api.CheckoutSession, error)
	CheckoutSessionStatus(ctx context.Context, sessionID string) (api.CheckoutStatus, error)
}

// Manager is the payment collaborator boundary. The provider widget itself
// is a black box: it takes a session handle and eventually yields a
// terminal status; the manager only decides what the status means for the
// cart.
type Manager struct {
	api    API
	engine *cart.Engine
	logger *slog.Logger
}

// NewManager wires the boundary.
func NewManager(client API, engine *cart.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{api: client, engine: engine, logger: logger}
}

// Summary derives the provider's input from the current replica.
func (m *Manager) Summary() (Summary, error) {
	lines, err := m.engine.CheckoutLines()
	if err != nil {
		return Summary{}, err
	}
	return Summary{Lines: lines, Total: m.engine.Total()}, nil
}

// Begin opens a provider session for the current cart. An empty cart is
// rejected locally.
func (m *Manager) Begin(ctx context.Context) (api.CheckoutSession, error) {
	lines, err := m.engine.CheckoutLines()
	if err != nil {
		return api.CheckoutSession{}, err
	}
	if len(lines) == 0 {
		return api.CheckoutSession{}, ErrEmptyCart
	}
	return m.api.CreateCheckoutSession(ctx)
}

// Resolve maps the provider session onto a terminal status and applies the
// cart decision: complete clears the cart, anything else leaves the
// replica untouched.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (Result, error) {
	raw, err := m.api.CheckoutSessionStatus(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	result := Result{CustomerEmail: raw.CustomerEmail}
	switch raw.Status {
	case "complete":
		result.Status = StatusComplete
	case "open", "pending":
		result.Status = StatusPending
	default:
		result.Status = StatusFailed
	}

	if result.Status == StatusComplete {
		if err := m.engine.Clear(ctx); err != nil {
			return result, fmt.Errorf("payment complete but cart not cleared: %w", err)
		}
		result.CartCleared = true
		m.logger.Debug("checkout complete, cart cleared", "session", sessionID)
	}
	return result, nil
}
