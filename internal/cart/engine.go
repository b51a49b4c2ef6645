package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/catalog"
	"github.com/mviana-dev/sebo/internal/session"
)

// State is the engine's position in its lifecycle:
//
//	Uninitialized -> Loading -> Ready <-> Mutating
//
// with Error entered on a failed load and left via a retried Load.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateMutating
	StateError
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateMutating:
		return "mutating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CartService is the remote cart contract the engine mutates against.
// Implemented by api.Client.
type CartService interface {
	FetchCart(ctx context.Context, userID string) ([]api.CartLine, bool, error)
	AddItem(ctx context.Context, productID string, quantity int) error
	RemoveItem(ctx context.Context, productID string) error
	SetItemQuantity(ctx context.Context, productID string, quantity int) error
	ClearCart(ctx context.Context, userID string) error
}

// Journal records mutation outcomes for the local audit trail. Implemented
// by localstate.Store; nil disables journaling.
type Journal interface {
	Record(op, productID string, quantity int, outcome string) error
}

// Journal outcome values.
const (
	JournalApplied    = "applied"
	JournalConfirmed  = "confirmed"
	JournalRolledBack = "rolled_back"
)

// errNoop marks a mutation that is already satisfied locally; it completes
// without a network call.
var errNoop = errors.New("mutation is a no-op")

// Engine owns the local cart replica and keeps it correct under optimistic
// mutation: apply locally first, confirm remotely, roll back verbatim on
// failure.
//
// INVARIANTS:
//   - The engine is the sole writer of the replica.
//   - A product id appears at most once; every quantity is >= 1.
//   - The total is always derived from the lines, never stored.
//   - Mutations are strictly serialized (FIFO) per engine.
//   - A completion arriving after Close or after a newer Load never
//     touches the replica.
type Engine struct {
	remote  CartService
	catalog *catalog.Cache
	session *session.Store
	journal Journal
	logger  *slog.Logger

	gate *mutationGate

	mu      sync.Mutex
	state   State
	replica []EnrichedLine
	// gen is bumped by every Load; in-flight completions stamped with an
	// older generation are dropped instead of applied to a rebuilt replica.
	gen    int64
	closed bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithJournal attaches a mutation journal.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) { e.journal = j }
}

// NewEngine creates an engine in the Uninitialized state.
func NewEngine(remote CartService, cache *catalog.Cache, store *session.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		remote:  remote,
		catalog: cache,
		session: store,
		logger:  slog.Default(),
		gate:    newMutationGate(),
		state:   StateUninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the raw cart, joins it with the catalog, and installs the
// result as the replica.
//
// A 404 is a valid empty cart: "no cart row yet" and "empty cart" are
// indistinguishable to the client and both render as empty. Any other
// failure moves the engine to Error; mutations are then rejected with
// NotReady until a reload succeeds.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errClosed
	}
	if !e.session.Valid() {
		e.mu.Unlock()
		return api.NewUnauthenticatedError()
	}
	ident, _ := e.session.Get()
	e.state = StateLoading
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	lines, found, err := e.remote.FetchCart(ctx, ident.UserID)
	if err != nil {
		e.failLoad(gen)
		return err
	}
	if !found {
		lines = nil
	}

	// A cold cache is refreshed before the join; with nothing to enrich the
	// refresh can wait for whoever needs the catalog next.
	if len(lines) > 0 && !e.catalog.Primed() {
		if _, cerr := e.catalog.Refresh(ctx); cerr != nil {
			e.failLoad(gen)
			return cerr
		}
	}

	enriched := enrich(lines, e.catalog.Get)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.gen {
		// Superseded or torn down while in flight; the completion is
		// ignored rather than applied.
		return nil
	}
	e.replica = enriched
	e.state = StateReady
	e.logger.Debug("cart loaded",
		"user", ident.UserID,
		"lines", len(enriched),
		"total", replicaTotal(enriched),
	)
	return nil
}

func (e *Engine) failLoad(gen int64) {
	e.mu.Lock()
	if !e.closed && gen == e.gen {
		e.state = StateError
	}
	e.mu.Unlock()
}

// AddItem adds a new line for the product or increments an existing one,
// snapshotting the price from the catalog.
func (e *Engine) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return newQuantityTooLowError(quantity)
	}

	// New lines need a catalog entry for the price snapshot.
	if !e.catalog.Primed() {
		if _, err := e.catalog.Refresh(ctx); err != nil {
			return err
		}
	}

	return e.mutate(ctx, "add", productID, quantity,
		func(lines []EnrichedLine) ([]EnrichedLine, error) {
			for i := range lines {
				if lines[i].ProductID == productID {
					lines[i].Quantity += quantity
					return lines, nil
				}
			}
			entry, ok := e.catalog.Get(productID)
			if !ok {
				return nil, newUnknownProductError(productID)
			}
			line := api.CartLine{
				ProductID:         productID,
				Quantity:          quantity,
				UnitPriceSnapshot: entry.UnitPrice,
			}
			return append(lines, enrichLine(line, e.catalog.Get)), nil
		},
		func(ctx context.Context) error {
			return e.remote.AddItem(ctx, productID, quantity)
		},
	)
}

// SetQuantity sets a line's quantity optimistically.
//
// Quantities below 1 are rejected locally and never produce a network
// call - the engine does not auto-delete through this operation; removal
// is explicit.
func (e *Engine) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return newQuantityTooLowError(quantity)
	}

	return e.mutate(ctx, "set_quantity", productID, quantity,
		func(lines []EnrichedLine) ([]EnrichedLine, error) {
			for i := range lines {
				if lines[i].ProductID == productID {
					lines[i].Quantity = quantity
					return lines, nil
				}
			}
			return nil, newUnknownLineError(productID)
		},
		func(ctx context.Context) error {
			return e.remote.SetItemQuantity(ctx, productID, quantity)
		},
	)
}

// RemoveLine removes a line optimistically. Removing a product with no
// line is a local no-op, which is what makes a double remove idempotent.
//
// On failure the full prior snapshot is restored, not just the one line -
// a partial restore could race a queued mutation on a different line.
func (e *Engine) RemoveLine(ctx context.Context, productID string) error {
	return e.mutate(ctx, "remove", productID, 0,
		func(lines []EnrichedLine) ([]EnrichedLine, error) {
			kept := lines[:0]
			removed := false
			for _, line := range lines {
				if line.ProductID == productID {
					removed = true
					continue
				}
				kept = append(kept, line)
			}
			if !removed {
				return nil, errNoop
			}
			return kept, nil
		},
		func(ctx context.Context) error {
			return e.remote.RemoveItem(ctx, productID)
		},
	)
}

// Clear empties the cart optimistically, rolling back to the pre-clear
// snapshot on failure. Confirmation prompts are the boundary's concern,
// not the engine's.
func (e *Engine) Clear(ctx context.Context) error {
	ident, ok := e.session.Get()
	if !ok {
		return api.NewUnauthenticatedError()
	}

	return e.mutate(ctx, "clear", "", 0,
		func(lines []EnrichedLine) ([]EnrichedLine, error) {
			if len(lines) == 0 {
				return nil, errNoop
			}
			return []EnrichedLine{}, nil
		},
		func(ctx context.Context) error {
			return e.remote.ClearCart(ctx, ident.UserID)
		},
	)
}

// mutate enforces the snapshot/optimistic/rollback discipline once for
// every mutation:
//
//	(a) snapshot the replica
//	(b) apply the change in memory
//	(c) issue the remote call
//	(d) on failure restore the snapshot verbatim; on success the
//	    optimistic value is already authoritative-equivalent
//
// apply returning an error rejects the mutation locally with no network
// call; errNoop completes it successfully the same way.
func (e *Engine) mutate(
	ctx context.Context,
	op, productID string,
	quantity int,
	apply func([]EnrichedLine) ([]EnrichedLine, error),
	remote func(context.Context) error,
) error {
	if err := e.gate.Acquire(ctx); err != nil {
		return err
	}
	defer e.gate.Release()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errClosed
	}
	if e.state != StateReady {
		state := e.state
		e.mu.Unlock()
		return newNotReadyError(state)
	}

	snapshot := cloneLines(e.replica)
	next, err := apply(cloneLines(e.replica))
	if err != nil {
		e.mu.Unlock()
		if errors.Is(err, errNoop) {
			return nil
		}
		return err
	}
	e.replica = next
	e.state = StateMutating
	gen := e.gen
	e.mu.Unlock()

	e.record(op, productID, quantity, JournalApplied)

	remoteErr := remote(ctx)

	e.mu.Lock()
	if e.closed || gen != e.gen {
		// The replica was torn down or rebuilt while the call was in
		// flight; the completion must not touch it. The caller still
		// learns how the remote call went.
		e.mu.Unlock()
		return remoteErr
	}
	if remoteErr != nil {
		e.replica = snapshot
		e.state = StateReady
		e.mu.Unlock()
		e.record(op, productID, quantity, JournalRolledBack)
		e.logger.Debug("mutation rolled back", "op", op, "product", productID, "err", remoteErr)
		return remoteErr
	}
	e.state = StateReady
	e.mu.Unlock()

	e.record(op, productID, quantity, JournalConfirmed)
	return nil
}

func (e *Engine) record(op, productID string, quantity int, outcome string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(op, productID, quantity, outcome); err != nil {
		e.logger.Warn("journal write failed", "op", op, "outcome", outcome, "err", err)
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Lines returns a copy of the replica in server order. Views never see the
// replica itself.
func (e *Engine) Lines() []EnrichedLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneLines(e.replica)
}

// Total recomputes the cart total from the current replica.
func (e *Engine) Total() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return replicaTotal(e.replica)
}

// CheckoutLines returns the lines the payment boundary consumes. The cart
// must be in a settled, loaded state.
func (e *Engine) CheckoutLines() ([]EnrichedLine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return nil, newNotReadyError(e.state)
	}
	return cloneLines(e.replica), nil
}

// Close tears the engine down. In-flight completions after Close are
// dropped rather than applied to a replica nobody is watching.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.gate.Close()
}
