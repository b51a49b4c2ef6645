package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/cart"
	"github.com/mviana-dev/sebo/internal/catalog"
	"github.com/mviana-dev/sebo/internal/checkout"
	"github.com/mviana-dev/sebo/internal/session"
	"github.com/mviana-dev/sebo/internal/testutil"
)

// cartBackend is a minimal remote cart for driving the engine.
type cartBackend struct {
	mu       sync.Mutex
	lines    []api.CartLine
	clearErr error
	clears   int
}

func (b *cartBackend) FetchCart(ctx context.Context, userID string) ([]api.CartLine, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.CartLine(nil), b.lines...), true, nil
}

func (b *cartBackend) AddItem(ctx context.Context, productID string, quantity int) error { return nil }
func (b *cartBackend) RemoveItem(ctx context.Context, productID string) error            { return nil }
func (b *cartBackend) SetItemQuantity(ctx context.Context, productID string, quantity int) error {
	return nil
}

func (b *cartBackend) ClearCart(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clears++
	return b.clearErr
}

// providerAPI scripts the payment-provider endpoints.
type providerAPI struct {
	session   api.CheckoutSession
	createErr error
	status    api.CheckoutStatus
	statusErr error
	creates   int
}

func (p *providerAPI) CreateCheckoutSession(ctx context.Context) (api.CheckoutSession, error) {
	p.creates++
	return p.session, p.createErr
}

func (p *providerAPI) CheckoutSessionStatus(ctx context.Context, sessionID string) (api.CheckoutStatus, error) {
	return p.status, p.statusErr
}

type fixedFetcher []catalog.Entry

func (f fixedFetcher) FetchCatalog(ctx context.Context) ([]catalog.Entry, error) {
	return f, nil
}

func newLoadedEngine(t *testing.T, backend *cartBackend) *cart.Engine {
	t.Helper()
	store := session.NewStore()
	require.NoError(t, store.Set(testutil.MintToken("u1", "Ana", "customer", time.Hour), ""))
	cache := catalog.NewCache(fixedFetcher{
		{ID: "b1", Title: "1984", UnitPrice: 42.50},
	}, nil)
	engine := cart.NewEngine(backend, cache, store)
	require.NoError(t, engine.Load(context.Background()))
	return engine
}

func TestSummaryDerivesFromReplica(t *testing.T) {
	backend := &cartBackend{lines: []api.CartLine{{ProductID: "b1", Quantity: 2, UnitPriceSnapshot: 42.50}}}
	m := checkout.NewManager(&providerAPI{}, newLoadedEngine(t, backend), nil)

	summary, err := m.Summary()
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "1984", summary.Lines[0].Title)
	assert.Equal(t, 85.00, summary.Total)
}

func TestBeginOpensProviderSession(t *testing.T) {
	backend := &cartBackend{lines: []api.CartLine{{ProductID: "b1", Quantity: 1, UnitPriceSnapshot: 42.50}}}
	provider := &providerAPI{session: api.CheckoutSession{ClientSecret: "cs_123", SessionID: "sess_9"}}
	m := checkout.NewManager(provider, newLoadedEngine(t, backend), nil)

	cs, err := m.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cs_123", cs.ClientSecret)
	assert.Equal(t, "sess_9", cs.SessionID)
}

func TestBeginRejectsEmptyCartLocally(t *testing.T) {
	provider := &providerAPI{}
	m := checkout.NewManager(provider, newLoadedEngine(t, &cartBackend{}), nil)

	_, err := m.Begin(context.Background())
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, 0, provider.creates)
}

func TestBeginRequiresLoadedCart(t *testing.T) {
	store := session.NewStore()
	require.NoError(t, store.Set(testutil.MintToken("u1", "Ana", "customer", time.Hour), ""))
	engine := cart.NewEngine(&cartBackend{}, catalog.NewCache(fixedFetcher{}, nil), store)
	m := checkout.NewManager(&providerAPI{}, engine, nil)

	_, err := m.Begin(context.Background())
	assert.True(t, cart.IsNotReady(err))
}

func TestResolveCompleteClearsCart(t *testing.T) {
	backend := &cartBackend{lines: []api.CartLine{{ProductID: "b1", Quantity: 2, UnitPriceSnapshot: 42.50}}}
	engine := newLoadedEngine(t, backend)
	provider := &providerAPI{status: api.CheckoutStatus{Status: "complete", CustomerEmail: "ana@example.com"}}
	m := checkout.NewManager(provider, engine, nil)

	result, err := m.Resolve(context.Background(), "sess_9")
	require.NoError(t, err)

	assert.Equal(t, checkout.StatusComplete, result.Status)
	assert.Equal(t, "ana@example.com", result.CustomerEmail)
	assert.True(t, result.CartCleared)
	assert.Empty(t, engine.Lines())
	assert.Equal(t, 1, backend.clears)
}

func TestResolvePendingLeavesCartUntouched(t *testing.T) {
	backend := &cartBackend{lines: []api.CartLine{{ProductID: "b1", Quantity: 2, UnitPriceSnapshot: 42.50}}}
	engine := newLoadedEngine(t, backend)

	for _, raw := range []string{"open", "pending"} {
		provider := &providerAPI{status: api.CheckoutStatus{Status: raw}}
		m := checkout.NewManager(provider, engine, nil)

		result, err := m.Resolve(context.Background(), "sess_9")
		require.NoError(t, err, "status %q", raw)
		assert.Equal(t, checkout.StatusPending, result.Status, "status %q", raw)
		assert.False(t, result.CartCleared)
	}

	assert.Len(t, engine.Lines(), 1)
	assert.Equal(t, 0, backend.clears)
}

func TestResolveUnknownStatusIsFailedAndCartSurvives(t *testing.T) {
	backend := &cartBackend{lines: []api.CartLine{{ProductID: "b1", Quantity: 2, UnitPriceSnapshot: 42.50}}}
	engine := newLoadedEngine(t, backend)
	provider := &providerAPI{status: api.CheckoutStatus{Status: "expired"}}
	m := checkout.NewManager(provider, engine, nil)

	result, err := m.Resolve(context.Background(), "sess_9")
	require.NoError(t, err)

	assert.Equal(t, checkout.StatusFailed, result.Status)
	assert.False(t, result.CartCleared)
	assert.Len(t, engine.Lines(), 1)
	assert.Equal(t, 85.00, engine.Total())
}

func TestResolveCompleteButClearFails(t *testing.T) {
	backend := &cartBackend{
		lines:    []api.CartLine{{ProductID: "b1", Quantity: 1, UnitPriceSnapshot: 42.50}},
		clearErr: errors.New("server refused"),
	}
	engine := newLoadedEngine(t, backend)
	provider := &providerAPI{status: api.CheckoutStatus{Status: "complete"}}
	m := checkout.NewManager(provider, engine, nil)

	result, err := m.Resolve(context.Background(), "sess_9")
	require.Error(t, err)

	// The payment outcome is still reported even though the clear failed.
	assert.Equal(t, checkout.StatusComplete, result.Status)
	assert.False(t, result.CartCleared)
	// The optimistic clear rolled back.
	assert.Len(t, engine.Lines(), 1)
}

func TestResolveStatusFetchFailure(t *testing.T) {
	provider := &providerAPI{statusErr: errors.New("network down")}
	m := checkout.NewManager(provider, newLoadedEngine(t, &cartBackend{}), nil)

	_, err := m.Resolve(context.Background(), "sess_9")
	require.Error(t, err)
}
