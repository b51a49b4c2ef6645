package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/catalog"
	"github.com/mviana-dev/sebo/internal/events"
	"github.com/mviana-dev/sebo/internal/session"
	"github.com/mviana-dev/sebo/internal/testutil"
)

// clientFixture bundles a client with its session store and event counters.
type clientFixture struct {
	client  *api.Client
	session *session.Store
	bus     events.Dispatcher

	expired      atomic.Int64
	connectivity atomic.Int64
}

func newClientFixture(t *testing.T, baseURL string, opts ...api.Option) *clientFixture {
	t.Helper()
	f := &clientFixture{
		session: session.NewStore(),
		bus:     events.NewDispatcher(),
	}
	f.bus.Subscribe(events.TypeSessionExpired, func(events.Event) { f.expired.Add(1) })
	f.bus.Subscribe(events.TypeConnectivityLost, func(events.Event) { f.connectivity.Add(1) })

	client, err := api.NewClient(baseURL, f.session, f.bus, opts...)
	require.NoError(t, err)
	f.client = client
	return f
}

func (f *clientFixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Set(testutil.MintToken("u1", "Ana", "customer", time.Hour), ""))
}

func TestClientAttachesBearerTokenAndRequestID(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-Id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	f := newClientFixture(t, srv.URL, api.WithRequestIDs(func() string { return "req-123" }))
	f.signIn(t)
	token := f.session.Token()

	_, err := f.client.FetchCatalog(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer "+token, gotAuth)
	assert.Equal(t, "req-123", gotReqID)
}

func TestClientOmitsBearerWhenSignedOut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	f := newClientFixture(t, srv.URL)
	_, err := f.client.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestLogin(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.LoginRole = "admin"

	f := newClientFixture(t, srv.URL())
	result, err := f.client.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "admin", result.Role)
}

func TestLoginRejectionIsNotASessionEvent(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.FailNext(testutil.RouteLogin, http.StatusUnauthorized, "credenciais invalidas")

	f := newClientFixture(t, srv.URL())
	f.signIn(t)

	_, err := f.client.Login(context.Background(), "ana@example.com", "wrong")
	require.True(t, api.IsInvalidCredentials(err))

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "credenciais invalidas", apiErr.Message)

	// The existing session survives a failed re-login.
	assert.NotEmpty(t, f.session.Token())
	assert.Equal(t, int64(0), f.expired.Load())
}

func TestMidSession401TearsDownExactlyOnce(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.FailNext(testutil.RouteCartFetch, http.StatusUnauthorized, "token invalido")

	f := newClientFixture(t, srv.URL())
	f.signIn(t)

	_, _, err := f.client.FetchCart(context.Background(), "u1")
	require.True(t, api.IsSessionExpired(err))

	assert.Empty(t, f.session.Token())
	_, ok := f.session.Get()
	assert.False(t, ok)
	assert.Equal(t, int64(1), f.expired.Load())
}

func TestConnectivityFailurePublishesSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing is listening anymore

	f := newClientFixture(t, srv.URL)
	_, err := f.client.FetchCatalog(context.Background())

	require.True(t, api.IsConnectivity(err))
	assert.Equal(t, int64(1), f.connectivity.Load())
	assert.Equal(t, int64(0), f.expired.Load())
}

func TestCancelledContextIsNotAConnectivityEvent(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()

	f := newClientFixture(t, srv.URL())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.client.FetchCatalog(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), f.connectivity.Load())
}

func TestRemoteRejectionCarriesServerMessageVerbatim(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.FailNext(testutil.RouteCartAdd, http.StatusUnprocessableEntity, "quantidade indisponivel em estoque")

	f := newClientFixture(t, srv.URL())
	f.signIn(t)

	err := f.client.AddItem(context.Background(), "b1", 3)
	require.True(t, api.IsRemoteRejected(err))

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "quantidade indisponivel em estoque", apiErr.Message)
}

func TestFetchCartMissingRowIsNotAnError(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()

	f := newClientFixture(t, srv.URL())
	f.signIn(t)

	lines, found, err := f.client.FetchCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, lines)
}

func TestFetchCartReturnsRows(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.SetCart("u1", api.CartLine{ProductID: "b1", Quantity: 2, UnitPriceSnapshot: 42.50})

	f := newClientFixture(t, srv.URL())
	f.signIn(t)

	lines, found, err := f.client.FetchCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, lines, 1)
	assert.Equal(t, api.CartLine{ProductID: "b1", Quantity: 2, UnitPriceSnapshot: 42.50}, lines[0])
}

func TestFetchCatalog(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.SetCatalog(
		catalog.Entry{ID: "b1", Title: "1984", UnitPrice: 42.50},
		catalog.Entry{ID: "b2", Title: "Dune", UnitPrice: 30.00},
	)

	f := newClientFixture(t, srv.URL())
	entries, err := f.client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1984", entries[0].Title)
}

func TestCartMutationEndpoints(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.SetCatalog(catalog.Entry{ID: "b1", Title: "1984", UnitPrice: 42.50})
	srv.SetCart("u1")

	f := newClientFixture(t, srv.URL())
	f.signIn(t)
	ctx := context.Background()

	require.NoError(t, f.client.AddItem(ctx, "b1", 2))
	require.NoError(t, f.client.SetItemQuantity(ctx, "b1", 5))

	cart := srv.Cart("u1")
	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)

	require.NoError(t, f.client.RemoveItem(ctx, "b1"))
	assert.Empty(t, srv.Cart("u1"))

	require.NoError(t, f.client.ClearCart(ctx, "u1"))
	assert.Equal(t, 1, srv.Hits(testutil.RouteCartClear))
}

func TestCheckoutSessionFlow(t *testing.T) {
	srv := testutil.NewStorefront()
	defer srv.Close()
	srv.SetCheckoutSession("sess_1", api.CheckoutStatus{Status: "complete", CustomerEmail: "ana@example.com"})

	f := newClientFixture(t, srv.URL())
	f.signIn(t)
	ctx := context.Background()

	cs, err := f.client.CreateCheckoutSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cs.ClientSecret)
	assert.Equal(t, "sess_1", cs.SessionID)

	status, err := f.client.CheckoutSessionStatus(ctx, cs.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "complete", status.Status)
	assert.Equal(t, "ana@example.com", status.CustomerEmail)
}
