package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mviana-dev/sebo/internal/catalog"
	"github.com/mviana-dev/sebo/internal/events"
	"github.com/mviana-dev/sebo/internal/session"
)

// DefaultTimeout bounds every call. The backend contract specifies none,
// so expiry is classified as a connectivity failure.
const DefaultTimeout = 10 * time.Second

// Client talks to the storefront backend and owns the session lifecycle
// around every call: it attaches the bearer token on the way out and
// classifies 401s and transport failures on the way back.
//
// Side effects are confined to identity teardown and a published signal.
// The client never retries and never navigates.
type Client struct {
	base    *url.URL
	http    *http.Client
	session *session.Store
	bus     events.Dispatcher
	limiter *rate.Limiter
	logger  *slog.Logger
	reqID   func() string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger attaches a structured logger for call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit throttles outbound calls to rps requests per second.
// Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRequestIDs overrides the request-id generator (fixed ids in tests).
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) { c.reqID = gen }
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, store *session.Store, bus events.Dispatcher, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		base:    base,
		session: store,
		bus:     bus,
		logger:  slog.Default(),
		reqID:   uuid.NewString,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	// Token injection lives in the transport so every request, present and
	// future, goes through the same authorize step.
	c.http.Transport = &authTransport{
		next:    c.http.Transport,
		session: store,
		reqID:   c.reqID,
	}
	return c, nil
}

// authTransport attaches the current bearer token and a correlation id to
// every outbound request.
type authTransport struct {
	next    http.RoundTripper
	session *session.Store
	reqID   func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Per RoundTripper contract the request must not be mutated in place.
	req = req.Clone(req.Context())
	if token := t.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", t.reqID())
	}

	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// callOptions tune response classification per endpoint.
type callOptions struct {
	// login: a 401 is an invalid-credential error for the caller, not a
	// session event.
	login bool
	// emptyOn404: a 404 means "no row yet" and is not an error (cart load).
	emptyOn404 bool
}

// do issues one call and classifies the outcome.
//
// found is false only when emptyOn404 is set and the server answered 404.
// out, when non-nil, receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, opts callOptions) (found bool, err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// A torn-down caller is not a connectivity event; everything else
		// (refused, DNS, timeout) means no response reached the client.
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		c.logger.Debug("call failed", "method", method, "path", path, "err", err)
		failure := NewConnectivityError(err)
		c.bus.Publish(events.Event{Type: events.TypeConnectivityLost, Cause: failure.Message})
		return false, failure
	}
	defer resp.Body.Close()

	c.logger.Debug("call completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if opts.login {
			return false, &Error{
				Code:    CodeInvalidCredentials,
				Status:  resp.StatusCode,
				Message: remoteText(resp.Body, "invalid email or password"),
			}
		}
		// Exactly one teardown and one signal per such failure.
		c.session.Clear()
		failure := newSessionExpiredError()
		c.bus.Publish(events.Event{Type: events.TypeSessionExpired, Cause: failure.Message})
		return false, failure

	case resp.StatusCode == http.StatusNotFound && opts.emptyOn404:
		return false, nil

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, &Error{
			Code:    CodeRemoteRejected,
			Status:  resp.StatusCode,
			Message: remoteText(resp.Body, http.StatusText(resp.StatusCode)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return true, nil
}

// remoteText extracts the server's own failure message so it can be shown
// verbatim, falling back when the body carries none.
func remoteText(body io.Reader, fallback string) string {
	var msg remoteMessage
	if err := json.NewDecoder(body).Decode(&msg); err == nil {
		if text := msg.text(); text != "" {
			return text
		}
	}
	return fallback
}

// FetchCatalog retrieves the whole catalog. Entries are replaced wholesale,
// never patched field-by-field.
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.Entry, error) {
	var entries []catalog.Entry
	if _, err := c.do(ctx, http.MethodGet, "/catalog-items", nil, nil, &entries, callOptions{}); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchCart retrieves the raw cart rows for a user. found is false when the
// server has no cart row yet - indistinguishable from an empty cart, and
// rendered as one.
func (c *Client) FetchCart(ctx context.Context, userID string) ([]CartLine, bool, error) {
	var payload cartPayload
	found, err := c.do(ctx, http.MethodGet, "/cart/"+userID, nil, nil, &payload, callOptions{emptyOn404: true})
	if err != nil {
		return nil, false, err
	}
	return payload.Items, found, nil
}

// AddItem adds or increments a cart line.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/items", nil, itemRequest{ProductID: productID, Quantity: quantity}, nil, callOptions{})
	return err
}

// RemoveItem removes a cart line via the dedicated remove endpoint.
func (c *Client) RemoveItem(ctx context.Context, productID string) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/items/remove", nil, itemRequest{ProductID: productID}, nil, callOptions{})
	return err
}

// SetItemQuantity sets a line's quantity. The server contract requires
// quantity >= 1; lower values are rejected client-side before any call.
func (c *Client) SetItemQuantity(ctx context.Context, productID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/items/quantity", nil, itemRequest{ProductID: productID, Quantity: quantity}, nil, callOptions{})
	return err
}

// ClearCart deletes the whole cart.
func (c *Client) ClearCart(ctx context.Context, userID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/"+userID, nil, nil, nil, callOptions{})
	return err
}

// Login exchanges credentials for a token. A 401 here is returned to the
// caller unmodified in meaning: bad credentials, not a session event.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &result, callOptions{login: true}); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// CreateCheckoutSession opens a payment-provider session for the current
// cart and returns the handle the provider widget consumes.
func (c *Client) CreateCheckoutSession(ctx context.Context) (CheckoutSession, error) {
	var cs CheckoutSession
	if _, err := c.do(ctx, http.MethodPost, "/checkout/session", nil, struct{}{}, &cs, callOptions{}); err != nil {
		return CheckoutSession{}, err
	}
	return cs, nil
}

// CheckoutSessionStatus reports the provider session's current state.
func (c *Client) CheckoutSessionStatus(ctx context.Context, sessionID string) (CheckoutStatus, error) {
	query := url.Values{"session_id": {sessionID}}
	var status CheckoutStatus
	if _, err := c.do(ctx, http.MethodGet, "/checkout/session-status", query, nil, &status, callOptions{}); err != nil {
		return CheckoutStatus{}, err
	}
	return status, nil
}
