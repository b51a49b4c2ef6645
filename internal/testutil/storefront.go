// Package testutil provides a scripted storefront backend for tests: a
// real HTTP server with programmable catalog, carts, auth, and one-shot
// failures, plus per-route hit counting so tests can prove an operation
// never reached the network.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/mviana-dev/sebo/internal/api"
	"github.com/mviana-dev/sebo/internal/catalog"
)

// Route keys for FailNext and Hits.
const (
	RouteLogin          = "login"
	RouteCatalog        = "catalog"
	RouteCartFetch      = "cart.fetch"
	RouteCartAdd        = "cart.add"
	RouteCartRemove     = "cart.remove"
	RouteCartQuantity   = "cart.quantity"
	RouteCartClear      = "cart.clear"
	RouteCheckoutCreate = "checkout.create"
	RouteCheckoutStatus = "checkout.status"
)

// testSigningKey signs minted tokens. The client never verifies
// signatures, so the key only needs to be consistent.
var testSigningKey = []byte("storefront-test-secret")

// MintToken builds a signed session token with the given claims.
// A zero ttl omits the exp claim.
func MintToken(userID, name, role string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
	}
	if role != "" {
		claims["role"] = role
	}
	if ttl != 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		panic(err) // test-only; a signing failure is a broken test
	}
	return token
}

type failure struct {
	status  int
	message string
}

// Storefront is the scripted backend.
type Storefront struct {
	mu       sync.Mutex
	srv      *httptest.Server
	catalog  []catalog.Entry
	carts    map[string][]api.CartLine
	sessions map[string]api.CheckoutStatus
	failures map[string][]failure
	hits     map[string]int

	// DefaultUser is the cart the body-addressed mutation routes act on.
	DefaultUser string
	// RequireAuth makes non-login routes demand a bearer token.
	RequireAuth bool
	// LoginToken and LoginRole script the login response. An empty
	// LoginToken mints one for DefaultUser.
	LoginToken string
	LoginRole  string
}

// NewStorefront starts the fake backend.
func NewStorefront() *Storefront {
	s := &Storefront{
		carts:       make(map[string][]api.CartLine),
		sessions:    make(map[string]api.CheckoutStatus),
		failures:    make(map[string][]failure),
		hits:        make(map[string]int),
		DefaultUser: "u1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /catalog-items", s.handleCatalog)
	mux.HandleFunc("GET /cart/{userID}", s.handleCartFetch)
	mux.HandleFunc("POST /cart/items", s.handleCartAdd)
	mux.HandleFunc("POST /cart/items/remove", s.handleCartRemove)
	mux.HandleFunc("POST /cart/items/quantity", s.handleCartQuantity)
	mux.HandleFunc("DELETE /cart/{userID}", s.handleCartClear)
	mux.HandleFunc("POST /checkout/session", s.handleCheckoutCreate)
	mux.HandleFunc("GET /checkout/session-status", s.handleCheckoutStatus)
	s.srv = httptest.NewServer(mux)
	return s
}

// URL is the backend base URL.
func (s *Storefront) URL() string { return s.srv.URL }

// Close shuts the backend down.
func (s *Storefront) Close() { s.srv.Close() }

// SetCatalog replaces the catalog.
func (s *Storefront) SetCatalog(entries ...catalog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = entries
}

// SetCart installs a cart for a user. A user with no cart set answers 404.
func (s *Storefront) SetCart(userID string, lines ...api.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = lines
}

// Cart returns the server-side cart for assertions.
func (s *Storefront) Cart(userID string) []api.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.CartLine(nil), s.carts[userID]...)
}

// SetCheckoutSession scripts a provider session status.
func (s *Storefront) SetCheckoutSession(sessionID string, status api.CheckoutStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = status
}

// FailNext queues a one-shot failure for a route. Queued failures apply in
// order, one per request.
func (s *Storefront) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
}

// Hits reports how many requests reached a route.
func (s *Storefront) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// begin counts the hit and pops a queued failure, writing it when present.
// Returns false when the request was consumed by a failure or auth check.
func (s *Storefront) begin(w http.ResponseWriter, r *http.Request, route string) bool {
	s.mu.Lock()
	s.hits[route]++
	var fail *failure
	if queue := s.failures[route]; len(queue) > 0 {
		fail = &queue[0]
		s.failures[route] = queue[1:]
	}
	requireAuth := s.RequireAuth
	s.mu.Unlock()

	if fail != nil {
		writeJSON(w, fail.status, map[string]string{"message": fail.message})
		return false
	}
	if requireAuth && route != RouteLogin {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
			return false
		}
	}
	return true
}

func (s *Storefront) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteLogin) {
		return
	}
	s.mu.Lock()
	token := s.LoginToken
	role := s.LoginRole
	user := s.DefaultUser
	s.mu.Unlock()

	if token == "" {
		token = MintToken(user, "", role, time.Hour)
	}
	writeJSON(w, http.StatusOK, api.LoginResult{Token: token, Role: role})
}

func (s *Storefront) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCatalog) {
		return
	}
	s.mu.Lock()
	entries := append([]catalog.Entry(nil), s.catalog...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, entries)
}

func (s *Storefront) handleCartFetch(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCartFetch) {
		return
	}
	s.mu.Lock()
	lines, ok := s.carts[r.PathValue("userID")]
	lines = append([]api.CartLine(nil), lines...)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no cart for user"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]api.CartLine{"items": lines})
}

type itemBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Storefront) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCartAdd) {
		return
	}
	var body itemBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[s.DefaultUser]
	for i := range lines {
		if lines[i].ProductID == body.ProductID {
			lines[i].Quantity += body.Quantity
			s.carts[s.DefaultUser] = lines
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}
	var price float64
	for _, entry := range s.catalog {
		if entry.ID == body.ProductID {
			price = entry.UnitPrice
		}
	}
	s.carts[s.DefaultUser] = append(lines, api.CartLine{
		ProductID:         body.ProductID,
		Quantity:          body.Quantity,
		UnitPriceSnapshot: price,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Storefront) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCartRemove) {
		return
	}
	var body itemBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]api.CartLine, 0)
	for _, line := range s.carts[s.DefaultUser] {
		if line.ProductID != body.ProductID {
			kept = append(kept, line)
		}
	}
	s.carts[s.DefaultUser] = kept
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Storefront) handleCartQuantity(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCartQuantity) {
		return
	}
	var body itemBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "quantity must be at least 1"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[s.DefaultUser]
	for i := range lines {
		if lines[i].ProductID == body.ProductID {
			lines[i].Quantity = body.Quantity
			s.carts[s.DefaultUser] = lines
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "no such cart line"})
}

func (s *Storefront) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCartClear) {
		return
	}
	s.mu.Lock()
	s.carts[r.PathValue("userID")] = []api.CartLine{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Storefront) handleCheckoutCreate(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCheckoutCreate) {
		return
	}
	writeJSON(w, http.StatusOK, api.CheckoutSession{
		ClientSecret: "cs_test_secret",
		SessionID:    "sess_1",
	})
}

func (s *Storefront) handleCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, RouteCheckoutStatus) {
		return
	}
	s.mu.Lock()
	status, ok := s.sessions[r.URL.Query().Get("session_id")]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown session"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
