package api

// CartLine is the server-authoritative cart row. A productId appears at
// most once per cart; quantity is always >= 1 (a zero-quantity line does
// not exist, it is deleted).
type CartLine struct {
	ProductID         string  `json:"productId"`
	Quantity          int     `json:"quantity"`
	UnitPriceSnapshot float64 `json:"unitPriceSnapshot"`
}

// cartPayload is the GET /cart/{userId} response envelope.
type cartPayload struct {
	Items []CartLine `json:"items"`
}

// LoginResult is the POST /auth/login response. Role may be absent; the
// caller defaults it to customer.
type LoginResult struct {
	Token string `json:"token"`
	Role  string `json:"role,omitempty"`
}

// CheckoutSession is the handle the payment provider widget consumes.
type CheckoutSession struct {
	ClientSecret string `json:"clientSecret"`
	SessionID    string `json:"sessionId"`
}

// CheckoutStatus is the raw provider-session state reported by the server.
type CheckoutStatus struct {
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// loginRequest is the POST /auth/login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// itemRequest covers the cart mutation bodies: add/increment and
// set-quantity carry both fields, remove carries only the product id.
type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

// remoteMessage is the error envelope servers answer failures with. The
// backend has answered with both key spellings across revisions.
type remoteMessage struct {
	Message  string `json:"message"`
	Mensagem string `json:"mensagem"`
	ErrorMsg string `json:"error"`
}

func (m remoteMessage) text() string {
	switch {
	case m.Message != "":
		return m.Message
	case m.Mensagem != "":
		return m.Mensagem
	default:
		return m.ErrorMsg
	}
}
