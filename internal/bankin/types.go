package bankin

import (
	"net/url"

	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

//
// ────────────────────────────────────────────────
//   Client configuration
// ────────────────────────────────────────────────
//

// ClientConfig holds the static Bankin API settings.
type ClientConfig struct {
	BaseURL      string // e.g. "http://localhost:3000"
	ClientID     string // Basic auth user for POST /login
	ClientSecret string // Basic auth password for POST /login
}

// Credentials are the end-user login pair.
type Credentials struct {
	Username string `json:"user"`
	Password string `json:"password"`
}

// Token is an opaque bearer credential. Login yields a refresh token,
// the token exchange yields an access token.
type Token string

// AccountsPath is the root of the accounts listing.
const AccountsPath = "/accounts"

// TransactionsPath is the root of an account's transactions listing.
func TransactionsPath(accNumber string) string {
	return AccountsPath + "/" + url.PathEscape(accNumber) + "/transactions"
}

//
// ────────────────────────────────────────────────
//   Auth payloads
// ────────────────────────────────────────────────
//

// LoginRequest is the JSON body of POST /login.
type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// LoginResponse is the response of POST /login.
type LoginResponse struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is the response of POST /token, as served by the sandbox.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

//
// ────────────────────────────────────────────────
//   Paginated listings
// ────────────────────────────────────────────────
//

// Link carries pagination metadata. A nil or empty Next ends the listing.
type Link struct {
	Next *string `json:"next"`
}

// NextCursor returns the next-page cursor, or "" when there is none.
func (l *Link) NextCursor() string {
	if l == nil || l.Next == nil {
		return ""
	}
	return *l.Next
}

// AccountsPage is one page of GET /accounts.
// Account is a pointer so a missing array can be told apart from an empty one.
type AccountsPage struct {
	Account *[]model.Account `json:"account"`
	Link    *Link            `json:"link,omitempty"`
}

// TransactionsPage is one page of GET /accounts/{acc_number}/transactions.
type TransactionsPage struct {
	Transactions *[]model.Transaction `json:"transactions"`
	Link         *Link                `json:"link,omitempty"`
}

// ErrorResponse is the error body exchanged with the API on failure.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
