package bankin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/Checker-Finance/bankin-collector/internal/metrics"
	"github.com/Checker-Finance/bankin-collector/pkg/utils"
)

// Authenticator turns user credentials into an access token.
// Failures are never retried: without a token the run cannot proceed.
type Authenticator struct {
	logger *zap.Logger
	cfg    ClientConfig
	client *http.Client
}

// NewAuthenticator creates an Authenticator for the given API configuration.
func NewAuthenticator(logger *zap.Logger, cfg ClientConfig, timeout time.Duration) *Authenticator {
	return &Authenticator{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Authenticate logs in and exchanges the refresh token for an access token.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (Token, error) {
	refresh, err := a.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return "", err
	}
	return a.ExchangeForAccessToken(ctx, refresh)
}

// Login authenticates with POST /login and returns a refresh token.
// The client id/secret pair is sent as HTTP Basic auth.
func (a *Authenticator) Login(ctx context.Context, username, password string) (Token, error) {
	data, err := json.Marshal(LoginRequest{User: username, Password: password})
	if err != nil {
		return "", &AuthError{Op: "login", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/login"), bytes.NewReader(data))
	if err != nil {
		return "", &AuthError{Op: "login", Err: err}
	}
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var resp LoginResponse
	if err := a.post(req, "login", &resp); err != nil {
		a.logger.Error("bankin.login_failed", zap.String("user", username), zap.Error(err))
		return "", err
	}
	if resp.RefreshToken == "" {
		return "", &AuthError{Op: "login", Err: errors.New("empty refresh_token")}
	}

	a.logger.Info("bankin.login_success",
		zap.String("user", username),
		zap.String("refresh_token", utils.MaskToken(resp.RefreshToken)))
	return Token(resp.RefreshToken), nil
}

// ExchangeForAccessToken trades a refresh token for an access token with a
// form-encoded refresh_token grant on POST /token.
func (a *Authenticator) ExchangeForAccessToken(ctx context.Context, refresh Token) (Token, error) {
	if refresh == "" {
		return "", &AuthError{Op: "token", Err: errors.New("empty refresh_token")}
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.endpoint("/token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)

	start := time.Now()
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: string(refresh)}).Token()
	if err != nil {
		authErr := &AuthError{Op: "token", Err: err}
		status := "error"
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			authErr.Status = re.Response.StatusCode
			authErr.Err = errorFromBody(re.Body)
			status = strconv.Itoa(re.Response.StatusCode)
		}
		metrics.ObserveRequest("bankin-auth", http.MethodPost, status, start)
		a.logger.Error("bankin.token_failed", zap.Error(authErr))
		return "", authErr
	}
	metrics.ObserveRequest("bankin-auth", http.MethodPost, strconv.Itoa(http.StatusOK), start)

	var expiresIn time.Duration
	if !tok.Expiry.IsZero() {
		expiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	a.logger.Info("bankin.token_success",
		zap.String("access_token", utils.MaskToken(tok.AccessToken)),
		zap.String("token_type", tok.TokenType),
		zap.Duration("expires_in", expiresIn))
	return Token(tok.AccessToken), nil
}

// post sends an auth request and decodes its JSON response into out.
func (a *Authenticator) post(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		metrics.ObserveRequest("bankin-auth", req.Method, "error", start)
		return &AuthError{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck
	metrics.ObserveRequest("bankin-auth", req.Method, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return &AuthError{Op: op, Status: resp.StatusCode, Err: errorFromBody(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AuthError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

func (a *Authenticator) endpoint(path string) string {
	return strings.TrimRight(a.cfg.BaseURL, "/") + path
}

// errorFromBody extracts the API's error message, falling back to the raw body.
func errorFromBody(body []byte) error {
	var errResp ErrorResponse
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = "no response body"
	}
	return errors.New(msg)
}
