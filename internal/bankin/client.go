package bankin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/httpclient"
	"github.com/Checker-Finance/bankin-collector/internal/pagination"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

// Client reads paginated listings from the Bankin API with a bearer token.
type Client struct {
	logger  *zap.Logger
	baseURL string
	exec    *httpclient.Executor
}

// NewClient constructs a Bankin API client. retryMax is the number of retries
// on transport errors and 5xx responses; 0 disables retrying.
func NewClient(logger *zap.Logger, cfg ClientConfig, httpClient *http.Client, retryMax int) *Client {
	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		exec:    httpclient.New(logger, httpClient, retryMax, "bankin"),
	}
}

// ResolveURL turns a cursor into a request URL. Absolute cursors are used
// as-is, relative ones are appended to the base URL. A bare query such as
// "?page=2" attaches to the base URL directly.
func (c *Client) ResolveURL(cursor string) string {
	if strings.HasPrefix(cursor, "http://") || strings.HasPrefix(cursor, "https://") {
		return cursor
	}
	if !strings.HasPrefix(cursor, "/") && !strings.HasPrefix(cursor, "?") {
		cursor = "/" + cursor
	}
	return c.baseURL + cursor
}

// GetAccountsPage fetches one page of the accounts listing.
func (c *Client) GetAccountsPage(ctx context.Context, token Token, cursor string) (pagination.Page[model.Account], error) {
	var page AccountsPage
	target, err := c.getJSON(ctx, token, cursor, &page)
	if err != nil {
		return pagination.Page[model.Account]{}, err
	}
	if page.Account == nil {
		return pagination.Page[model.Account]{}, &TransportError{URL: target, Err: ErrMalformedPage}
	}
	return pagination.Page[model.Account]{Items: *page.Account, Next: page.Link.NextCursor()}, nil
}

// GetTransactionsPage fetches one page of an account's transactions listing.
func (c *Client) GetTransactionsPage(ctx context.Context, token Token, cursor string) (pagination.Page[model.Transaction], error) {
	var page TransactionsPage
	target, err := c.getJSON(ctx, token, cursor, &page)
	if err != nil {
		return pagination.Page[model.Transaction]{}, err
	}
	if page.Transactions == nil {
		return pagination.Page[model.Transaction]{}, &TransportError{URL: target, Err: ErrMalformedPage}
	}
	return pagination.Page[model.Transaction]{Items: *page.Transactions, Next: page.Link.NextCursor()}, nil
}

// Accounts binds token to a page fetcher for the accounts listing.
func (c *Client) Accounts(token Token) pagination.FetchFunc[model.Account] {
	return func(ctx context.Context, cursor string) (pagination.Page[model.Account], error) {
		return c.GetAccountsPage(ctx, token, cursor)
	}
}

// Transactions binds token to a page fetcher for transactions listings.
func (c *Client) Transactions(token Token) pagination.FetchFunc[model.Transaction] {
	return func(ctx context.Context, cursor string) (pagination.Page[model.Transaction], error) {
		return c.GetTransactionsPage(ctx, token, cursor)
	}
}

// getJSON performs an authenticated GET on cursor and decodes the JSON response.
// Every failure is returned as a *TransportError.
func (c *Client) getJSON(ctx context.Context, token Token, cursor string, out any) (string, error) {
	target := c.ResolveURL(cursor)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return target, &TransportError{URL: target, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("Accept", "application/json")

	if err := c.exec.DoJSON(ctx, req, out); err != nil {
		te := &TransportError{URL: target, Err: err}
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			te.Status = statusErr.Status
		}
		return target, te
	}
	return target, nil
}
