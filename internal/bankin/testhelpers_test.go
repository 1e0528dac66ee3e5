package bankin

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// mockTransport is an http.RoundTripper that delegates to a handler function.
type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

// jsonResponse builds a fake *http.Response with the given status and JSON body.
func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// writeJSON encodes v as JSON into w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("test helper writeJSON: " + err.Error())
	}
}

func testConfig() ClientConfig {
	return ClientConfig{
		BaseURL:      "http://bankin.test",
		ClientID:     "BankinClientId",
		ClientSecret: "secret",
	}
}

// newAuthenticatorWithTransport creates an Authenticator with a custom HTTP transport.
func newAuthenticatorWithTransport(t *testing.T, fn func(*http.Request) (*http.Response, error)) *Authenticator {
	t.Helper()
	a := NewAuthenticator(zap.NewNop(), testConfig(), time.Second)
	a.client = &http.Client{Transport: &mockTransport{fn: fn}}
	return a
}

// newTestClient returns a Client pointed at serverURL with retries disabled.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.BaseURL = serverURL
	return NewClient(zap.NewNop(), cfg, &http.Client{Timeout: time.Second}, 0)
}

func strPtr(s string) *string { return &s }
