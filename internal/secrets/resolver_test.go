package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/bankin"
)

type fakeProvider struct {
	secrets map[string]map[string]string
	err     error
	calls   int
}

func (f *fakeProvider) GetSecret(_ context.Context, name string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.secrets[name]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return s, nil
}

var base = bankin.ClientConfig{BaseURL: "http://localhost:3000", ClientID: "BankinClientId", ClientSecret: "secret"}

func TestResolve_FullSecret(t *testing.T) {
	p := &fakeProvider{secrets: map[string]map[string]string{
		"prod/bankin": {"user": "alice", "password": "pw", "client_id": "id-2", "client_secret": "s-2"},
	}}
	r := NewResolver[BankinSecret](zap.NewNop(), p)

	got, err := r.Resolve(context.Background(), "prod/bankin", ParseBankinSecret(base))
	require.NoError(t, err)
	assert.Equal(t, bankin.Credentials{Username: "alice", Password: "pw"}, got.Credentials)
	assert.Equal(t, "id-2", got.Client.ClientID)
	assert.Equal(t, "s-2", got.Client.ClientSecret)
	assert.Equal(t, base.BaseURL, got.Client.BaseURL)
}

func TestResolve_KeepsBaseClientPair(t *testing.T) {
	p := &fakeProvider{secrets: map[string]map[string]string{
		"dev/bankin": {"user": "BankinUser", "password": "12345678"},
	}}
	r := NewResolver[BankinSecret](nil, p)

	got, err := r.Resolve(context.Background(), "dev/bankin", ParseBankinSecret(base))
	require.NoError(t, err)
	assert.Equal(t, base, got.Client)
}

func TestResolve_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		secret map[string]string
		errMsg string
	}{
		{name: "no credentials", secret: map[string]string{}, errMsg: "missing keys: user, password"},
		{name: "no password", secret: map[string]string{"user": "u"}, errMsg: "missing keys: password"},
		{name: "half client pair", secret: map[string]string{"user": "u", "password": "p", "client_id": "x"}, errMsg: "must be set together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{secrets: map[string]map[string]string{"s": tt.secret}}
			_, err := NewResolver[BankinSecret](nil, p).Resolve(context.Background(), "s", ParseBankinSecret(base))
			require.Error(t, err)
			assert.Contains(t, err.Error(), `parse secret "s"`)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResolve_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("access denied")}

	_, err := NewResolver[BankinSecret](nil, p).Resolve(context.Background(), "dev/bankin", ParseBankinSecret(base))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, 1, p.calls)
}
