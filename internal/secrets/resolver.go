package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/bankin"
	pkgsecrets "github.com/Checker-Finance/bankin-collector/pkg/secrets"
)

// Resolver loads a named secret and parses it into a config value of type T.
type Resolver[T any] struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
}

// NewResolver constructs a Resolver reading from provider.
func NewResolver[T any](logger *zap.Logger, provider pkgsecrets.Provider) *Resolver[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver[T]{logger: logger, provider: provider}
}

// Resolve fetches secretName and hands its key-value map to parse.
// parse should validate required fields.
func (r *Resolver[T]) Resolve(ctx context.Context, secretName string, parse func(map[string]string) (T, error)) (T, error) {
	var zero T

	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		return zero, fmt.Errorf("resolve secret %q: %w", secretName, err)
	}

	cfg, err := parse(secretMap)
	if err != nil {
		return zero, fmt.Errorf("parse secret %q: %w", secretName, err)
	}

	r.logger.Info("aws.secret_resolved", zap.String("key", secretName))
	return cfg, nil
}

// BankinSecret is the API client configuration and login credentials held in
// one secret.
type BankinSecret struct {
	Client      bankin.ClientConfig
	Credentials bankin.Credentials
}

// ParseBankinSecret returns a parser for secrets shaped
// {"user","password","client_id","client_secret"}. user and password are
// required; a missing client pair keeps the one from base.
func ParseBankinSecret(base bankin.ClientConfig) func(map[string]string) (BankinSecret, error) {
	return func(m map[string]string) (BankinSecret, error) {
		out := BankinSecret{
			Client: base,
			Credentials: bankin.Credentials{
				Username: strings.TrimSpace(m["user"]),
				Password: m["password"],
			},
		}

		var missing []string
		if out.Credentials.Username == "" {
			missing = append(missing, "user")
		}
		if out.Credentials.Password == "" {
			missing = append(missing, "password")
		}
		if len(missing) > 0 {
			return BankinSecret{}, fmt.Errorf("missing keys: %s", strings.Join(missing, ", "))
		}

		id, secret := strings.TrimSpace(m["client_id"]), m["client_secret"]
		switch {
		case id != "" && secret != "":
			out.Client.ClientID = id
			out.Client.ClientSecret = secret
		case id != "" || secret != "":
			return BankinSecret{}, fmt.Errorf("client_id and client_secret must be set together")
		}
		return out, nil
	}
}
