package store

import (
	"go.uber.org/fx"

	"github.com/stridedash/stridedash/internal/config"
)

// New picks the store implementation from configuration. The keychain is
// opt-in; without it the refresh token lives only for the process lifetime.
func New(cfg *config.OAuthConfig) Store {
	if cfg.Keychain {
		return NewKeychain()
	}
	return NewMemory()
}

// Module provides the secret store dependencies
var Module = fx.Module("secretstore",
	fx.Provide(New),
)
