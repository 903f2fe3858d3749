// Package envconfig sources provider OAuth app registrations from
// environment variables of the form {PROVIDER}_CLIENT_ID,
// {PROVIDER}_CLIENT_SECRET and {PROVIDER}_REDIRECT_URI.
package envconfig

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
)

// Ensure ProviderConfigStore implements the interface.
var _ driven.ProviderConfigStore = (*ProviderConfigStore)(nil)

// ProviderConfigStore reads provider configs from the environment.
// Lookups happen per call, so a registration missing at startup still
// surfaces cleanly as a configuration fault on first use.
type ProviderConfigStore struct {
	lookup func(string) string
}

// NewProviderConfigStore creates a store backed by os.Getenv.
func NewProviderConfigStore() *ProviderConfigStore {
	return &ProviderConfigStore{lookup: os.Getenv}
}

// NewProviderConfigStoreFromMap creates a store backed by a fixed map.
// Used in tests.
func NewProviderConfigStoreFromMap(env map[string]string) *ProviderConfigStore {
	return &ProviderConfigStore{lookup: func(key string) string { return env[key] }}
}

// Get retrieves the provider config by type.
// Returns nil, nil if none of the provider's variables are set.
func (s *ProviderConfigStore) Get(ctx context.Context, providerType domain.ProviderType) (*domain.ProviderConfig, error) {
	prefix := strings.ToUpper(string(providerType))

	cfg := &domain.ProviderConfig{
		ProviderType: providerType,
		ClientID:     s.lookup(prefix + "_CLIENT_ID"),
		ClientSecret: s.lookup(prefix + "_CLIENT_SECRET"),
		RedirectURI:  s.lookup(prefix + "_REDIRECT_URI"),
	}
	if cfg.ClientID == "" && cfg.ClientSecret == "" && cfg.RedirectURI == "" {
		return nil, nil
	}
	return cfg, nil
}

// List retrieves the configs of all core providers that have any
// registration in the environment.
func (s *ProviderConfigStore) List(ctx context.Context) ([]*domain.ProviderConfig, error) {
	var configs []*domain.ProviderConfig
	for _, pt := range domain.CoreProviders() {
		cfg, err := s.Get(ctx, pt)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}
