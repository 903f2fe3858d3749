package driven

import (
	"context"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// ProviderConfigStore retrieves OAuth app configurations per provider type.
// One config per provider. A missing or incomplete registration is a
// configuration fault, not a client input error.
type ProviderConfigStore interface {
	// Get retrieves the provider config by type.
	// Returns nil, nil if no registration exists for the provider.
	Get(ctx context.Context, providerType domain.ProviderType) (*domain.ProviderConfig, error)

	// List retrieves the configs of all providers that have a registration.
	List(ctx context.Context) ([]*domain.ProviderConfig, error)
}
