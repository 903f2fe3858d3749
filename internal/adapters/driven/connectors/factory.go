package connectors

import (
	"sync"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// Factory maintains the registry of provider Adapters.
// Adapters are registered at startup and looked up per request.
type Factory struct {
	mu       sync.RWMutex
	adapters map[domain.ProviderType]Adapter
}

// NewFactory creates an empty adapter factory.
func NewFactory() *Factory {
	return &Factory{
		adapters: make(map[domain.ProviderType]Adapter),
	}
}

// Register registers an adapter for a provider type.
func (f *Factory) Register(providerType domain.ProviderType, adapter Adapter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adapters[providerType] = adapter
}

// Get returns the adapter for a provider type.
// Returns nil if no adapter is registered.
func (f *Factory) Get(providerType domain.ProviderType) Adapter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.adapters[providerType]
}

// SupportedTypes returns all registered provider types.
func (f *Factory) SupportedTypes() []domain.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]domain.ProviderType, 0, len(f.adapters))
	for t := range f.adapters {
		types = append(types, t)
	}
	return types
}
