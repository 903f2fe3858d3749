package connectors

import (
	"context"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// Adapter provides the OAuth and data operations for a specific provider.
// Each provider (HubSpot, Notion, Airtable) has its own implementation; the
// coordinator never branches on provider type beyond selecting an Adapter.
type Adapter interface {
	// BuildAuthURL constructs the provider's authorization URL.
	// codeChallenge is the PKCE S256 challenge; adapters for providers
	// that do not use PKCE ignore it.
	BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string

	// ExchangeCode exchanges an authorization code for tokens.
	// codeVerifier is the plain-text PKCE verifier; empty for providers
	// that do not use PKCE.
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, codeVerifier string) (*domain.Credential, error)

	// FetchItems retrieves the provider's records with the given credential
	// and normalizes them into IntegrationItems.
	FetchItems(ctx context.Context, cred *domain.Credential) ([]domain.IntegrationItem, error)

	// Defaults returns the provider's OAuth endpoint configuration.
	Defaults() OAuthDefaults
}

// OAuthDefaults contains a provider's OAuth endpoint configuration.
type OAuthDefaults struct {
	// AuthURL is the OAuth authorization endpoint.
	AuthURL string

	// TokenURL is the OAuth token exchange endpoint.
	TokenURL string

	// Scopes are the OAuth scopes to request.
	Scopes []string

	// UsesPKCE indicates whether the provider requires PKCE.
	UsesPKCE bool
}
