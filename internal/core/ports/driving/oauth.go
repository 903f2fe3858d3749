package driving

import (
	"context"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// OAuthService coordinates the OAuth2 authorization-code flow for all
// integration providers: state issuance, CSRF verification, code exchange,
// and single-delivery credential handoff.
//
// The browser-side handshake driver is expected to call Authorize, open the
// returned URL in a popup, poll for the popup's closure, then call
// GetCredentials exactly once. Errors must be surfaced to the user; a second
// GetCredentials call without a fresh flow fails with ErrCredentialNotFound.
type OAuthService interface {
	// Authorize starts an OAuth authorization flow for a (provider, org,
	// user) key. It stores a CSRF state token and returns the provider's
	// authorization URL to open in a separate browsing context.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Callback handles the provider's redirect. It verifies the state
	// against the stored token, exchanges the authorization code, and
	// stores the resulting credential for pickup.
	Callback(ctx context.Context, req CallbackRequest) error

	// GetCredentials returns the stored credential for a (provider, org,
	// user) key and deletes it. Single delivery: a second call without a
	// fresh OAuth round-trip fails with domain.ErrCredentialNotFound.
	GetCredentials(ctx context.Context, req CredentialsRequest) (*domain.Credential, error)

	// LoadItems fetches the provider's records using a caller-supplied
	// credential and returns them normalized as IntegrationItems.
	LoadItems(ctx context.Context, req LoadRequest) ([]domain.IntegrationItem, error)
}

// AuthorizeRequest identifies the flow owner.
// @Description Request to start an OAuth authorization flow
type AuthorizeRequest struct {
	Provider domain.ProviderType `json:"provider" example:"hubspot"`
	UserID   string              `json:"user_id" example:"u1"`
	OrgID    string              `json:"org_id" example:"o1"`
}

// AuthorizeResponse contains the authorization URL to open.
// @Description Response containing the OAuth authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is the provider URL to open in a popup window.
	AuthorizationURL string `json:"authorization_url" example:"https://app.hubspot.com/oauth/authorize?client_id=..."`

	// ExpiresAt is when the stored flow state expires.
	ExpiresAt string `json:"expires_at" example:"2024-01-15T10:10:00Z"`
}

// CallbackRequest carries the provider's redirect parameters.
// @Description OAuth callback parameters from the provider redirect
type CallbackRequest struct {
	Provider domain.ProviderType `json:"provider" example:"hubspot"`
	Code     string              `json:"code" example:"abc123"`
	State    string              `json:"state" example:"eyJzdGF0ZSI6Li4u"`

	// Error and ErrorDescription are set if the provider reported an error.
	Error            string `json:"error,omitempty" example:"access_denied"`
	ErrorDescription string `json:"error_description,omitempty" example:"The user denied access"`
}

// CredentialsRequest identifies the credential to hand off.
// @Description Request to retrieve a stored credential
type CredentialsRequest struct {
	Provider domain.ProviderType `json:"provider" example:"hubspot"`
	UserID   string              `json:"user_id" example:"u1"`
	OrgID    string              `json:"org_id" example:"o1"`
}

// LoadRequest carries a previously delivered credential back in for a fetch.
// @Description Request to load a provider's records with a credential
type LoadRequest struct {
	Provider domain.ProviderType `json:"provider" example:"hubspot"`

	// Credentials is the JSON credential exactly as returned by the
	// credentials endpoint.
	Credentials string `json:"credentials"`
}

// OAuthError represents an OAuth-specific error.
type OAuthError struct {
	Code        string `json:"error" example:"invalid_state"`
	Description string `json:"error_description" example:"The state parameter is invalid or expired"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Common OAuth errors
var (
	ErrOAuthInvalidState     = &OAuthError{Code: "invalid_state", Description: "The state parameter is invalid or expired"}
	ErrOAuthProviderNotFound = &OAuthError{Code: "provider_not_found", Description: "The provider is not configured"}
	ErrOAuthExchangeFailed   = &OAuthError{Code: "exchange_failed", Description: "Failed to exchange authorization code for tokens"}
	ErrOAuthProviderDenied   = &OAuthError{Code: "access_denied", Description: "The provider reported an authorization error"}
)
