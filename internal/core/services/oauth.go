package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/integra/internal/adapters/driven/connectors"
	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
	"github.com/custodia-labs/integra/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

const (
	// DefaultStateTTL bounds how long an unclaimed authorization flow
	// stays valid.
	DefaultStateTTL = 600 * time.Second

	// DefaultCredentialTTL bounds how long an unclaimed credential stays
	// readable after the callback stores it.
	DefaultCredentialTTL = 600 * time.Second
)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// ProviderConfigStore retrieves OAuth app credentials.
	ProviderConfigStore driven.ProviderConfigStore

	// KVStore holds flow state and pending credentials.
	KVStore driven.KVStore

	// ConnectorFactory provides the Adapter per provider.
	ConnectorFactory *connectors.Factory

	// StateTTL overrides DefaultStateTTL when positive.
	StateTTL time.Duration

	// CredentialTTL overrides DefaultCredentialTTL when positive.
	CredentialTTL time.Duration

	// ItemPipeline shapes fetched item lists. Optional.
	ItemPipeline driven.ItemPipeline
}

// oauthService implements the OAuthService interface.
// It is stateless between calls: every piece of flow state lives in the
// KV store, keyed by (provider, org, user).
type oauthService struct {
	providerConfigStore driven.ProviderConfigStore
	kv                  driven.KVStore
	connectorFactory    *connectors.Factory
	stateTTL            time.Duration
	credentialTTL       time.Duration
	pipeline            driven.ItemPipeline
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	stateTTL := cfg.StateTTL
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}
	credentialTTL := cfg.CredentialTTL
	if credentialTTL <= 0 {
		credentialTTL = DefaultCredentialTTL
	}
	return &oauthService{
		providerConfigStore: cfg.ProviderConfigStore,
		kv:                  cfg.KVStore,
		connectorFactory:    cfg.ConnectorFactory,
		stateTTL:            stateTTL,
		credentialTTL:       credentialTTL,
		pipeline:            cfg.ItemPipeline,
	}
}

// statePayload is the CSRF blob round-tripped through the provider redirect
// as the OAuth state parameter. URL-safe base64 of its JSON form.
type statePayload struct {
	State  string `json:"state"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

// stateRecord is the server-side copy of a pending flow. The PKCE verifier
// never leaves the store: the exchange always uses this copy.
type stateRecord struct {
	State        string `json:"state"`
	UserID       string `json:"user_id"`
	OrgID        string `json:"org_id"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

func stateKey(provider domain.ProviderType, orgID, userID string) string {
	return fmt.Sprintf("%s_state:%s:%s", provider, orgID, userID)
}

func credentialsKey(provider domain.ProviderType, orgID, userID string) string {
	return fmt.Sprintf("%s_credentials:%s:%s", provider, orgID, userID)
}

// Authorize starts an OAuth authorization flow.
// It issues a CSRF state token, stores it under the flow's composite key,
// and returns the provider's authorization URL.
//
// A second Authorize for the same (provider, org, user) overwrites the
// stored state, silently invalidating the earlier in-flight flow. That race
// is accepted: a user-facing flow is single-flight per browser tab.
func (s *oauthService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	if req.UserID == "" || req.OrgID == "" {
		return nil, fmt.Errorf("%w: user_id and org_id are required", domain.ErrInvalidInput)
	}

	adapter := s.connectorFactory.Get(req.Provider)
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, req.Provider)
	}

	providerConfig, err := s.providerConfigStore.Get(ctx, req.Provider)
	if err != nil {
		return nil, fmt.Errorf("get provider config: %w", err)
	}
	if !providerConfig.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, req.Provider)
	}

	nonce, err := generateToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	record := stateRecord{
		State:  nonce,
		UserID: req.UserID,
		OrgID:  req.OrgID,
	}

	// PKCE only for providers that require it
	defaults := adapter.Defaults()
	var codeChallenge string
	if defaults.UsesPKCE {
		verifier, err := generateToken(48)
		if err != nil {
			return nil, fmt.Errorf("generate code verifier: %w", err)
		}
		record.CodeVerifier = verifier
		codeChallenge = generateCodeChallenge(verifier)
	}

	stored, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := s.kv.Set(ctx, stateKey(req.Provider, req.OrgID, req.UserID), string(stored), s.stateTTL); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	blob, err := encodeState(statePayload{State: nonce, UserID: req.UserID, OrgID: req.OrgID})
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	authURL := adapter.BuildAuthURL(
		providerConfig.ClientID,
		providerConfig.RedirectURI,
		blob,
		codeChallenge,
		defaults.Scopes,
	)

	return &driving.AuthorizeResponse{
		AuthorizationURL: authURL,
		ExpiresAt:        time.Now().Add(s.stateTTL).Format(time.RFC3339),
	}, nil
}

// Callback handles the OAuth redirect from the provider.
// It verifies the state against the stored token, consumes the token,
// exchanges the code, and stores the credential for single-delivery pickup.
func (s *oauthService) Callback(ctx context.Context, req driving.CallbackRequest) error {
	// Provider-reported errors abort before any state lookup
	if req.Error != "" {
		return &driving.OAuthError{
			Code:        req.Error,
			Description: req.ErrorDescription,
		}
	}
	if req.Code == "" || req.State == "" {
		return fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}

	payload, err := decodeState(req.State)
	if err != nil {
		return fmt.Errorf("%w: undecodable state", domain.ErrStateMismatch)
	}

	key := stateKey(req.Provider, payload.OrgID, payload.UserID)
	stored, err := s.kv.Get(ctx, key)
	if err == domain.ErrNotFound {
		return fmt.Errorf("%w: no pending flow", domain.ErrStateMismatch)
	}
	if err != nil {
		return fmt.Errorf("get oauth state: %w", err)
	}

	var record stateRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		return fmt.Errorf("unmarshal oauth state: %w", err)
	}
	if record.State == "" || record.State != payload.State {
		return domain.ErrStateMismatch
	}

	// Consume the state so the same state+code pair cannot be replayed
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete oauth state: %w", err)
	}

	adapter := s.connectorFactory.Get(req.Provider)
	if adapter == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, req.Provider)
	}

	providerConfig, err := s.providerConfigStore.Get(ctx, req.Provider)
	if err != nil {
		return fmt.Errorf("get provider config: %w", err)
	}
	if !providerConfig.IsConfigured() {
		return fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, req.Provider)
	}

	cred, err := adapter.ExchangeCode(
		ctx,
		providerConfig.ClientID,
		providerConfig.ClientSecret,
		req.Code,
		providerConfig.RedirectURI,
		record.CodeVerifier,
	)
	if err != nil {
		return &driving.OAuthError{
			Code:        "exchange_failed",
			Description: err.Error(),
		}
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := s.kv.Set(ctx, credentialsKey(req.Provider, payload.OrgID, payload.UserID), string(data), s.credentialTTL); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	return nil
}

// GetCredentials reads and deletes the stored credential in one step.
// Single delivery: the second call for the same key fails with
// domain.ErrCredentialNotFound until a fresh flow completes.
func (s *oauthService) GetCredentials(ctx context.Context, req driving.CredentialsRequest) (*domain.Credential, error) {
	if req.UserID == "" || req.OrgID == "" {
		return nil, fmt.Errorf("%w: user_id and org_id are required", domain.ErrInvalidInput)
	}

	raw, err := s.kv.GetDel(ctx, credentialsKey(req.Provider, req.OrgID, req.UserID))
	if err == domain.ErrNotFound {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return &cred, nil
}

// LoadItems fetches and normalizes the provider's records with a
// caller-supplied credential.
func (s *oauthService) LoadItems(ctx context.Context, req driving.LoadRequest) ([]domain.IntegrationItem, error) {
	adapter := s.connectorFactory.Get(req.Provider)
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, req.Provider)
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(req.Credentials), &cred); err != nil {
		return nil, fmt.Errorf("%w: malformed credentials", domain.ErrInvalidInput)
	}
	if !cred.HasToken() {
		return nil, fmt.Errorf("%w: credentials missing access token", domain.ErrInvalidInput)
	}

	items, err := adapter.FetchItems(ctx, &cred)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	if s.pipeline != nil {
		items = s.pipeline.Process(items)
	}
	return items, nil
}

// encodeState serializes the CSRF payload into the URL-safe blob used as
// the OAuth state parameter.
func encodeState(p statePayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// decodeState reverses encodeState.
func decodeState(blob string) (*statePayload, error) {
	data, err := base64.URLEncoding.DecodeString(blob)
	if err != nil {
		// Tolerate unpadded blobs from clients that strip padding
		data, err = base64.RawURLEncoding.DecodeString(blob)
		if err != nil {
			return nil, err
		}
	}
	var p statePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// generateToken generates a cryptographically secure URL-safe token from
// n random bytes.
func generateToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// generateCodeChallenge creates a PKCE code challenge from a verifier (S256 method).
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
