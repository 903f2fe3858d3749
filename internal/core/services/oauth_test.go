package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/integra/internal/adapters/driven/connectors"
	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
	"github.com/custodia-labs/integra/internal/core/ports/driving"
)

// mockKVStore implements driven.KVStore for testing
type mockKVStore struct {
	values  map[string]string
	expires map[string]time.Time
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (m *mockKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.values[key] = value
	if ttl > 0 {
		m.expires[key] = time.Now().Add(ttl)
	} else {
		delete(m.expires, key)
	}
	return nil
}

func (m *mockKVStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	if exp, bounded := m.expires[key]; bounded && time.Now().After(exp) {
		delete(m.values, key)
		delete(m.expires, key)
		return "", domain.ErrNotFound
	}
	return value, nil
}

func (m *mockKVStore) GetDel(ctx context.Context, key string) (string, error) {
	value, err := m.Get(ctx, key)
	if err != nil {
		return "", err
	}
	delete(m.values, key)
	delete(m.expires, key)
	return value, nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	delete(m.expires, key)
	return nil
}

func (m *mockKVStore) Cleanup(ctx context.Context) error { return nil }

// mockConfigStore implements driven.ProviderConfigStore for testing
type mockConfigStore struct {
	configs map[domain.ProviderType]*domain.ProviderConfig
}

func (m *mockConfigStore) Get(ctx context.Context, pt domain.ProviderType) (*domain.ProviderConfig, error) {
	return m.configs[pt], nil
}

func (m *mockConfigStore) List(ctx context.Context) ([]*domain.ProviderConfig, error) {
	var out []*domain.ProviderConfig
	for _, cfg := range m.configs {
		out = append(out, cfg)
	}
	return out, nil
}

// fakeAdapter implements connectors.Adapter for testing
type fakeAdapter struct {
	usesPKCE      bool
	exchangeCalls int
	lastVerifier  string
	exchangeErr   error
	cred          *domain.Credential
	items         []domain.IntegrationItem
	fetchErr      error
}

func (f *fakeAdapter) BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"state":         {state},
		"scope":         {strings.Join(scopes, " ")},
	}
	if codeChallenge != "" {
		params.Set("code_challenge", codeChallenge)
		params.Set("code_challenge_method", "S256")
	}
	return "https://provider.example/authorize?" + params.Encode()
}

func (f *fakeAdapter) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, codeVerifier string) (*domain.Credential, error) {
	f.exchangeCalls++
	f.lastVerifier = codeVerifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if f.cred != nil {
		return f.cred, nil
	}
	return &domain.Credential{AccessToken: "tok-" + code, TokenType: "bearer"}, nil
}

func (f *fakeAdapter) FetchItems(ctx context.Context, cred *domain.Credential) ([]domain.IntegrationItem, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

func (f *fakeAdapter) Defaults() connectors.OAuthDefaults {
	return connectors.OAuthDefaults{
		AuthURL:  "https://provider.example/authorize",
		TokenURL: "https://provider.example/token",
		Scopes:   []string{"read", "write"},
		UsesPKCE: f.usesPKCE,
	}
}

func setupOAuthService(adapter *fakeAdapter) (driving.OAuthService, *mockKVStore) {
	factory := connectors.NewFactory()
	factory.Register(domain.ProviderTypeHubSpot, adapter)

	kv := newMockKVStore()
	svc := NewOAuthService(OAuthServiceConfig{
		ProviderConfigStore: &mockConfigStore{
			configs: map[domain.ProviderType]*domain.ProviderConfig{
				domain.ProviderTypeHubSpot: {
					ProviderType: domain.ProviderTypeHubSpot,
					ClientID:     "cid",
					ClientSecret: "secret",
					RedirectURI:  "http://localhost:8000/integrations/hubspot/oauth2callback",
				},
			},
		},
		KVStore:          kv,
		ConnectorFactory: factory,
	})
	return svc, kv
}

// stateFromURL extracts and decodes the state blob from an authorization URL.
func stateFromURL(t *testing.T, authURL string) (string, statePayload) {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("unparsable auth URL: %v", err)
	}
	blob := u.Query().Get("state")
	if blob == "" {
		t.Fatal("auth URL missing state parameter")
	}
	data, err := base64.URLEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("state blob not URL-safe base64: %v", err)
	}
	var payload statePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("state blob not JSON: %v", err)
	}
	return blob, payload
}

func TestAuthorize(t *testing.T) {
	svc, kv := setupOAuthService(&fakeAdapter{})

	resp, err := svc.Authorize(context.Background(), driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blob, payload := stateFromURL(t, resp.AuthorizationURL)
	_ = blob
	if payload.UserID != "u1" || payload.OrgID != "o1" {
		t.Errorf("unexpected state payload: %+v", payload)
	}
	if len(payload.State) < 43 {
		// 32 random bytes base64url-encode to 43 characters
		t.Errorf("nonce too short: %d chars", len(payload.State))
	}

	stored, err := kv.Get(context.Background(), "hubspot_state:o1:u1")
	if err != nil {
		t.Fatalf("expected stored state: %v", err)
	}
	var record stateRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		t.Fatalf("stored state not JSON: %v", err)
	}
	if record.State != payload.State {
		t.Error("stored nonce differs from blob nonce")
	}
	if record.CodeVerifier != "" {
		t.Error("non-PKCE provider must not get a code verifier")
	}
}

func TestAuthorize_PKCE(t *testing.T) {
	svc, kv := setupOAuthService(&fakeAdapter{usesPKCE: true})

	resp, err := svc.Authorize(context.Background(), driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, _ := url.Parse(resp.AuthorizationURL)
	if u.Query().Get("code_challenge") == "" {
		t.Error("expected PKCE challenge in auth URL")
	}
	if u.Query().Get("code_challenge_method") != "S256" {
		t.Errorf("expected S256, got %q", u.Query().Get("code_challenge_method"))
	}

	stored, _ := kv.Get(context.Background(), "hubspot_state:o1:u1")
	var record stateRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		t.Fatalf("stored state not JSON: %v", err)
	}
	if record.CodeVerifier == "" {
		t.Fatal("expected stored code verifier")
	}
	if generateCodeChallenge(record.CodeVerifier) != u.Query().Get("code_challenge") {
		t.Error("challenge does not match stored verifier")
	}

	// verifier stays server-side
	_, payload := stateFromURL(t, resp.AuthorizationURL)
	if strings.Contains(resp.AuthorizationURL, record.CodeVerifier) {
		t.Error("verifier leaked into the authorization URL")
	}
	_ = payload
}

func TestAuthorize_MissingConfig(t *testing.T) {
	factory := connectors.NewFactory()
	factory.Register(domain.ProviderTypeNotion, &fakeAdapter{})
	svc := NewOAuthService(OAuthServiceConfig{
		ProviderConfigStore: &mockConfigStore{configs: map[domain.ProviderType]*domain.ProviderConfig{}},
		KVStore:             newMockKVStore(),
		ConnectorFactory:    factory,
	})

	_, err := svc.Authorize(context.Background(), driving.AuthorizeRequest{
		Provider: domain.ProviderTypeNotion,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if !errors.Is(err, domain.ErrProviderNotConfigured) {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestAuthorize_UnknownProvider(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})

	_, err := svc.Authorize(context.Background(), driving.AuthorizeRequest{
		Provider: "smartsheet",
		UserID:   "u1",
		OrgID:    "o1",
	})
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestAuthorize_MissingOwner(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})

	_, err := svc.Authorize(context.Background(), driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCallback_RoundTrip(t *testing.T) {
	adapter := &fakeAdapter{}
	svc, kv := setupOAuthService(adapter)
	ctx := context.Background()

	resp, err := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	blob, _ := stateFromURL(t, resp.AuthorizationURL)

	err = svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderTypeHubSpot,
		Code:     "abc",
		State:    blob,
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if adapter.exchangeCalls != 1 {
		t.Errorf("expected 1 exchange call, got %d", adapter.exchangeCalls)
	}

	// state consumed
	if _, err := kv.Get(ctx, "hubspot_state:o1:u1"); err != domain.ErrNotFound {
		t.Error("expected state to be consumed after verification")
	}

	cred, err := svc.GetCredentials(ctx, driving.CredentialsRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if err != nil {
		t.Fatalf("get credentials: %v", err)
	}
	if cred.AccessToken != "tok-abc" {
		t.Errorf("unexpected credential: %+v", cred)
	}

	// single delivery
	_, err = svc.GetCredentials(ctx, driving.CredentialsRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound on second read, got %v", err)
	}
}

func TestCallback_NonceMismatch(t *testing.T) {
	adapter := &fakeAdapter{}
	svc, kv := setupOAuthService(adapter)
	ctx := context.Background()

	if _, err := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	}); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	forged, _ := encodeState(statePayload{State: "forged-nonce", UserID: "u1", OrgID: "o1"})
	err := svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderTypeHubSpot,
		Code:     "abc",
		State:    forged,
	})
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
	if adapter.exchangeCalls != 0 {
		t.Error("exchange must not run on state mismatch")
	}
	if _, err := kv.Get(ctx, "hubspot_credentials:o1:u1"); err != domain.ErrNotFound {
		t.Error("no credential may be written on state mismatch")
	}
}

func TestCallback_ExpiredState(t *testing.T) {
	adapter := &fakeAdapter{}
	factory := connectors.NewFactory()
	factory.Register(domain.ProviderTypeHubSpot, adapter)
	kv := newMockKVStore()
	svc := NewOAuthService(OAuthServiceConfig{
		ProviderConfigStore: &mockConfigStore{
			configs: map[domain.ProviderType]*domain.ProviderConfig{
				domain.ProviderTypeHubSpot: {ClientID: "cid", ClientSecret: "s", RedirectURI: "http://localhost/cb"},
			},
		},
		KVStore:          kv,
		ConnectorFactory: factory,
		StateTTL:         time.Millisecond,
	})
	ctx := context.Background()

	resp, err := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	blob, _ := stateFromURL(t, resp.AuthorizationURL)

	time.Sleep(5 * time.Millisecond)

	err = svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderTypeHubSpot,
		Code:     "abc",
		State:    blob,
	})
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Errorf("expected ErrStateMismatch after TTL, got %v", err)
	}
}

func TestCallback_StateNotReplayable(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})
	ctx := context.Background()

	resp, _ := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	blob, _ := stateFromURL(t, resp.AuthorizationURL)

	req := driving.CallbackRequest{Provider: domain.ProviderTypeHubSpot, Code: "abc", State: blob}
	if err := svc.Callback(ctx, req); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if err := svc.Callback(ctx, req); !errors.Is(err, domain.ErrStateMismatch) {
		t.Errorf("expected replayed callback to fail verification, got %v", err)
	}
}

func TestCallback_SecondAuthorizeInvalidatesFirst(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})
	ctx := context.Background()

	first, _ := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot, UserID: "u1", OrgID: "o1",
	})
	firstBlob, _ := stateFromURL(t, first.AuthorizationURL)

	// Later authorize for the same key wins
	if _, err := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot, UserID: "u1", OrgID: "o1",
	}); err != nil {
		t.Fatalf("second authorize: %v", err)
	}

	err := svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderTypeHubSpot, Code: "abc", State: firstBlob,
	})
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Errorf("expected stale flow to fail verification, got %v", err)
	}
}

func TestCallback_ProviderError(t *testing.T) {
	adapter := &fakeAdapter{}
	svc, _ := setupOAuthService(adapter)

	err := svc.Callback(context.Background(), driving.CallbackRequest{
		Provider:         domain.ProviderTypeHubSpot,
		Error:            "access_denied",
		ErrorDescription: "The user denied access",
	})

	var oauthErr *driving.OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if oauthErr.Code != "access_denied" {
		t.Errorf("expected provider error code passthrough, got %q", oauthErr.Code)
	}
	if adapter.exchangeCalls != 0 {
		t.Error("exchange must not run when the provider reports an error")
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	adapter := &fakeAdapter{exchangeErr: errors.New("provider says no")}
	svc, kv := setupOAuthService(adapter)
	ctx := context.Background()

	resp, _ := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot, UserID: "u1", OrgID: "o1",
	})
	blob, _ := stateFromURL(t, resp.AuthorizationURL)

	err := svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderTypeHubSpot, Code: "abc", State: blob,
	})

	var oauthErr *driving.OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if oauthErr.Code != "exchange_failed" {
		t.Errorf("expected exchange_failed, got %q", oauthErr.Code)
	}
	if !strings.Contains(oauthErr.Description, "provider says no") {
		t.Errorf("expected provider detail, got %q", oauthErr.Description)
	}
	if _, err := kv.Get(ctx, "hubspot_credentials:o1:u1"); err != domain.ErrNotFound {
		t.Error("no credential may be written on exchange failure")
	}
}

func TestCallback_PKCEVerifierFromStore(t *testing.T) {
	adapter := &fakeAdapter{usesPKCE: true}
	svc, kv := setupOAuthService(adapter)
	ctx := context.Background()

	resp, _ := svc.Authorize(ctx, driving.AuthorizeRequest{
		Provider: domain.ProviderTypeHubSpot, UserID: "u1", OrgID: "o1",
	})
	blob, _ := stateFromURL(t, resp.AuthorizationURL)

	stored, _ := kv.Get(ctx, "hubspot_state:o1:u1")
	var record stateRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		t.Fatalf("stored state not JSON: %v", err)
	}

	if err := svc.Callback(ctx, driving.CallbackRequest{
		Provider: domain.ProviderTypeHubSpot, Code: "abc", State: blob,
	}); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if adapter.lastVerifier != record.CodeVerifier {
		t.Error("exchange must use the stored verifier")
	}
}

func TestGetCredentials_Missing(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})

	_, err := svc.GetCredentials(context.Background(), driving.CredentialsRequest{
		Provider: domain.ProviderTypeHubSpot,
		UserID:   "u1",
		OrgID:    "o1",
	})
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestLoadItems(t *testing.T) {
	adapter := &fakeAdapter{
		items: []domain.IntegrationItem{
			{ID: "contact_1", Type: "contact", Name: "Ada Lovelace", Visibility: true},
		},
	}
	svc, _ := setupOAuthService(adapter)

	items, err := svc.LoadItems(context.Background(), driving.LoadRequest{
		Provider:    domain.ProviderTypeHubSpot,
		Credentials: `{"access_token":"tok"}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "contact_1" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestLoadItems_MalformedCredentials(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})

	_, err := svc.LoadItems(context.Background(), driving.LoadRequest{
		Provider:    domain.ProviderTypeHubSpot,
		Credentials: "not json",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoadItems_MissingToken(t *testing.T) {
	svc, _ := setupOAuthService(&fakeAdapter{})

	_, err := svc.LoadItems(context.Background(), driving.LoadRequest{
		Provider:    domain.ProviderTypeHubSpot,
		Credentials: `{"token_type":"bearer"}`,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// reverser is a trivial pipeline used to prove LoadItems applies it.
type reverser struct{}

func (reverser) Process(items []domain.IntegrationItem) []domain.IntegrationItem {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

func (reverser) Add(driven.ItemProcessor) {}

func (reverser) List() []string { return []string{"reverser"} }

func TestLoadItems_PipelineApplied(t *testing.T) {
	adapter := &fakeAdapter{
		items: []domain.IntegrationItem{
			{ID: "a", Name: "First"},
			{ID: "b", Name: "Second"},
		},
	}
	factory := connectors.NewFactory()
	factory.Register(domain.ProviderTypeHubSpot, adapter)

	svc := NewOAuthService(OAuthServiceConfig{
		ProviderConfigStore: &mockConfigStore{},
		KVStore:             newMockKVStore(),
		ConnectorFactory:    factory,
		ItemPipeline:        reverser{},
	})

	items, err := svc.LoadItems(context.Background(), driving.LoadRequest{
		Provider:    domain.ProviderTypeHubSpot,
		Credentials: `{"access_token":"tok"}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].ID != "b" || items[1].ID != "a" {
		t.Errorf("pipeline not applied: %+v", items)
	}
}
