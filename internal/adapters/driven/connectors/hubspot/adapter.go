package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/integra/internal/adapters/driven/connectors"
	"github.com/custodia-labs/integra/internal/core/domain"
)

// Ensure Adapter implements the interface.
var _ connectors.Adapter = (*Adapter)(nil)

// Adapter handles OAuth and item fetching for HubSpot.
type Adapter struct {
	httpClient *http.Client

	authURL    string
	tokenURL   string
	apiBaseURL string
	appBaseURL string
}

// NewAdapter creates a new HubSpot adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authURL:    "https://app.hubspot.com/oauth/authorize",
		tokenURL:   "https://api.hubapi.com/oauth/v1/token",
		apiBaseURL: "https://api.hubapi.com",
		appBaseURL: "https://app.hubspot.com",
	}
}

// BuildAuthURL constructs the HubSpot OAuth authorization URL.
// HubSpot does not use PKCE; codeChallenge is ignored.
func (a *Adapter) BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {strings.Join(scopes, " ")},
		"response_type": {"code"},
		"state":         {state},
	}
	return a.authURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for tokens.
func (a *Adapter) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, codeVerifier string) (*domain.Credential, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed: %s", string(body))
	}

	var cred domain.Credential
	if err := json.Unmarshal(body, &cred); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token: %s", string(body))
	}
	return &cred, nil
}

// Defaults returns HubSpot's OAuth configuration.
func (a *Adapter) Defaults() connectors.OAuthDefaults {
	return connectors.OAuthDefaults{
		AuthURL:  a.authURL,
		TokenURL: a.tokenURL,
		Scopes: []string{
			"crm.objects.contacts.read",
			"crm.objects.contacts.write",
			"crm.objects.deals.read",
			"crm.schemas.contacts.read",
		},
		UsesPKCE: false,
	}
}
