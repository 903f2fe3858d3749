package airtable

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

// Adapter handles OAuth and item fetching for Airtable.
// Airtable requires PKCE (S256) on every authorization-code flow.
type Adapter struct {
	httpClient *http.Client

	authURL    string
	tokenURL   string
	apiBaseURL string
}

// NewAdapter creates a new Airtable adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authURL:    "https://airtable.com/oauth2/v1/authorize",
		tokenURL:   "https://airtable.com/oauth2/v1/token",
		apiBaseURL: "https://api.airtable.com",
	}
}

// BuildAuthURL constructs the Airtable OAuth authorization URL with PKCE
// challenge parameters.
func (a *Adapter) BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string {
	params := url.Values{
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"state":                 {state},
		"scope":                 {strings.Join(scopes, " ")},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
	return a.authURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for tokens.
// Airtable takes HTTP Basic client auth plus the PKCE verifier in the form.
func (a *Adapter) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, codeVerifier string) (*domain.Credential, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"code":          {code},
		"code_verifier": {codeVerifier},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

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

// Defaults returns Airtable's OAuth configuration.
func (a *Adapter) Defaults() connectors.OAuthDefaults {
	return connectors.OAuthDefaults{
		AuthURL:  a.authURL,
		TokenURL: a.tokenURL,
		Scopes: []string{
			"data.records:read",
			"data.records:write",
			"data.recordComments:read",
			"schema.bases:read",
			"schema.bases:write",
		},
		UsesPKCE: true,
	}
}
