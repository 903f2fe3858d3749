package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/integra/internal/adapters/driven/connectors"
	"github.com/custodia-labs/integra/internal/core/domain"
)

// Ensure Adapter implements the interface.
var _ connectors.Adapter = (*Adapter)(nil)

// notionVersion pins the Notion API revision.
const notionVersion = "2022-06-28"

// Adapter handles OAuth and item fetching for Notion.
type Adapter struct {
	httpClient *http.Client

	authURL    string
	tokenURL   string
	apiBaseURL string
}

// NewAdapter creates a new Notion adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authURL:    "https://api.notion.com/v1/oauth/authorize",
		tokenURL:   "https://api.notion.com/v1/oauth/token",
		apiBaseURL: "https://api.notion.com",
	}
}

// BuildAuthURL constructs the Notion OAuth authorization URL.
// Notion scopes workspaces through the consent screen instead of a scope
// parameter, and does not use PKCE.
func (a *Adapter) BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"owner":         {"user"},
		"state":         {state},
	}
	return a.authURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for tokens.
// Notion's token endpoint takes a JSON body and HTTP Basic client auth.
func (a *Adapter) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, codeVerifier string) (*domain.Credential, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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

// Defaults returns Notion's OAuth configuration.
func (a *Adapter) Defaults() connectors.OAuthDefaults {
	return connectors.OAuthDefaults{
		AuthURL:  a.authURL,
		TokenURL: a.tokenURL,
		UsesPKCE: false,
	}
}
