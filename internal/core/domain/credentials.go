package domain

import "encoding/json"

// Credential holds the tokens returned by a provider's token endpoint.
// The coordinator treats it as mostly opaque: provider-specific fields are
// preserved verbatim in Extra and round-tripped to the caller.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// Extra carries provider-specific pass-through fields
	// (e.g. HubSpot's hub_domain, Notion's workspace_id).
	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalJSON serializes the credential with Extra fields inlined,
// reproducing the provider's token response shape.
func (c Credential) MarshalJSON() ([]byte, error) {
	type alias Credential
	base, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}

	if len(c.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+5)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits known token fields from provider-specific extras.
func (c *Credential) UnmarshalJSON(data []byte) error {
	type alias Credential
	var base alias
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range []string{"access_token", "refresh_token", "token_type", "expires_in", "scope"} {
		delete(raw, known)
	}
	if len(raw) == 0 {
		raw = nil
	}

	*c = Credential(base)
	c.Extra = raw
	return nil
}

// HasToken reports whether the credential carries a usable access token
func (c *Credential) HasToken() bool {
	return c != nil && c.AccessToken != ""
}
