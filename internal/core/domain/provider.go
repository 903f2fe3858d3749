package domain

// ProviderType identifies an integration provider
type ProviderType string

const (
	// CRM
	ProviderTypeHubSpot ProviderType = "hubspot"

	// Documentation
	ProviderTypeNotion ProviderType = "notion"

	// Databases / spreadsheets
	ProviderTypeAirtable ProviderType = "airtable"
)

// CoreProviders returns the providers shipped with Integra
func CoreProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeHubSpot,
		ProviderTypeNotion,
		ProviderTypeAirtable,
	}
}

// IsValid reports whether the provider type is a known provider
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderTypeHubSpot, ProviderTypeNotion, ProviderTypeAirtable:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for a provider
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderTypeHubSpot:
		return "HubSpot"
	case ProviderTypeNotion:
		return "Notion"
	case ProviderTypeAirtable:
		return "Airtable"
	default:
		return string(p)
	}
}

// ProviderConfig holds the OAuth app registration for a provider.
// One config per provider, sourced from the environment.
type ProviderConfig struct {
	ProviderType ProviderType `json:"provider_type"`
	ClientID     string       `json:"client_id"`
	ClientSecret string       `json:"-"` // never serialize
	RedirectURI  string       `json:"redirect_uri"`
}

// IsConfigured reports whether the config has everything an OAuth flow needs
func (c *ProviderConfig) IsConfigured() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}
