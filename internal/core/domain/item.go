package domain

// IntegrationItem is the normalized record shape shared across providers.
// Items are transient response values: constructed per fetch, never persisted.
// Nested records are represented by reference through Children.
type IntegrationItem struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Name             string   `json:"name"`
	CreationTime     string   `json:"creation_time,omitempty"`
	LastModifiedTime string   `json:"last_modified_time,omitempty"`
	URL              string   `json:"url,omitempty"`
	Parent           string   `json:"parent_path_or_name,omitempty"`
	Children         []string `json:"children,omitempty"`
	Visibility       bool     `json:"visibility"`
}
