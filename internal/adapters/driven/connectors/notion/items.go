package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// searchResult is one record from the Notion search API.
type searchResult struct {
	ID             string                     `json:"id"`
	Object         string                     `json:"object"` // "page" or "database"
	CreatedTime    string                     `json:"created_time"`
	LastEditedTime string                     `json:"last_edited_time"`
	URL            string                     `json:"url"`
	Parent         map[string]json.RawMessage `json:"parent"`
	Properties     map[string]any             `json:"properties"`
	Title          []richText                 `json:"title"` // databases only
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// FetchItems searches the workspace the credential is scoped to and
// normalizes pages and databases into IntegrationItems.
func (a *Adapter) FetchItems(ctx context.Context, cred *domain.Credential) ([]domain.IntegrationItem, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", a.apiBaseURL+"/v1/search", strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search failed: %s", string(body))
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.IntegrationItem, 0, len(search.Results))
	for _, result := range search.Results {
		items = append(items, a.item(result))
	}
	return items, nil
}

func (a *Adapter) item(r searchResult) domain.IntegrationItem {
	return domain.IntegrationItem{
		ID:               r.ID,
		Type:             r.Object,
		Name:             strings.TrimSpace(r.Object + " " + r.title()),
		CreationTime:     r.CreatedTime,
		LastModifiedTime: r.LastEditedTime,
		URL:              r.URL,
		Parent:           r.parentRef(),
		Visibility:       true,
	}
}

// title extracts a display name. Databases carry a title array; pages bury
// their title text inside the properties tree, so fall back to a recursive
// search for the first text content.
func (r searchResult) title() string {
	for _, t := range r.Title {
		if t.PlainText != "" {
			return t.PlainText
		}
	}
	if name, ok := findContent(r.Properties); ok {
		return name
	}
	return "untitled"
}

// parentRef resolves the parent reference. Workspace-level records have no
// parent identifier.
func (r searchResult) parentRef() string {
	rawType, ok := r.Parent["type"]
	if !ok {
		return ""
	}
	var parentType string
	if err := json.Unmarshal(rawType, &parentType); err != nil || parentType == "workspace" {
		return ""
	}
	var parentID string
	if err := json.Unmarshal(r.Parent[parentType], &parentID); err != nil {
		return ""
	}
	return parentID
}

// findContent walks a decoded JSON tree looking for the first non-empty
// "content" or "plain_text" string, the way Notion nests title text.
func findContent(node any) (string, bool) {
	switch v := node.(type) {
	case map[string]any:
		for _, key := range []string{"content", "plain_text"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s, true
			}
		}
		for _, child := range v {
			if s, ok := findContent(child); ok {
				return s, true
			}
		}
	case []any:
		for _, child := range v {
			if s, ok := findContent(child); ok {
				return s, true
			}
		}
	}
	return "", false
}
