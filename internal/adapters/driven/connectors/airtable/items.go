package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// base is a record from the Airtable meta bases API.
type base struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type basesResponse struct {
	Bases []base `json:"bases"`
}

// table is a record from the Airtable meta tables API.
type table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tablesResponse struct {
	Tables []table `json:"tables"`
}

// FetchItems lists the bases the credential can reach and the tables in
// each, normalized into IntegrationItems. Tables reference their base
// through Parent and base items reference their tables through Children.
func (a *Adapter) FetchItems(ctx context.Context, cred *domain.Credential) ([]domain.IntegrationItem, error) {
	bases, err := a.listBases(ctx, cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch bases: %w", err)
	}

	var items []domain.IntegrationItem
	for _, b := range bases {
		tables, err := a.listTables(ctx, cred.AccessToken, b.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch tables for %s: %w", b.ID, err)
		}

		baseItem := domain.IntegrationItem{
			ID:         b.ID,
			Type:       "Base",
			Name:       b.Name,
			URL:        "https://airtable.com/" + b.ID,
			Visibility: true,
		}
		for _, t := range tables {
			baseItem.Children = append(baseItem.Children, t.ID)
		}
		items = append(items, baseItem)

		for _, t := range tables {
			items = append(items, domain.IntegrationItem{
				ID:         t.ID,
				Type:       "Table",
				Name:       t.Name,
				URL:        "https://airtable.com/" + b.ID + "/" + t.ID,
				Parent:     b.Name,
				Visibility: true,
			})
		}
	}
	return items, nil
}

func (a *Adapter) listBases(ctx context.Context, accessToken string) ([]base, error) {
	var out basesResponse
	if err := a.getJSON(ctx, accessToken, "/v0/meta/bases", &out); err != nil {
		return nil, err
	}
	return out.Bases, nil
}

func (a *Adapter) listTables(ctx context.Context, accessToken, baseID string) ([]table, error) {
	var out tablesResponse
	if err := a.getJSON(ctx, accessToken, "/v0/meta/bases/"+baseID+"/tables", &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

func (a *Adapter) getJSON(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", a.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("get %s failed: %s", path, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
