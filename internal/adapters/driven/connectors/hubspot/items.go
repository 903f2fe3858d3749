package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/integra/internal/core/domain"
)

// crmObject is a record from the HubSpot CRM v3 objects API.
type crmObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// crmPage is one page of a CRM objects listing.
type crmPage struct {
	Results []crmObject `json:"results"`
}

// FetchItems retrieves contacts and deals and normalizes them into
// IntegrationItems.
func (a *Adapter) FetchItems(ctx context.Context, cred *domain.Credential) ([]domain.IntegrationItem, error) {
	var items []domain.IntegrationItem

	contacts, err := a.listObjects(ctx, cred.AccessToken, "contacts")
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	for _, c := range contacts {
		items = append(items, a.contactItem(c))
	}

	deals, err := a.listObjects(ctx, cred.AccessToken, "deals")
	if err != nil {
		return nil, fmt.Errorf("fetch deals: %w", err)
	}
	for _, d := range deals {
		items = append(items, a.dealItem(d))
	}

	return items, nil
}

// listObjects fetches one page of a CRM object collection.
func (a *Adapter) listObjects(ctx context.Context, accessToken, objectType string) ([]crmObject, error) {
	endpoint := fmt.Sprintf("%s/crm/v3/objects/%s?limit=100", a.apiBaseURL, objectType)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list %s failed: %s", objectType, string(body))
	}

	var page crmPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return page.Results, nil
}

func (a *Adapter) contactItem(c crmObject) domain.IntegrationItem {
	name := strings.TrimSpace(c.Properties["firstname"] + " " + c.Properties["lastname"])
	return domain.IntegrationItem{
		ID:               "contact_" + c.ID,
		Type:             "contact",
		Name:             name,
		CreationTime:     c.Properties["createdate"],
		LastModifiedTime: c.Properties["lastmodifieddate"],
		URL:              a.appBaseURL + "/contacts/" + c.ID,
		Parent:           "Contacts",
		Visibility:       true,
	}
}

func (a *Adapter) dealItem(d crmObject) domain.IntegrationItem {
	name := d.Properties["dealname"]
	if name == "" {
		name = "Unnamed Deal"
	}
	amount := d.Properties["amount"]
	if amount == "" {
		amount = "0"
	}
	stage := d.Properties["dealstage"]
	if stage == "" {
		stage = "Unknown"
	}
	return domain.IntegrationItem{
		ID:               "deal_" + d.ID,
		Type:             "deal",
		Name:             name,
		CreationTime:     d.Properties["createdate"],
		LastModifiedTime: d.Properties["lastmodifieddate"],
		URL:              a.appBaseURL + "/deals/" + d.ID,
		Parent:           "Deals",
		Visibility:       true,
		Children: []string{
			"Amount: $" + amount,
			"Stage: " + stage,
		},
	}
}
