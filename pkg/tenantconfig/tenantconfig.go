// Package tenantconfig looks up organization-scoped marketplace credentials
// (merchant location, policy ids, address) from an external keyed store,
// grounded on the original's Supabase REST client: a GET against a
// PostgREST-style endpoint filtered by org id, returning at most one row.
package tenantconfig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Client looks up org config rows from a PostgREST-compatible endpoint.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// New builds a Client. Returns (nil, false) when the base URL or service
// key environment is unset, the same "optional collaborator" pattern the
// original's SupabaseClient::from_env uses.
func New(httpClient *http.Client, baseURL, serviceKey string) (*Client, bool) {
	if baseURL == "" || serviceKey == "" {
		return nil, false
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       httpClient,
	}, true
}

// OrgConfig is one org's marketplace defaults.
type OrgConfig struct {
	OrgID               string  `json:"org_id"`
	MerchantLocationKey string  `json:"merchant_location_key"`
	FulfillmentPolicyID string  `json:"fulfillment_policy_id"`
	PaymentPolicyID     string  `json:"payment_policy_id"`
	ReturnPolicyID      string  `json:"return_policy_id"`
	Marketplace         *string `json:"marketplace,omitempty"`
	LocationName        *string `json:"location_name,omitempty"`
	AddressLine1        *string `json:"address_line1,omitempty"`
	AddressLine2        *string `json:"address_line2,omitempty"`
	City                *string `json:"city,omitempty"`
	StateOrProvince     *string `json:"state_or_province,omitempty"`
	PostalCode          *string `json:"postal_code,omitempty"`
	Country             *string `json:"country,omitempty"`
	Latitude            *string `json:"latitude,omitempty"`
	Longitude           *string `json:"longitude,omitempty"`
}

// HasCompleteAddress reports whether every address field push_inventory
// requires before upserting a location is non-empty.
func (c OrgConfig) HasCompleteAddress() bool {
	nonEmpty := func(s *string) bool { return s != nil && strings.TrimSpace(*s) != "" }
	return nonEmpty(c.AddressLine1) && nonEmpty(c.City) && nonEmpty(c.StateOrProvince) &&
		nonEmpty(c.PostalCode) && nonEmpty(c.Country)
}

// FetchEbayOrgConfig fetches the config row for orgID, if any.
func (c *Client) FetchEbayOrgConfig(ctx context.Context, orgID string) (*OrgConfig, error) {
	url := fmt.Sprintf("%s/rest/v1/ebay_org_config?org_id=eq.%s&select=*&limit=1", c.baseURL, orgID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tenantconfig request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tenantconfig request: HTTP %d", resp.StatusCode)
	}

	var rows []OrgConfig
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("tenantconfig decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[len(rows)-1], nil
}
