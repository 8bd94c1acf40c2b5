package marketplace

import (
	"context"
	"net/url"

	"github.com/itsneelabh/hermes/pkg/model"
)

// InventoryItemRequest is the eBay inventory_item upsert payload.
type InventoryItemRequest struct {
	Availability        InventoryAvailability  `json:"availability"`
	Product             InventoryProduct       `json:"product"`
	PackageWeightAndSize *model.PackagePayload `json:"packageWeightAndSize,omitempty"`
}

type InventoryAvailability struct {
	ShipToLocationAvailability ShipToLocationAvailability `json:"shipToLocationAvailability"`
}

type ShipToLocationAvailability struct {
	Quantity int `json:"quantity"`
}

type InventoryProduct struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Aspects     map[string][]string `json:"aspects,omitempty"`
	ImageURLs   []string            `json:"imageUrls,omitempty"`
}

// InventoryLocationRequest upserts a merchant shipping location.
type InventoryLocationRequest struct {
	MerchantLocationStatus string              `json:"merchantLocationStatus"`
	LocationTypes          []string            `json:"locationTypes"`
	Name                   string              `json:"name"`
	Location               LocationDetails     `json:"location"`
}

type LocationDetails struct {
	Address       LocationAddress `json:"address"`
	GeoCoordinates *LocationGeo   `json:"geoCoordinates,omitempty"`
}

type LocationAddress struct {
	AddressLine1    string  `json:"addressLine1"`
	AddressLine2    *string `json:"addressLine2,omitempty"`
	City            string  `json:"city"`
	StateOrProvince string  `json:"stateOrProvince"`
	PostalCode      string  `json:"postalCode"`
	Country         string  `json:"country"`
}

type LocationGeo struct {
	Latitude  *string `json:"latitude,omitempty"`
	Longitude *string `json:"longitude,omitempty"`
}

// UpsertInventoryItem puts the inventory item for sku.
func (c *Client) UpsertInventoryItem(ctx context.Context, sku string, payload InventoryItemRequest, accessToken string) error {
	path := "/sell/inventory/v1/inventory_item/" + url.PathEscape(sku)
	status, err := c.doJSON(ctx, "PUT", path, nil, payload, accessToken, nil)
	if err != nil {
		return &RequestError{Op: "ebay.inventory_item", Err: err}
	}
	if status < 200 || status >= 300 {
		return &RequestError{Op: "ebay.inventory_item", Status: status}
	}
	return nil
}

// UpsertInventoryLocation puts the merchant location identified by key.
func (c *Client) UpsertInventoryLocation(ctx context.Context, merchantLocationKey string, payload InventoryLocationRequest, accessToken string) error {
	path := "/sell/inventory/v1/location/" + url.PathEscape(merchantLocationKey)
	status, err := c.doJSON(ctx, "PUT", path, nil, payload, accessToken, nil)
	if err != nil {
		return &RequestError{Op: "ebay.inventory_location", Err: err}
	}
	if status < 200 || status >= 300 {
		return &RequestError{Op: "ebay.inventory_location", Status: status}
	}
	return nil
}
