package marketplace

import (
	"context"
	"fmt"
	"net/url"

	"github.com/itsneelabh/hermes/pkg/model"
)

// ListingPolicies is the fulfillment/payment/return policy triple required
// to create or update an offer.
type ListingPolicies struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId"`
	PaymentPolicyID     string `json:"paymentPolicyId"`
	ReturnPolicyID      string `json:"returnPolicyId"`
}

// Price is the eBay pricingSummary.price shape.
type Price struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// PriceFromAmount formats amount to two decimal places, as eBay's pricing
// summary requires.
func PriceFromAmount(amount float64, currency string) Price {
	return Price{Value: fmt.Sprintf("%.2f", amount), Currency: currency}
}

type PricingSummary struct {
	Price Price `json:"price"`
}

// CreateOfferRequest is the eBay create-offer payload.
type CreateOfferRequest struct {
	SKU                  string              `json:"sku"`
	MarketplaceID        string              `json:"marketplaceId"`
	Format               string              `json:"format"`
	CategoryID           string              `json:"categoryId"`
	ListingDescription   string              `json:"listingDescription"`
	PricingSummary       PricingSummary      `json:"pricingSummary"`
	AvailableQuantity    int                 `json:"availableQuantity"`
	MerchantLocationKey  string              `json:"merchantLocationKey"`
	ListingPolicies      ListingPolicies      `json:"listingPolicies"`
	Aspects              map[string][]string `json:"aspects,omitempty"`
	PackageWeightAndSize *model.PackagePayload `json:"packageWeightAndSize,omitempty"`
	ImageURLs            []string            `json:"imageUrls,omitempty"`
}

// UpdateOfferRequest is the eBay update-offer payload (no sku/marketplace,
// those are immutable after creation).
type UpdateOfferRequest struct {
	Format               string                `json:"format"`
	CategoryID           string                `json:"categoryId"`
	ListingDescription   string                `json:"listingDescription"`
	PricingSummary       PricingSummary        `json:"pricingSummary"`
	AvailableQuantity    int                   `json:"availableQuantity"`
	ListingPolicies      ListingPolicies       `json:"listingPolicies"`
	MerchantLocationKey  string                `json:"merchantLocationKey"`
	PackageWeightAndSize *model.PackagePayload `json:"packageWeightAndSize,omitempty"`
}

// OfferSummary is one entry from get_offers_by_sku.
type OfferSummary struct {
	OfferID       string `json:"offerId"`
	MarketplaceID string `json:"marketplaceId"`
}

// CreateOffer creates a new offer. Returns ErrEntityExists on a 409, the
// signal the offer reconciliation state machine recovers from.
func (c *Client) CreateOffer(ctx context.Context, req CreateOfferRequest, accessToken string) (string, error) {
	var payload struct {
		OfferID string `json:"offerId"`
	}
	status, err := c.doJSON(ctx, "POST", "/sell/inventory/v1/offer", nil, req, accessToken, &payload)
	if err != nil {
		return "", &RequestError{Op: "ebay.create_offer", Err: err}
	}
	if status == 409 {
		return "", &ErrEntityExists{SKU: req.SKU}
	}
	if status < 200 || status >= 300 {
		return "", &RequestError{Op: "ebay.create_offer", Status: status}
	}
	return payload.OfferID, nil
}

// PublishOffer publishes offerID, returning the resulting listing id (may
// be empty; callers substitute a fallback).
func (c *Client) PublishOffer(ctx context.Context, offerID, accessToken string) (string, error) {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID) + "/publish"
	var payload struct {
		ListingID string `json:"listingId"`
	}
	status, err := c.doJSON(ctx, "POST", path, nil, nil, accessToken, &payload)
	if err != nil {
		return "", &RequestError{Op: "ebay.publish_offer", Err: err}
	}
	if status < 200 || status >= 300 {
		return "", &RequestError{Op: "ebay.publish_offer", Status: status}
	}
	return payload.ListingID, nil
}

// GetOffersBySKU searches existing offers for sku.
func (c *Client) GetOffersBySKU(ctx context.Context, sku, accessToken string) ([]OfferSummary, error) {
	var payload struct {
		Offers []OfferSummary `json:"offers"`
	}
	query := url.Values{"sku": {sku}}
	status, err := c.doJSON(ctx, "GET", "/sell/inventory/v1/offer", query, nil, accessToken, &payload)
	if err != nil {
		return nil, &RequestError{Op: "ebay.get_offers_by_sku", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &RequestError{Op: "ebay.get_offers_by_sku", Status: status}
	}
	return payload.Offers, nil
}

// UpdateOffer updates an existing offer in place.
func (c *Client) UpdateOffer(ctx context.Context, offerID string, payload UpdateOfferRequest, accessToken string) error {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID)
	status, err := c.doJSON(ctx, "PUT", path, nil, payload, accessToken, nil)
	if err != nil {
		return &RequestError{Op: "ebay.update_offer", Err: err}
	}
	if status < 200 || status >= 300 {
		return &RequestError{Op: "ebay.update_offer", Status: status}
	}
	return nil
}

// WithdrawOffer withdraws offerID from sale, in preparation for a retried
// update.
func (c *Client) WithdrawOffer(ctx context.Context, offerID, accessToken string) error {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID) + "/withdraw"
	status, err := c.doJSON(ctx, "POST", path, nil, nil, accessToken, nil)
	if err != nil {
		return &RequestError{Op: "ebay.withdraw_offer", Err: err}
	}
	if status < 200 || status >= 300 {
		return &RequestError{Op: "ebay.withdraw_offer", Status: status}
	}
	return nil
}

// DeleteOffer deletes offerID.
func (c *Client) DeleteOffer(ctx context.Context, offerID, accessToken string) error {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID)
	status, err := c.doJSON(ctx, "DELETE", path, nil, nil, accessToken, nil)
	if err != nil {
		return &RequestError{Op: "ebay.delete_offer", Err: err}
	}
	if status < 200 || status >= 300 {
		return &RequestError{Op: "ebay.delete_offer", Status: status}
	}
	return nil
}
