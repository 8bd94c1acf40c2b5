package pipeline

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/pkg/idgen"
	"github.com/itsneelabh/hermes/pkg/marketplace"
	"github.com/itsneelabh/hermes/pkg/model"
	"github.com/itsneelabh/hermes/pkg/tenantconfig"
)

type userToken struct {
	Token     string
	ExpiresIn int
}

type inventoryReceipt struct {
	SKU      string
	Location string
	Quantity int
	Status   string
}

type ebayRuntimeConfig struct {
	merchantLocationKey string
	policies             marketplace.ListingPolicies
	marketplaceID        model.MarketplaceID
	location             *locationMetadata
}

type locationMetadata struct {
	name            string
	addressLine1    string
	addressLine2    *string
	city            string
	stateOrProvince string
	postalCode      string
	country         string
	latitude        *string
	longitude       *string
}

func marshalOutput(value map[string]interface{}) json.RawMessage {
	encoded, err := json.Marshal(value)
	if err != nil {
		return json.RawMessage("{}")
	}
	return encoded
}

func decodeProductOverride(raw json.RawMessage) (model.Product, error) {
	var product model.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return model.Product{}, err
	}
	return product, nil
}

func maxImagesAllowed(cfg config.ImagesConfig) int {
	if cfg.MaxImages < 1 {
		return 6
	}
	return cfg.MaxImages
}

func tokenize(value string) []string {
	hasDelimiter := strings.ContainsAny(value, "\n,;|")
	if !hasDelimiter {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	parts := strings.FieldsFunc(value, func(r rune) bool {
		switch r {
		case '\n', ',', ';', '|':
			return true
		default:
			return false
		}
	})
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func deduplicate(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func addSignature(raw string) string {
	if strings.Contains(raw, "signature=demo") {
		return raw
	}
	if strings.Contains(raw, "?") {
		return raw + "&signature=demo"
	}
	return raw + "?signature=demo"
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, d := range allowed {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func validateImageURL(raw string, allowlist []string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &invalidImageError{reason: "invalid_image_url: " + raw}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &invalidImageError{reason: "unsupported_url_scheme: " + raw}
	}
	if len(allowlist) > 0 && !hostAllowed(parsed.Hostname(), allowlist) {
		return &invalidImageError{reason: "domain_not_allowed: " + parsed.Hostname()}
	}
	return nil
}

type invalidImageError struct{ reason string }

func (e *invalidImageError) Error() string { return e.reason }

func previewToken(token string) string {
	return idgen.PreviewToken(token, 6) + "…"
}

func bulletPointsFromProduct(product model.Product) []string {
	var bullets []string
	if product.Brand != nil && product.Brand.Name != nil {
		bullets = append(bullets, "Authentic "+*product.Brand.Name+" craftsmanship")
	}
	if product.Color != nil {
		bullets = append(bullets, "Distinctive "+*product.Color+" finish")
	}
	if product.Material != nil {
		bullets = append(bullets, "Premium "+*product.Material+" materials")
	}
	if product.Description != nil {
		firstLine := *product.Description
		if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
			firstLine = firstLine[:idx]
		}
		bullets = append(bullets, firstLine)
	}
	if len(bullets) == 0 {
		bullets = []string{"LLM-enriched listing details"}
	}
	if len(bullets) > 4 {
		bullets = bullets[:4]
	}
	return bullets
}

func inventoryRequestFromListing(plan model.ListingPlan) marketplace.InventoryItemRequest {
	var aspects map[string][]string
	if len(plan.Aspects) > 0 {
		aspects = plan.Aspects
	}
	return marketplace.InventoryItemRequest{
		Availability: marketplace.InventoryAvailability{
			ShipToLocationAvailability: marketplace.ShipToLocationAvailability{Quantity: 1},
		},
		Product: marketplace.InventoryProduct{
			Title:       plan.Title,
			Description: plan.Description,
			Aspects:     aspects,
			ImageURLs:   plan.Images,
		},
		PackageWeightAndSize: plan.Package,
	}
}

func buildOfferRequests(plan model.ListingPlan) (marketplace.CreateOfferRequest, marketplace.UpdateOfferRequest) {
	pricing := marketplace.PricingSummary{Price: marketplace.PriceFromAmount(plan.Price, plan.Currency)}
	policies := marketplace.ListingPolicies{
		FulfillmentPolicyID: plan.FulfillmentPolicyID,
		PaymentPolicyID:     plan.PaymentPolicyID,
		ReturnPolicyID:      plan.ReturnPolicyID,
	}
	create := marketplace.CreateOfferRequest{
		SKU:                  plan.SKU,
		MarketplaceID:        plan.Marketplace.EbayCode(),
		Format:               "FIXED_PRICE",
		CategoryID:           plan.CategoryID,
		ListingDescription:   plan.Description,
		PricingSummary:       pricing,
		AvailableQuantity:    1,
		MerchantLocationKey:  plan.MerchantLocationKey,
		ListingPolicies:      policies,
		Aspects:              plan.Aspects,
		PackageWeightAndSize: plan.Package,
		ImageURLs:            plan.Images,
	}
	update := marketplace.UpdateOfferRequest{
		Format:               "FIXED_PRICE",
		CategoryID:           plan.CategoryID,
		ListingDescription:   plan.Description,
		PricingSummary:       pricing,
		AvailableQuantity:    1,
		ListingPolicies:      policies,
		MerchantLocationKey:  plan.MerchantLocationKey,
		PackageWeightAndSize: plan.Package,
	}
	return create, update
}

func marketplaceRoute(id model.MarketplaceID) string {
	switch id {
	case model.MarketplaceEbayUK:
		return "https://api.ebay.co.uk/sell"
	case model.MarketplaceEbayDE:
		return "https://api.ebay.de/sell"
	default:
		return "https://api.ebay.com/sell"
	}
}

func resolveEbayConfig(request model.ListingRequest, orgConfig *tenantconfig.OrgConfig) (ebayRuntimeConfig, error) {
	merchantLocationKey, err := selectValue(stringOrNil(orgConfig, func(c tenantconfig.OrgConfig) string { return c.MerchantLocationKey }), request.MerchantLocationKey, "merchant_location_key")
	if err != nil {
		return ebayRuntimeConfig{}, err
	}
	fulfillment, err := selectValue(stringOrNil(orgConfig, func(c tenantconfig.OrgConfig) string { return c.FulfillmentPolicyID }), request.FulfillmentPolicyID, "fulfillment_policy_id")
	if err != nil {
		return ebayRuntimeConfig{}, err
	}
	payment, err := selectValue(stringOrNil(orgConfig, func(c tenantconfig.OrgConfig) string { return c.PaymentPolicyID }), request.PaymentPolicyID, "payment_policy_id")
	if err != nil {
		return ebayRuntimeConfig{}, err
	}
	returnPolicy, err := selectValue(stringOrNil(orgConfig, func(c tenantconfig.OrgConfig) string { return c.ReturnPolicyID }), request.ReturnPolicyID, "return_policy_id")
	if err != nil {
		return ebayRuntimeConfig{}, err
	}

	marketplaceID := request.Marketplace
	if orgConfig != nil && orgConfig.Marketplace != nil {
		if parsed, ok := model.ParseMarketplaceID(*orgConfig.Marketplace); ok {
			marketplaceID = parsed
		}
	}

	var location *locationMetadata
	if orgConfig != nil {
		location = locationFromConfig(*orgConfig)
	}

	return ebayRuntimeConfig{
		merchantLocationKey: merchantLocationKey,
		policies: marketplace.ListingPolicies{
			FulfillmentPolicyID: fulfillment,
			PaymentPolicyID:     payment,
			ReturnPolicyID:      returnPolicy,
		},
		marketplaceID: marketplaceID,
		location:      location,
	}, nil
}

func stringOrNil(cfg *tenantconfig.OrgConfig, get func(tenantconfig.OrgConfig) string) *string {
	if cfg == nil {
		return nil
	}
	value := get(*cfg)
	if value == "" {
		return nil
	}
	return &value
}

func selectValue(configValue *string, requestValue, field string) (string, error) {
	candidate := requestValue
	if configValue != nil {
		candidate = *configValue
	}
	if strings.TrimSpace(candidate) == "" {
		return "", apperror.InvalidInput("ebay_config", "missing_"+field)
	}
	return candidate, nil
}

func locationFromConfig(cfg tenantconfig.OrgConfig) *locationMetadata {
	required := func(v *string) (string, bool) {
		if v == nil || strings.TrimSpace(*v) == "" {
			return "", false
		}
		return strings.TrimSpace(*v), true
	}
	name, ok := required(cfg.LocationName)
	if !ok {
		return nil
	}
	line1, ok := required(cfg.AddressLine1)
	if !ok {
		return nil
	}
	city, ok := required(cfg.City)
	if !ok {
		return nil
	}
	state, ok := required(cfg.StateOrProvince)
	if !ok {
		return nil
	}
	postal, ok := required(cfg.PostalCode)
	if !ok {
		return nil
	}
	country, ok := required(cfg.Country)
	if !ok {
		return nil
	}
	var line2 *string
	if v, ok := required(cfg.AddressLine2); ok {
		line2 = &v
	}
	var lat, lon *string
	if v, ok := required(cfg.Latitude); ok {
		lat = &v
	}
	if v, ok := required(cfg.Longitude); ok {
		lon = &v
	}
	return &locationMetadata{
		name: name, addressLine1: line1, addressLine2: line2,
		city: city, stateOrProvince: state, postalCode: postal, country: country,
		latitude: lat, longitude: lon,
	}
}
