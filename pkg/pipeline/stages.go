package pipeline

import (
	"context"
	"time"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/pkg/extraction"
	"github.com/itsneelabh/hermes/pkg/idgen"
	"github.com/itsneelabh/hermes/pkg/listing"
	"github.com/itsneelabh/hermes/pkg/llmclient"
	"github.com/itsneelabh/hermes/pkg/marketplace"
	"github.com/itsneelabh/hermes/pkg/model"
	"github.com/itsneelabh/hermes/pkg/offer"
)

var tokenScopes = []string{
	"https://api.ebay.com/oauth/api_scope/sell.inventory",
	"https://api.ebay.com/oauth/api_scope/sell.account",
}

func shortPause(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func stageResolveImages(request model.ListingRequest, images config.ImagesConfig) ([]string, map[string]interface{}, error) {
	shortPause(18)

	var tokens []string
	if request.ImagesSource.IsMultiple() {
		for _, value := range request.ImagesSource.Multiple {
			tokens = append(tokens, tokenize(value)...)
		}
	} else {
		tokens = tokenize(request.ImagesSource.Single)
	}

	var resolved []string
	for _, entry := range tokens {
		trimmed := entry
		if trimmed != "" {
			resolved = append(resolved, trimmed)
		}
	}

	if request.UseSignedURLs {
		signed := make([]string, len(resolved))
		for i, url := range resolved {
			signed[i] = addSignature(url)
		}
		resolved = signed
	}

	resolved = deduplicate(resolved)

	maxImages := maxImagesAllowed(images)
	if len(resolved) > maxImages {
		return nil, nil, apperror.InvalidInput("resolve_images", "too_many_images")
	}
	if len(resolved) == 0 {
		return nil, nil, apperror.InvalidInput("resolve_images", "no images provided")
	}

	for _, url := range resolved {
		if err := validateImageURL(url, images.Allowlist); err != nil {
			return nil, nil, apperror.InvalidInput("resolve_images", err.Error())
		}
	}

	preview := resolved
	if len(preview) > 4 {
		preview = preview[:4]
	}

	return resolved, map[string]interface{}{
		"count":           len(resolved),
		"preview":         preview,
		"use_signed_urls": request.UseSignedURLs,
	}, nil
}

func stageSelectCategory(request model.ListingRequest, images []string, categories []CategoryDefinition, seed uint64) (model.CategorySelection, map[string]interface{}, error) {
	shortPause(22)

	if len(categories) == 0 {
		return model.CategorySelection{}, nil, apperror.InternalMsg("select_category", "no categories configured")
	}
	idx := int(seed % uint64(len(categories)))
	category := categories[idx]

	confidence := 0.55 + float64(seed%40)/100.0
	if confidence > 0.95 {
		confidence = 0.95
	}
	rounded := roundTwo(confidence)
	if rounded > 0.99 {
		rounded = 0.99
	}
	if rounded < 0 {
		rounded = 0
	}

	rationale := "sku signal `" + request.SKU + "` + image hash matched `" + category.Narrative + "`"

	selection := model.CategorySelection{
		ID: category.ID, TreeID: category.TreeID, Label: category.Label,
		Confidence: rounded, Rationale: rationale,
	}

	var alternatives []map[string]interface{}
	for pos, item := range categories {
		if pos == idx {
			continue
		}
		alternatives = append(alternatives, map[string]interface{}{"id": item.ID, "label": item.Label, "keywords": item.Keywords})
		if len(alternatives) == 2 {
			break
		}
	}

	var signature interface{}
	if len(images) > 0 {
		signature = images[0]
	}

	return selection, map[string]interface{}{
		"selected":        selection,
		"alternatives":    alternatives,
		"image_signature": signature,
	}, nil
}

func roundTwo(v float64) float64 {
	scaled := v * 100.0
	rounded := float64(int64(scaled + 0.5))
	if scaled < 0 {
		rounded = float64(int64(scaled - 0.5))
	}
	return rounded / 100.0
}

func stageFetchTaxonomy(selection model.CategorySelection) (model.TaxonomySpec, map[string]interface{}, error) {
	shortPause(25)

	aspects := buildAspectsForCategory(selection.Label)
	spec := model.TaxonomySpec{
		CategoryID: selection.ID,
		TreeID:     selection.TreeID,
		Aspects:    aspects,
	}

	sample := aspects
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return spec, map[string]interface{}{
		"category_id":   spec.CategoryID,
		"aspect_count":  len(spec.Aspects),
		"sample_aspects": sample,
	}, nil
}

func buildAspectsForCategory(categoryLabel string) []model.TaxonomyAspect {
	aspects := []model.TaxonomyAspect{
		{
			LocalizedAspectName: "Brand",
			AspectValues:        []model.TaxonomyAspectVal{{LocalizedValue: "Hermes Labs"}, {LocalizedValue: "Demo Labs"}},
			AspectConstraint:    &model.AspectConstraint{AspectMode: "SELECTION_ONLY", AspectRequired: true, ItemToAspectCardinality: "MULTI"},
		},
		{
			LocalizedAspectName: "Color",
			AspectValues:        []model.TaxonomyAspectVal{{LocalizedValue: "Black"}, {LocalizedValue: "White"}, {LocalizedValue: "Sand"}},
			AspectConstraint:    &model.AspectConstraint{AspectMode: "SELECTION_ONLY", AspectRequired: true, ItemToAspectCardinality: "MULTI"},
		},
		{
			LocalizedAspectName: "Condition",
			AspectValues:        []model.TaxonomyAspectVal{{LocalizedValue: "New"}, {LocalizedValue: "Used"}},
			AspectConstraint:    &model.AspectConstraint{AspectMode: "FREE_TEXT", AspectRequired: false, ItemToAspectCardinality: "MULTI"},
		},
	}

	if containsFold(categoryLabel, "Electronics") {
		aspects = append(aspects, model.TaxonomyAspect{
			LocalizedAspectName: "BatteryIncluded",
			AspectValues:        []model.TaxonomyAspectVal{{LocalizedValue: "Yes"}, {LocalizedValue: "No"}},
			AspectConstraint:    &model.AspectConstraint{AspectMode: "FREE_TEXT", AspectRequired: false, ItemToAspectCardinality: "MULTI"},
		})
	}
	return aspects
}

func containsFold(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalFold(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func stageAcquireUserToken() (userToken, map[string]interface{}, error) {
	shortPause(12)

	value := "demo_" + idgen.NewUUID()
	token := userToken{Token: value, ExpiresIn: 3600}

	return token, map[string]interface{}{
		"token_preview":      previewToken(value),
		"scopes":             tokenScopes,
		"expires_in_seconds": 3600,
	}, nil
}

func stagePrepareConditions(selection model.CategorySelection) (model.ConditionBundle, map[string]interface{}, error) {
	shortPause(14)

	var allowed []string
	label := selection.Label
	switch {
	case containsFold(label, "shoe"):
		allowed = []string{"NEW_IN_BOX", "USED_LIKE_NEW", "USED_GOOD", "USED_FAIR"}
	case containsFold(label, "collectible"):
		allowed = []string{"NEW", "UNOPENED", "DISPLAY_ONLY", "USED"}
	default:
		allowed = []string{"NEW", "USED_LIKE_NEW", "USED_GOOD", "USED"}
	}
	if len(allowed) == 0 {
		allowed = []string{"USED"}
	}

	bundle := model.ConditionBundle{Allowed: allowed}
	return bundle, map[string]interface{}{
		"allowed": bundle.Allowed,
		"default": bundle.DefaultCondition(),
	}, nil
}

func stageExtractProduct(ctx context.Context, request model.ListingRequest, images []string, llm *llmclient.Client) (model.Product, map[string]interface{}, error) {
	shortPause(40)

	product, err := extraction.InferProduct(ctx, llm, request.SKU, images)
	if err != nil {
		product = extraction.FallbackProduct(request.SKU, images)
	}

	var brand interface{}
	if product.Brand != nil && product.Brand.Name != nil {
		brand = *product.Brand.Name
	}
	return product, map[string]interface{}{
		"name":   product.Name,
		"brand":  brand,
		"color":  product.Color,
		"images": len(images),
	}, nil
}

func stageBuildListing(ctx context.Context, request model.ListingRequest, product model.Product, taxonomy model.TaxonomySpec, conditions model.ConditionBundle, ebayCfg ebayRuntimeConfig, llm *llmclient.Client) (model.ListingPlan, map[string]interface{}, error) {
	shortPause(28)

	draft, err := listing.BuildListingDraft(product, taxonomy, "USD")
	if err != nil {
		return model.ListingPlan{}, nil, apperror.Internal("build_listing", "build_listing_draft failed", err)
	}
	pkg := listing.EstimatePackage(product)

	descriptionText := generateDescription(ctx, llm, product, draft.Title)

	plan := model.ListingPlan{
		SKU:                 request.SKU,
		Title:               draft.Title,
		Description:         descriptionText,
		Price:               draft.Price,
		Currency:            draft.Currency,
		Condition:           conditions.DefaultCondition(),
		Marketplace:         ebayCfg.marketplaceID,
		MerchantLocationKey: ebayCfg.merchantLocationKey,
		CategoryID:          draft.CategoryID,
		Images:              draft.Images,
		FulfillmentPolicyID: ebayCfg.policies.FulfillmentPolicyID,
		PaymentPolicyID:     ebayCfg.policies.PaymentPolicyID,
		ReturnPolicyID:      ebayCfg.policies.ReturnPolicyID,
		Aspects:             draft.Aspects,
		AspectOrder:         draft.AspectOrder,
		Package:             pkg,
	}

	return plan, map[string]interface{}{
		"title":        plan.Title,
		"price":        plan.Price,
		"currency":     plan.Currency,
		"condition":    plan.Condition,
		"aspect_count": len(plan.Aspects),
	}, nil
}

// generateDescription asks the LLM for a polished listing description,
// substituting a deterministic templated fallback (product bullet points
// under the title) when the call fails, per build_listing's documented
// fallback behavior.
func generateDescription(ctx context.Context, llm *llmclient.Client, product model.Product, title string) string {
	bullets := bulletPointsFromProduct(product)
	prompt := "Generate a compelling, policy-compliant eBay listing description. Title: " + title + "."

	description, err := llm.Chat(ctx, []llmclient.Message{{Role: "user", Content: prompt}})
	if err != nil {
		var fallback string
		fallback += title + "\n\nHighlights:\n"
		for _, b := range bullets {
			fallback += "- " + b + "\n"
		}
		fallback += "\nAuto-generated demo description. Details may be approximations."
		return fallback
	}
	return description.Text
}

func stagePushInventory(ctx context.Context, request model.ListingRequest, plan model.ListingPlan, client *marketplace.Client, accessToken string, location *locationMetadata) (inventoryReceipt, map[string]interface{}, error) {
	shortPause(15)

	inventoryRequest := inventoryRequestFromListing(plan)

	if accessToken != "" {
		if location != nil && location.addressLine1 != "" {
			locationPayload := marketplace.InventoryLocationRequest{
				MerchantLocationStatus: "ENABLED",
				LocationTypes:          []string{"WAREHOUSE"},
				Name:                   location.name,
				Location: marketplace.LocationDetails{
					Address: marketplace.LocationAddress{
						AddressLine1:    location.addressLine1,
						AddressLine2:    location.addressLine2,
						City:            location.city,
						StateOrProvince: location.stateOrProvince,
						PostalCode:      location.postalCode,
						Country:         location.country,
					},
					GeoCoordinates: &marketplace.LocationGeo{Latitude: location.latitude, Longitude: location.longitude},
				},
			}
			_ = client.UpsertInventoryLocation(ctx, plan.MerchantLocationKey, locationPayload, accessToken)
		}
		if err := client.UpsertInventoryItem(ctx, request.SKU, inventoryRequest, accessToken); err != nil {
			return inventoryReceipt{}, nil, apperror.Internal("push_inventory", "inventory_item upsert failed", err)
		}
	}

	receipt := inventoryReceipt{SKU: plan.SKU, Location: plan.MerchantLocationKey, Quantity: 1, Status: "UPSERTED"}
	return receipt, map[string]interface{}{
		"sku":              receipt.SKU,
		"location":         receipt.Location,
		"status":           receipt.Status,
		"media_attached":   len(plan.Images),
		"inventory_request": inventoryRequest,
	}, nil
}

func stagePublishOffer(ctx context.Context, request model.ListingRequest, plan model.ListingPlan, selection model.CategorySelection, token userToken, client *marketplace.Client, accessToken string) (offer.Result, map[string]interface{}, error) {
	shortPause(20)

	createReq, updateReq := buildOfferRequests(plan)

	var result offer.Result
	if accessToken != "" {
		var err error
		result, err = offer.Publish(ctx, client, createReq, updateReq, accessToken)
		if err != nil {
			return offer.Result{}, nil, err
		}
	} else {
		result = offer.Result{ListingID: idgen.FallbackListingID()}
	}

	var offerID interface{}
	if result.OfferID != nil {
		offerID = *result.OfferID
	}

	return result, map[string]interface{}{
		"listing_id":    result.ListingID,
		"preview_url":   offer.PreviewURL(result.ListingID),
		"route":         marketplaceRoute(plan.Marketplace),
		"category":      selection.Label,
		"token_preview": previewToken(token.Token),
		"title":         plan.Title,
		"media_count":   len(plan.Images),
		"create_offer":  createReq,
		"update_offer":  updateReq,
		"offer_id":      offerID,
	}, nil
}
