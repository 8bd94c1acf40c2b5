// Package listing builds the marketplace-ready listing draft from an
// extracted product and its resolved taxonomy: price/currency extraction,
// image filtering, aspect reconciliation against category constraints, and
// package-dimension estimation. Grounded on the original hsuf::transform
// module.
package listing

import (
	"sort"
	"strings"
	"unicode"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/pkg/measurement"
	"github.com/itsneelabh/hermes/pkg/model"
)

const stageName = "build_listing"

// BuildListingDraft assembles title/description/price/images/aspects for
// product within category, using defaultCurrency when the product carries
// no currency of its own.
func BuildListingDraft(product model.Product, taxonomy model.TaxonomySpec, defaultCurrency string) (model.ListingPlan, error) {
	price, currency, err := extractPrice(product.Offers, defaultCurrency)
	if err != nil {
		return model.ListingPlan{}, err
	}

	images, err := extractImages(product.Image)
	if err != nil {
		return model.ListingPlan{}, err
	}

	aspects, order := buildAspects(product, taxonomy)

	description := ""
	if product.Description != nil {
		description = *product.Description
	} else {
		description = buildFallbackDescription(product)
	}

	sku := "hsuf-sku"
	if product.SKU != nil && strings.TrimSpace(*product.SKU) != "" {
		sku = *product.SKU
	}

	return model.ListingPlan{
		SKU:         sku,
		Title:       truncate(product.Name, 80),
		Description: truncate(description, 50000),
		Price:       price,
		Currency:    currency,
		CategoryID:  taxonomy.CategoryID,
		Images:      images,
		Aspects:     aspects,
		AspectOrder: order,
	}, nil
}

// EstimatePackage converts a product's physical dimensions into eBay's
// package payload, only when all four values convert cleanly.
func EstimatePackage(product model.Product) *model.PackagePayload {
	height, ok := measurement.LengthToInches(product.Height)
	if !ok {
		return nil
	}
	width, ok := measurement.LengthToInches(product.Width)
	if !ok {
		return nil
	}
	length, ok := measurement.LengthToInches(product.Depth)
	if !ok {
		return nil
	}
	weight, ok := measurement.WeightToPounds(product.Weight)
	if !ok {
		return nil
	}

	if weight < 0.1 {
		weight = 0.1
	}

	return &model.PackagePayload{
		PackageWeight: model.WeightPayload{
			Value: measurement.RoundTwo(weight),
			Unit:  "POUND",
		},
		PackageSize: model.DimensionsPayload{
			Height: measurement.RoundOne(height),
			Length: measurement.RoundOne(length),
			Width:  measurement.RoundOne(width),
			Unit:   "INCH",
		},
	}
}

func extractPrice(offer model.Offer, defaultCurrency string) (float64, string, error) {
	if offer.Price != nil {
		currency := defaultCurrency
		if offer.PriceCurrency != nil {
			currency = *offer.PriceCurrency
		}
		return *offer.Price, strings.ToUpper(currency), nil
	}
	if offer.PriceSpecification != nil && offer.PriceSpecification.Price != nil {
		currency := defaultCurrency
		if offer.PriceSpecification.PriceCurrency != nil {
			currency = *offer.PriceSpecification.PriceCurrency
		}
		return *offer.PriceSpecification.Price, strings.ToUpper(currency), nil
	}
	return 0, "", apperror.InvalidInput(stageName, "offer missing price information")
}

func extractImages(image model.ImageField) ([]string, error) {
	var cleaned []string
	for _, value := range image.AsSlice() {
		if strings.TrimSpace(value) != "" {
			cleaned = append(cleaned, value)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperror.InvalidInput(stageName, "product image set is empty")
	}
	return cleaned, nil
}

func buildAspects(product model.Product, taxonomy model.TaxonomySpec) (map[string][]string, []string) {
	values := make(map[string][]string)
	var order []string
	for _, aspect := range taxonomy.Aspects {
		name := strings.TrimSpace(aspect.LocalizedAspectName)
		if name == "" {
			continue
		}
		candidates := hsufValuesForAspect(product, name)
		if len(candidates) == 0 {
			continue
		}

		filtered := applyConstraints(candidates, aspect)
		if len(filtered) == 0 {
			continue
		}

		cardinality := "MULTI"
		if aspect.AspectConstraint != nil && aspect.AspectConstraint.ItemToAspectCardinality != "" {
			cardinality = aspect.AspectConstraint.ItemToAspectCardinality
		}

		var stored []string
		if cardinality == "SINGLE" {
			stored = []string{filtered[0]}
		} else {
			stored = filtered
		}
		values[name] = stored
		order = append(order, name)
	}
	sort.Strings(order)
	return values, order
}

func hsufValuesForAspect(product model.Product, aspectName string) []string {
	switch strings.ToLower(strings.TrimSpace(aspectName)) {
	case "brand", "manufacturer":
		return extractBrand(product)
	case "color", "main color":
		return splitField(product.Color)
	case "mpn":
		if product.MPN != nil {
			return []string{*product.MPN}
		}
	case "sku":
		if product.SKU != nil {
			return []string{*product.SKU}
		}
	}
	return nil
}

func extractBrand(product model.Product) []string {
	if product.Brand != nil && product.Brand.Name != nil {
		return []string{*product.Brand.Name}
	}
	return nil
}

func splitField(value *string) []string {
	if value == nil {
		return nil
	}
	segments := strings.FieldsFunc(*value, func(r rune) bool {
		switch r {
		case '/', '|', ',', '&', '\n':
			return true
		default:
			return false
		}
	})
	var result []string
	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func applyConstraints(values []string, aspect model.TaxonomyAspect) []string {
	if aspect.AspectConstraint == nil || aspect.AspectConstraint.AspectMode != "SELECTION_ONLY" {
		return values
	}

	allowed := make(map[string]string, len(aspect.AspectValues))
	for _, val := range aspect.AspectValues {
		allowed[normalizeText(val.LocalizedValue)] = strings.TrimSpace(val.LocalizedValue)
	}

	var matched []string
	for _, candidate := range values {
		if value, ok := allowed[normalizeText(candidate)]; ok {
			matched = append(matched, value)
		}
	}
	return matched
}

func normalizeText(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func buildFallbackDescription(product model.Product) string {
	var lines []string
	if product.Brand != nil && product.Brand.Name != nil {
		lines = append(lines, "Brand: "+*product.Brand.Name)
	}
	if product.Color != nil {
		lines = append(lines, "Color: "+*product.Color)
	}
	if product.Material != nil {
		lines = append(lines, "Material: "+*product.Material)
	}
	if product.Size != nil {
		if size, ok := product.Size.Resolve(); ok {
			lines = append(lines, "Size: "+size)
		}
	}
	if len(lines) == 0 {
		return product.Name
	}
	return strings.Join(lines, "\n")
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRightFunc(value[:cut], unicode.IsSpace) + "..."
}
