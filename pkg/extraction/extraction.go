// Package extraction builds the product-ingestion prompt, calls the LLM
// gateway, normalizes its JSON reply into a model.Product, and synthesizes
// a deterministic fallback when the call or the parse fails. Prompt text,
// normalization rules, and fallback field values follow the original
// hsuf::ingest module.
package extraction

import (
	"context"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/itsneelabh/hermes/pkg/llmclient"
	"github.com/itsneelabh/hermes/pkg/model"
)

// ErrEmptyImages is returned when no images are available to ground the
// extraction prompt.
var ErrEmptyImages = errors.New("extraction requires at least one image")

const systemPrompt = `
You are a product ingestion agent. Given a set of product image URLs and metadata, respond with a valid
JSON object that conforms to schema.org Product. Include ` + "`image`, `offers`" + `, and dimensional metadata when
possible. Omitting required fields is not allowed. If uncertain, make the best reasonable assumption and note it in
the description. Output JSON only.
`

// InferProduct asks the LLM to synthesize a Product from the given images.
func InferProduct(ctx context.Context, llm *llmclient.Client, sku string, images []string) (model.Product, error) {
	if len(images) == 0 {
		return model.Product{}, ErrEmptyImages
	}

	payload := map[string]interface{}{
		"sku":         sku,
		"images":      images,
		"instruction": "Return a schema.org Product JSON with offers.price, offers.priceCurrency, image, color, material, dimensions, and weight when possible.",
	}
	payloadJSON, err := sonic.MarshalString(payload)
	if err != nil {
		return model.Product{}, err
	}

	messages := []llmclient.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: payloadJSON},
	}

	resp, err := llm.Chat(ctx, messages)
	if err != nil {
		return model.Product{}, err
	}

	cleaned := stripMarkdownFence(resp.Text)

	var raw map[string]interface{}
	if err := sonic.UnmarshalString(cleaned, &raw); err != nil {
		return model.Product{}, err
	}
	normalizeProductValue(raw, images)

	reencoded, err := sonic.Marshal(raw)
	if err != nil {
		return model.Product{}, err
	}
	var product model.Product
	if err := sonic.Unmarshal(reencoded, &product); err != nil {
		return model.Product{}, err
	}
	return product, nil
}

func stripMarkdownFence(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	var body []string
	for _, line := range lines[1:] {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			break
		}
		body = append(body, line)
	}
	return strings.Join(body, "\n")
}

func normalizeProductValue(obj map[string]interface{}, images []string) {
	if name, ok := obj["name"].(string); !ok || strings.TrimSpace(name) == "" {
		obj["name"] = "Untitled Product"
	}

	if _, ok := obj["sku"]; !ok {
		obj["sku"] = uuid.NewString()
	}

	image, exists := obj["image"]
	needsDefault := !exists
	switch v := image.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			needsDefault = true
		}
	case []interface{}:
		if len(v) == 0 {
			needsDefault = true
		}
	case nil:
		needsDefault = true
	}
	if needsDefault {
		limit := len(images)
		if limit > 6 {
			limit = 6
		}
		fallbackImages := make([]interface{}, 0, limit)
		for _, url := range images[:limit] {
			fallbackImages = append(fallbackImages, url)
		}
		obj["image"] = fallbackImages
	}

	offersRaw, ok := obj["offers"].(map[string]interface{})
	if !ok {
		offersRaw = map[string]interface{}{}
	}
	if _, ok := offersRaw["price"]; !ok {
		offersRaw["price"] = 49.99
	}
	if _, ok := offersRaw["priceCurrency"]; !ok {
		offersRaw["priceCurrency"] = "USD"
	}
	if _, ok := offersRaw["itemCondition"]; !ok {
		offersRaw["itemCondition"] = "https://schema.org/UsedCondition"
	}
	obj["offers"] = offersRaw
}

// FallbackProduct synthesizes a deterministic Product when the LLM call or
// parse fails, seeded only by sku and the available images.
func FallbackProduct(sku string, images []string) model.Product {
	primary := ""
	if len(images) > 0 {
		primary = images[0]
	}

	var image model.ImageField
	if len(images) == 1 {
		image.Single = &primary
	} else {
		image.Multiple = append([]string(nil), images...)
	}

	price := 99.0
	currency := "USD"
	description := "Automated fallback description"
	brandName := "Hermes Labs"
	color := "Black"
	material := "Mixed materials"
	mpn := "MPN-" + sku
	skuCopy := sku

	str := func(s string) *string { return &s }
	num := func(v float64) *float64 { return &v }

	return model.Product{
		Name:        sku + " listing",
		Image:       image,
		Offers:      model.Offer{Price: &price, PriceCurrency: &currency},
		Description: &description,
		Brand:       &model.Brand{Name: &brandName},
		Color:       &color,
		Material:    &material,
		SKU:         &skuCopy,
		MPN:         &mpn,
		Height:      &model.QuantitativeValue{UnitCode: str("INH"), UnitText: str("Inches"), Value: num(5.0)},
		Width:       &model.QuantitativeValue{UnitCode: str("INH"), UnitText: str("Inches"), Value: num(8.0)},
		Depth:       &model.QuantitativeValue{UnitCode: str("INH"), UnitText: str("Inches"), Value: num(12.0)},
		Weight:      &model.QuantitativeValue{UnitCode: str("LBR"), UnitText: str("Pounds"), Value: num(3.0)},
	}
}
