package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagesSourceAcceptsBothWireShapes(t *testing.T) {
	var request ListingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"images_source":"https://a/1.jpg"}`), &request))
	assert.False(t, request.ImagesSource.IsMultiple())
	assert.Equal(t, "https://a/1.jpg", request.ImagesSource.Single)

	require.NoError(t, json.Unmarshal([]byte(`{"images_source":["https://a/1.jpg","https://a/2.jpg"]}`), &request))
	assert.True(t, request.ImagesSource.IsMultiple())
	assert.Equal(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, request.ImagesSource.Multiple)
}

func TestImagesSourceRoundTrips(t *testing.T) {
	encoded, err := json.Marshal(MultiSource("a", "b"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(encoded))

	encoded, err = json.Marshal(SingleSource("a"))
	require.NoError(t, err)
	assert.JSONEq(t, `"a"`, string(encoded))
}

func TestImageFieldAsSlice(t *testing.T) {
	var single ImageField
	require.NoError(t, json.Unmarshal([]byte(`"https://a/1.jpg"`), &single))
	assert.Equal(t, []string{"https://a/1.jpg"}, single.AsSlice())

	var multiple ImageField
	require.NoError(t, json.Unmarshal([]byte(`["https://a/1.jpg","https://a/2.jpg"]`), &multiple))
	assert.Equal(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, multiple.AsSlice())
}

func TestSizeFieldThreeShapes(t *testing.T) {
	var text SizeField
	require.NoError(t, json.Unmarshal([]byte(`"XL"`), &text))
	resolved, ok := text.Resolve()
	require.True(t, ok)
	assert.Equal(t, "XL", resolved)

	var quantitative SizeField
	require.NoError(t, json.Unmarshal([]byte(`{"value":10.5,"unitCode":"INH"}`), &quantitative))
	require.NotNil(t, quantitative.Quantitative)
	resolved, ok = quantitative.Resolve()
	require.True(t, ok)
	assert.Equal(t, "10.5", resolved)

	var spec SizeField
	require.NoError(t, json.Unmarshal([]byte(`{"name":"US 9","sizeSystem":"US"}`), &spec))
	require.NotNil(t, spec.Specification)
	resolved, ok = spec.Resolve()
	require.True(t, ok)
	assert.Equal(t, "US 9", resolved)
}

func TestSizeFieldNullLeavesEmpty(t *testing.T) {
	var size SizeField
	require.NoError(t, json.Unmarshal([]byte(`null`), &size))
	_, ok := size.Resolve()
	assert.False(t, ok)
}

func TestParseMarketplaceID(t *testing.T) {
	id, ok := ParseMarketplaceID("ebay_uk")
	require.True(t, ok)
	assert.Equal(t, MarketplaceEbayUK, id)

	id, ok = ParseMarketplaceID("EBAY_GB")
	require.True(t, ok)
	assert.Equal(t, MarketplaceEbayUK, id)

	_, ok = ParseMarketplaceID("AMAZON_US")
	assert.False(t, ok)
}

func TestJobStateSerializesTaggedVariant(t *testing.T) {
	encoded, err := json.Marshal(JobState{JobID: "j1", State: JobFailed, Error: "boom", Stage: "resolve_images"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"j1","state":"failed","error":"boom","stage":"resolve_images"}`, string(encoded))

	encoded, err = json.Marshal(JobState{JobID: "j2", State: JobQueued})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"j2","state":"queued"}`, string(encoded))
}

func TestConditionBundleDefault(t *testing.T) {
	assert.Equal(t, "USED", ConditionBundle{}.DefaultCondition())
	assert.Equal(t, "NEW", ConditionBundle{Allowed: []string{"NEW", "USED"}}.DefaultCondition())
}

func TestProductDecodesSchemaOrgShape(t *testing.T) {
	raw := `{
		"name": "Demo Headphones",
		"image": ["https://a/1.jpg"],
		"offers": {"price": 59.99, "priceCurrency": "usd", "itemCondition": "https://schema.org/UsedCondition"},
		"brand": {"name": "Hermes Labs"},
		"size": "One Size",
		"weight": {"value": 1.2, "unitCode": "KGM"}
	}`
	var product Product
	require.NoError(t, json.Unmarshal([]byte(raw), &product))
	assert.Equal(t, "Demo Headphones", product.Name)
	require.NotNil(t, product.Offers.Price)
	assert.Equal(t, 59.99, *product.Offers.Price)
	require.NotNil(t, product.Brand)
	require.NotNil(t, product.Brand.Name)
	assert.Equal(t, "Hermes Labs", *product.Brand.Name)
	require.NotNil(t, product.Size)
	require.NotNil(t, product.Size.Text)
	require.NotNil(t, product.Weight)
	require.NotNil(t, product.Weight.Value)
	assert.Equal(t, 1.2, *product.Weight.Value)
}
