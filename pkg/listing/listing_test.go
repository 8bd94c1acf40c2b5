package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/pkg/model"
)

func strp(s string) *string    { return &s }
func f64p(v float64) *float64  { return &v }

func sampleTaxonomy() model.TaxonomySpec {
	return model.TaxonomySpec{
		CategoryID: "11450",
		TreeID:     "0",
		Aspects: []model.TaxonomyAspect{
			{
				LocalizedAspectName: "Brand",
				AspectValues:        []model.TaxonomyAspectVal{{LocalizedValue: "Hermes Labs"}, {LocalizedValue: "Demo Labs"}},
				AspectConstraint:    &model.AspectConstraint{AspectMode: "SELECTION_ONLY", ItemToAspectCardinality: "SINGLE"},
			},
			{
				LocalizedAspectName: "Color",
				AspectConstraint:    &model.AspectConstraint{ItemToAspectCardinality: "MULTI"},
			},
		},
	}
}

func TestBuildListingDraftHappyPath(t *testing.T) {
	product := model.Product{
		Name:  "Test Widget",
		Image: model.ImageField{Multiple: []string{"https://img.test/a.jpg"}},
		Offers: model.Offer{
			Price:         f64p(19.99),
			PriceCurrency: strp("usd"),
		},
		Brand: &model.Brand{Name: strp("Hermes Labs")},
		Color: strp("Black/White"),
	}

	plan, err := BuildListingDraft(product, sampleTaxonomy(), "USD")
	require.NoError(t, err)
	assert.Equal(t, 19.99, plan.Price)
	assert.Equal(t, "USD", plan.Currency)
	assert.Equal(t, []string{"Hermes Labs"}, plan.Aspects["Brand"])
	assert.Equal(t, []string{"Black", "White"}, plan.Aspects["Color"])
}

func TestBuildListingDraftMissingPrice(t *testing.T) {
	product := model.Product{
		Name:  "Test Widget",
		Image: model.ImageField{Multiple: []string{"https://img.test/a.jpg"}},
	}
	_, err := BuildListingDraft(product, sampleTaxonomy(), "USD")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidInput(err))
}

func TestBuildListingDraftMissingImages(t *testing.T) {
	product := model.Product{
		Name:   "Test Widget",
		Image:  model.ImageField{Multiple: []string{"  "}},
		Offers: model.Offer{Price: f64p(10), PriceCurrency: strp("USD")},
	}
	_, err := BuildListingDraft(product, sampleTaxonomy(), "USD")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidInput(err))
}

func TestEstimatePackageRequiresAllFour(t *testing.T) {
	product := model.Product{
		Height: &model.QuantitativeValue{UnitCode: strp("INH"), Value: f64p(5)},
		Width:  &model.QuantitativeValue{UnitCode: strp("INH"), Value: f64p(8)},
	}
	assert.Nil(t, EstimatePackage(product))

	product.Depth = &model.QuantitativeValue{UnitCode: strp("INH"), Value: f64p(12)}
	product.Weight = &model.QuantitativeValue{UnitCode: strp("LBR"), Value: f64p(3)}
	pkg := EstimatePackage(product)
	require.NotNil(t, pkg)
	assert.Equal(t, 5.0, pkg.PackageSize.Height)
	assert.Equal(t, 3.0, pkg.PackageWeight.Value)
}

func TestTruncateAppendsEllipsis(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	out := truncate(long, 80)
	assert.Len(t, out, 80)
	assert.Equal(t, "...", out[len(out)-3:])
}
