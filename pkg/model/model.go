// Package model defines the wire and domain types shared across the
// pipeline: the client-facing ListingRequest/ListingResponse, the
// schema.org-flavored Product record, and the polymorphic fields the
// original data model relies on (images as a single string or a sequence,
// product size as text/quantitative/named-specification).
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// MarketplaceID is the tagged marketplace identifier carried on every
// request and reconciliation attempt.
type MarketplaceID string

const (
	MarketplaceEbayUS MarketplaceID = "EBAY_US"
	MarketplaceEbayUK MarketplaceID = "EBAY_GB"
	MarketplaceEbayDE MarketplaceID = "EBAY_DE"
)

// EbayCode returns the eBay-native marketplace code used in OAuth scopes
// and offer requests.
func (m MarketplaceID) EbayCode() string {
	switch m {
	case MarketplaceEbayUK:
		return "EBAY_GB"
	case MarketplaceEbayDE:
		return "EBAY_DE"
	default:
		return "EBAY_US"
	}
}

// ParseMarketplaceID accepts the tagged value or the "EBAY_UK" alias;
// returns false when unrecognized.
func ParseMarketplaceID(raw string) (MarketplaceID, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "EBAY_US":
		return MarketplaceEbayUS, true
	case "EBAY_GB", "EBAY_UK":
		return MarketplaceEbayUK, true
	case "EBAY_DE":
		return MarketplaceEbayDE, true
	default:
		return "", false
	}
}

// ImagesSource is the client-submitted images field: either one string
// (optionally delimiter-separated) or an explicit ordered list.
type ImagesSource struct {
	Single   string
	Multiple []string
	isMulti  bool
}

func (s ImagesSource) IsMultiple() bool { return s.isMulti }

// SingleSource builds the single-string form of the images field.
func SingleSource(value string) ImagesSource {
	return ImagesSource{Single: value}
}

// MultiSource builds the explicit ordered-list form of the images field.
func MultiSource(values ...string) ImagesSource {
	return ImagesSource{Multiple: values, isMulti: true}
}

func (s *ImagesSource) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		s.Multiple = list
		s.isMulti = true
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	s.Single = single
	s.isMulti = false
	return nil
}

func (s ImagesSource) MarshalJSON() ([]byte, error) {
	if s.isMulti {
		return json.Marshal(s.Multiple)
	}
	return json.Marshal(s.Single)
}

// PipelineOverrides carries client-supplied values for the three
// overridable stages.
type PipelineOverrides struct {
	ResolvedImages []string                 `json:"resolved_images,omitempty"`
	Category       *CategorySelectionInput  `json:"category,omitempty"`
	Product        json.RawMessage          `json:"product,omitempty"`
}

// CategorySelectionInput is the override shape for select_category.
type CategorySelectionInput struct {
	ID         string  `json:"id"`
	TreeID     string  `json:"tree_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// ListingRequest is the client input driving a full pipeline run.
type ListingRequest struct {
	ImagesSource          ImagesSource       `json:"images_source"`
	SKU                   string             `json:"sku"`
	MerchantLocationKey   string             `json:"merchant_location_key"`
	FulfillmentPolicyID   string             `json:"fulfillment_policy_id"`
	PaymentPolicyID       string             `json:"payment_policy_id"`
	ReturnPolicyID        string             `json:"return_policy_id"`
	Marketplace           MarketplaceID      `json:"marketplace"`
	UseSignedURLs         bool               `json:"use_signed_urls"`
	Overrides             *PipelineOverrides `json:"overrides,omitempty"`
	DryRun                bool               `json:"dry_run"`
}

// StageReport is one executed stage's structured audit record.
type StageReport struct {
	Name      string          `json:"name"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Timestamp time.Time       `json:"timestamp"`
	Output    json.RawMessage `json:"output"`
}

// ListingResponse is returned from every pipeline-driving endpoint.
type ListingResponse struct {
	ListingID string        `json:"listing_id"`
	Stages    []StageReport `json:"stages"`
}

// ApiError is the uniform error body returned to clients.
type ApiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// JobStateKind tags which variant a JobState currently holds.
type JobStateKind string

const (
	JobQueued    JobStateKind = "queued"
	JobRunning   JobStateKind = "running"
	JobCompleted JobStateKind = "completed"
	JobFailed    JobStateKind = "failed"
)

// JobState is the tagged status of one enqueued pipeline run. Only the
// fields matching State are meaningful: Result for completed, Error/Stage
// for failed.
type JobState struct {
	JobID   string          `json:"job_id"`
	State   JobStateKind    `json:"state"`
	Result  *ListingResponse `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Stage   string          `json:"stage,omitempty"`
}

// CategorySelection is the outcome of select_category.
type CategorySelection struct {
	ID         string  `json:"id"`
	TreeID     string  `json:"tree_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// TaxonomyAspect names one marketplace category aspect plus its constraint.
type TaxonomyAspect struct {
	LocalizedAspectName string              `json:"localizedAspectName"`
	AspectValues         []TaxonomyAspectVal `json:"aspectValues,omitempty"`
	AspectConstraint     *AspectConstraint   `json:"aspectConstraint,omitempty"`
}

type TaxonomyAspectVal struct {
	LocalizedValue string `json:"localizedValue"`
}

type AspectConstraint struct {
	AspectMode               string `json:"aspectMode,omitempty"`
	AspectRequired           bool   `json:"aspectRequired,omitempty"`
	ItemToAspectCardinality  string `json:"itemToAspectCardinality,omitempty"`
}

// TaxonomySpec is the category's full aspect set, as returned by
// fetch_taxonomy and consumed by build_listing's aspect reconciliation.
type TaxonomySpec struct {
	CategoryID string           `json:"category_id"`
	TreeID     string           `json:"tree_id"`
	Aspects    []TaxonomyAspect `json:"aspects"`
}

// ConditionBundle is the allowed condition codes for a category, plus the
// default (always the first element).
type ConditionBundle struct {
	Allowed []string `json:"allowed"`
}

func (c ConditionBundle) DefaultCondition() string {
	if len(c.Allowed) == 0 {
		return "USED"
	}
	return c.Allowed[0]
}

// Brand is the schema.org brand sub-record.
type Brand struct {
	Name *string `json:"name,omitempty"`
}

// QuantitativeValue is a schema.org QuantitativeValue: a numeric value plus
// a unit code/text pair.
type QuantitativeValue struct {
	UnitCode *string  `json:"unitCode,omitempty"`
	UnitText *string  `json:"unitText,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// NamedSpecification is the third SizeField shape: a bare named spec with
// optional size group/system.
type NamedSpecification struct {
	Name       *string `json:"name,omitempty"`
	SizeGroup  *string `json:"sizeGroup,omitempty"`
	SizeSystem *string `json:"sizeSystem,omitempty"`
}

// SizeField is polymorphic: a plain string, a QuantitativeValue, or a
// NamedSpecification. Only one of the three is ever populated.
type SizeField struct {
	Text          *string
	Quantitative  *QuantitativeValue
	Specification *NamedSpecification
}

func (s *SizeField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		s.Text = &text
		return nil
	}
	var probe struct {
		Value *float64 `json:"value"`
		Name  *string  `json:"name"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Value != nil {
		var qv QuantitativeValue
		if err := json.Unmarshal(data, &qv); err != nil {
			return err
		}
		s.Quantitative = &qv
		return nil
	}
	var spec NamedSpecification
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	s.Specification = &spec
	return nil
}

func (s SizeField) MarshalJSON() ([]byte, error) {
	switch {
	case s.Text != nil:
		return json.Marshal(*s.Text)
	case s.Quantitative != nil:
		return json.Marshal(s.Quantitative)
	case s.Specification != nil:
		return json.Marshal(s.Specification)
	default:
		return []byte("null"), nil
	}
}

// Resolve returns a human string describing the size field, used by the
// fallback description builder.
func (s SizeField) Resolve() (string, bool) {
	switch {
	case s.Text != nil:
		return *s.Text, true
	case s.Quantitative != nil && s.Quantitative.Value != nil:
		return formatFloatTrim(*s.Quantitative.Value), true
	case s.Specification != nil && s.Specification.Name != nil:
		return *s.Specification.Name, true
	default:
		return "", false
	}
}

// UnitPriceSpecification is the nested offers.priceSpecification shape.
type UnitPriceSpecification struct {
	Price         *float64 `json:"price,omitempty"`
	PriceCurrency *string  `json:"priceCurrency,omitempty"`
}

// Offer is the schema.org offer sub-record on a Product.
type Offer struct {
	Price             *float64                 `json:"price,omitempty"`
	PriceCurrency     *string                  `json:"priceCurrency,omitempty"`
	PriceSpecification *UnitPriceSpecification `json:"priceSpecification,omitempty"`
	ItemCondition     *string                  `json:"itemCondition,omitempty"`
}

// ImageField is polymorphic: a single URL string or an ordered list.
type ImageField struct {
	Single   *string
	Multiple []string
}

func (f *ImageField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		f.Multiple = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	f.Single = &single
	return nil
}

func (f ImageField) MarshalJSON() ([]byte, error) {
	if f.Single != nil {
		return json.Marshal(*f.Single)
	}
	return json.Marshal(f.Multiple)
}

// AsSlice returns the image field in sequence form regardless of how it was
// encoded on the wire.
func (f ImageField) AsSlice() []string {
	if f.Single != nil {
		return []string{*f.Single}
	}
	return append([]string(nil), f.Multiple...)
}

// Product is the schema.org-flavored product record produced by extraction
// and consumed by the listing transform.
type Product struct {
	Name        string             `json:"name"`
	Image       ImageField         `json:"image"`
	Offers      Offer              `json:"offers"`
	Description *string            `json:"description,omitempty"`
	Brand       *Brand             `json:"brand,omitempty"`
	Color       *string            `json:"color,omitempty"`
	Material    *string            `json:"material,omitempty"`
	Size        *SizeField         `json:"size,omitempty"`
	SKU         *string            `json:"sku,omitempty"`
	MPN         *string            `json:"mpn,omitempty"`
	Height      *QuantitativeValue `json:"height,omitempty"`
	Width       *QuantitativeValue `json:"width,omitempty"`
	Depth       *QuantitativeValue `json:"depth,omitempty"`
	Weight      *QuantitativeValue `json:"weight,omitempty"`
}

// WeightPayload is the eBay package-weight wire shape.
type WeightPayload struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// DimensionsPayload is the eBay package-dimensions wire shape.
type DimensionsPayload struct {
	Height float64 `json:"height"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Unit   string  `json:"unit"`
}

// PackagePayload bundles weight and dimensions for the eBay package field.
type PackagePayload struct {
	PackageWeight WeightPayload     `json:"packageWeight"`
	PackageSize   DimensionsPayload `json:"packageSize"`
}

// ListingPlan is the fully assembled payload build_listing produces, ready
// for inventory push and offer creation.
type ListingPlan struct {
	SKU                 string              `json:"sku"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Price               float64              `json:"price"`
	Currency            string              `json:"currency"`
	Condition           string              `json:"condition"`
	Marketplace         MarketplaceID        `json:"marketplace"`
	MerchantLocationKey string              `json:"merchant_location_key"`
	CategoryID          string              `json:"category_id"`
	Images              []string            `json:"images"`
	FulfillmentPolicyID string              `json:"fulfillment_policy_id"`
	PaymentPolicyID     string              `json:"payment_policy_id"`
	ReturnPolicyID      string              `json:"return_policy_id"`
	Aspects             map[string][]string `json:"aspects"`
	AspectOrder         []string            `json:"-"`
	Package             *PackagePayload     `json:"package,omitempty"`
}

func formatFloatTrim(v float64) string {
	s := jsonNumber(v)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func jsonNumber(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
