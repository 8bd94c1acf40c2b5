// Package pipeline orchestrates the nine-stage listing build: resolving
// images, selecting a category, fetching its taxonomy, acquiring a user
// token, preparing condition options, extracting a product, building the
// listing draft, pushing inventory, and publishing the offer. Grounded on
// the original pipeline module's Pipeline::run and its stages submodule.
package pipeline

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/internal/corelog"
	"github.com/itsneelabh/hermes/pkg/admission"
	"github.com/itsneelabh/hermes/pkg/idgen"
	"github.com/itsneelabh/hermes/pkg/llmclient"
	"github.com/itsneelabh/hermes/pkg/marketplace"
	"github.com/itsneelabh/hermes/pkg/model"
	"github.com/itsneelabh/hermes/pkg/offer"
	"github.com/itsneelabh/hermes/pkg/tenantconfig"
)

// CategoryDefinition is one entry in the demo category pool select_category
// chooses from.
type CategoryDefinition struct {
	ID        string
	TreeID    string
	Label     string
	Narrative string
	Keywords  []string
}

var categoryPool = []CategoryDefinition{
	{
		ID: "11450", TreeID: "0", Label: "Clothing, Shoes & Accessories",
		Narrative: "image cues show lifestyle apparel and footwear",
		Keywords:  []string{"shoe", "sneaker", "apparel"},
	},
	{
		ID: "31387", TreeID: "0", Label: "Consumer Electronics",
		Narrative: "close-up product shots with polished surfaces",
		Keywords:  []string{"headphones", "camera", "electronics"},
	},
	{
		ID: "261178", TreeID: "0", Label: "Collectibles",
		Narrative: "studio backgrounds and creative props",
		Keywords:  []string{"collectible", "vintage", "retro"},
	},
	{
		ID: "281", TreeID: "0", Label: "Motors Parts & Accessories",
		Narrative: "detail shots of textured materials and components",
		Keywords:  []string{"auto", "motors", "component"},
	},
	{
		ID: "293", TreeID: "0", Label: "Health & Beauty",
		Narrative: "soft lighting and product laydowns",
		Keywords:  []string{"beauty", "wellness", "care"},
	},
}

var ebayUserScopes = []string{
	"https://api.ebay.com/oauth/api_scope/sell.inventory",
	"https://api.ebay.com/oauth/api_scope/sell.account",
}

// computeSeed derives a deterministic seed from the request's identity
// fields and the first three resolved images, driving category selection.
// The extract_product stage does not use it.
func computeSeed(request model.ListingRequest, images []string) uint64 {
	h := fnv.New64a()
	write := func(s string) { h.Write([]byte(s)); h.Write([]byte{0}) }
	write(request.SKU)
	write(request.MerchantLocationKey)
	write(request.FulfillmentPolicyID)
	write(request.PaymentPolicyID)
	write(request.ReturnPolicyID)
	write(string(request.Marketplace))
	limit := len(images)
	if limit > 3 {
		limit = 3
	}
	for _, img := range images[:limit] {
		write(img)
	}
	return h.Sum64()
}

// Pipeline wires the marketplace, LLM, and tenant-config collaborators
// together and runs the nine stages in order.
type Pipeline struct {
	categories      []CategoryDefinition
	marketplace     *marketplace.Client
	llm             *llmclient.Client
	tenant          *tenantconfig.Client
	hasTenant       bool
	images          config.ImagesConfig
	networkEnabled  bool
	refreshToken    string
	logger          corelog.Logger
}

// New builds a Pipeline. tenant may be nil when no tenant-config
// collaborator is configured.
func New(cfg config.Config, marketplaceClient *marketplace.Client, llm *llmclient.Client, tenant *tenantconfig.Client, logger corelog.Logger) *Pipeline {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	return &Pipeline{
		categories:     categoryPool,
		marketplace:    marketplaceClient,
		llm:            llm,
		tenant:         tenant,
		hasTenant:      tenant != nil,
		images:         cfg.Images,
		networkEnabled: cfg.Marketplace.EnableNetwork,
		refreshToken:   cfg.Marketplace.RefreshToken,
		logger:         logger,
	}
}

func report(name string, started time.Time, output map[string]interface{}) model.StageReport {
	return model.StageReport{
		Name:      name,
		ElapsedMs: time.Since(started).Milliseconds(),
		Timestamp: time.Now().UTC(),
		Output:    marshalOutput(output),
	}
}

// Run executes the full pipeline for request, honoring overrides and the
// dry-run short-circuit.
func (p *Pipeline) Run(ctx context.Context, request model.ListingRequest, auth *admission.AuthContext) (model.ListingResponse, error) {
	var stages []model.StageReport

	// The partial transcript goes to the log on failure, never to the caller.
	failed := func(err error) (model.ListingResponse, error) {
		p.logger.Error("pipeline_run_aborted", map[string]interface{}{
			"sku":              request.SKU,
			"stages_completed": len(stages),
			"transcript":       stages,
			"error":            err.Error(),
		})
		return model.ListingResponse{}, err
	}

	var orgConfig *tenantconfig.OrgConfig
	if auth != nil && p.hasTenant {
		cfg, err := p.tenant.FetchEbayOrgConfig(ctx, auth.OrgID)
		if err != nil {
			p.logger.Warn("ebay_org_config_lookup_failed", map[string]interface{}{"org_id": auth.OrgID, "error": err.Error()})
		} else {
			orgConfig = cfg
		}
	}

	images, stageReport, err := p.resolveImagesStage(request)
	if err != nil {
		return failed(err)
	}
	stages = append(stages, stageReport)

	seed := computeSeed(request, images)

	selection, stageReport, err := p.selectCategoryStage(request, images, seed)
	if err != nil {
		return failed(err)
	}
	stages = append(stages, stageReport)

	started := time.Now()
	taxonomy, taxonomyOutput, err := stageFetchTaxonomy(selection)
	if err != nil {
		return failed(err)
	}
	stageReport = report("fetch_taxonomy", started, taxonomyOutput)
	stages = append(stages, stageReport)

	started = time.Now()
	token, tokenOutput, err := stageAcquireUserToken()
	if err != nil {
		return failed(err)
	}
	stageReport = report("acquire_user_token", started, tokenOutput)
	stages = append(stages, stageReport)

	started = time.Now()
	conditions, conditionsOutput, err := stagePrepareConditions(selection)
	if err != nil {
		return failed(err)
	}
	stageReport = report("prepare_conditions", started, conditionsOutput)
	stages = append(stages, stageReport)

	product, stageReport, err := p.extractProductStage(ctx, request, images)
	if err != nil {
		return failed(err)
	}
	stages = append(stages, stageReport)

	ebayRuntime, err := resolveEbayConfig(request, orgConfig)
	if err != nil {
		return failed(err)
	}

	listingPlan, stageReport, err := p.buildListingStage(ctx, request, product, taxonomy, conditions, ebayRuntime)
	if err != nil {
		return failed(err)
	}
	stages = append(stages, stageReport)

	if request.DryRun {
		return model.ListingResponse{ListingID: idgen.PreviewListingID(), Stages: stages}, nil
	}

	var accessToken string
	if p.networkEnabled {
		accessToken, err = p.fetchEbayToken(ctx)
		if err != nil {
			return failed(err)
		}
	}

	_, stageReport, err = p.pushInventoryStage(ctx, request, listingPlan, accessToken, ebayRuntime.location)
	if err != nil {
		return failed(err)
	}
	stages = append(stages, stageReport)

	result, stageReport, err := p.publishOfferStage(ctx, request, listingPlan, selection, token, accessToken)
	if err != nil {
		return failed(err)
	}
	stages = append(stages, stageReport)

	return model.ListingResponse{ListingID: result.ListingID, Stages: stages}, nil
}

func (p *Pipeline) fetchEbayToken(ctx context.Context) (string, error) {
	if p.refreshToken == "" {
		return "", apperror.InternalMsg("ebay_auth", "EBAY_REFRESH_TOKEN is not set")
	}
	token, err := p.marketplace.GetUserAccessTokenFromRefresh(ctx, p.refreshToken, ebayUserScopes)
	if err != nil {
		return "", apperror.Internal("ebay_auth", "refresh token exchange failed", err)
	}
	return token, nil
}

// resolveImagesStage takes the image list from request.Overrides when
// present, marking its stage output `"source":"override"`, and otherwise
// runs the resolve_images stage.
func (p *Pipeline) resolveImagesStage(request model.ListingRequest) ([]string, model.StageReport, error) {
	if request.Overrides != nil && request.Overrides.ResolvedImages != nil {
		imgs := request.Overrides.ResolvedImages
		if len(imgs) == 0 {
			return nil, model.StageReport{}, apperror.InvalidInput("resolve_images", "no images provided")
		}
		if len(imgs) > maxImagesAllowed(p.images) {
			return nil, model.StageReport{}, apperror.InvalidInput("resolve_images", "too_many_images")
		}
		started := time.Now()
		preview := imgs
		if len(preview) > 2 {
			preview = preview[:2]
		}
		out := report("resolve_images", started, map[string]interface{}{
			"count":           len(imgs),
			"preview":         preview,
			"use_signed_urls": request.UseSignedURLs,
			"source":          "override",
		})
		return imgs, out, nil
	}

	started := time.Now()
	value, output, err := stageResolveImages(request, p.images)
	if err != nil {
		return nil, model.StageReport{}, err
	}
	return value, report("resolve_images", started, output), nil
}

func (p *Pipeline) selectCategoryStage(request model.ListingRequest, images []string, seed uint64) (model.CategorySelection, model.StageReport, error) {
	if request.Overrides != nil && request.Overrides.Category != nil {
		ov := request.Overrides.Category
		started := time.Now()
		selection := model.CategorySelection{
			ID: ov.ID, TreeID: ov.TreeID, Label: ov.Label,
			Confidence: ov.Confidence, Rationale: ov.Rationale,
		}
		var alternatives []map[string]interface{}
		for _, c := range p.categories {
			if c.Label == selection.Label {
				continue
			}
			alternatives = append(alternatives, map[string]interface{}{"id": c.ID, "label": c.Label, "keywords": c.Keywords})
			if len(alternatives) == 2 {
				break
			}
		}
		var signature interface{}
		if len(images) > 0 {
			signature = images[0]
		}
		out := report("select_category", started, map[string]interface{}{
			"selected":        selection,
			"alternatives":    alternatives,
			"image_signature": signature,
			"source":          "override",
		})
		return selection, out, nil
	}

	started := time.Now()
	value, output, err := stageSelectCategory(request, images, p.categories, seed)
	if err != nil {
		return model.CategorySelection{}, model.StageReport{}, err
	}
	return value, report("select_category", started, output), nil
}

func (p *Pipeline) extractProductStage(ctx context.Context, request model.ListingRequest, images []string) (model.Product, model.StageReport, error) {
	if request.Overrides != nil && len(request.Overrides.Product) > 0 {
		started := time.Now()
		product, err := decodeProductOverride(request.Overrides.Product)
		if err != nil {
			return model.Product{}, model.StageReport{}, apperror.InvalidInput("extract_product", "invalid_product_override")
		}
		var brand interface{}
		if product.Brand != nil && product.Brand.Name != nil {
			brand = *product.Brand.Name
		}
		out := report("extract_product", started, map[string]interface{}{
			"name":   product.Name,
			"brand":  brand,
			"color":  product.Color,
			"images": len(images),
			"source": "override",
		})
		return product, out, nil
	}

	started := time.Now()
	value, output, err := stageExtractProduct(ctx, request, images, p.llm)
	if err != nil {
		return model.Product{}, model.StageReport{}, err
	}
	return value, report("extract_product", started, output), nil
}

func (p *Pipeline) buildListingStage(ctx context.Context, request model.ListingRequest, product model.Product, taxonomy model.TaxonomySpec, conditions model.ConditionBundle, ebayCfg ebayRuntimeConfig) (model.ListingPlan, model.StageReport, error) {
	started := time.Now()
	value, output, err := stageBuildListing(ctx, request, product, taxonomy, conditions, ebayCfg, p.llm)
	if err != nil {
		return model.ListingPlan{}, model.StageReport{}, err
	}
	return value, report("build_listing", started, output), nil
}

func (p *Pipeline) pushInventoryStage(ctx context.Context, request model.ListingRequest, plan model.ListingPlan, accessToken string, location *locationMetadata) (inventoryReceipt, model.StageReport, error) {
	started := time.Now()
	value, output, err := stagePushInventory(ctx, request, plan, p.marketplace, accessToken, location)
	if err != nil {
		return inventoryReceipt{}, model.StageReport{}, err
	}
	return value, report("push_inventory", started, output), nil
}

func (p *Pipeline) publishOfferStage(ctx context.Context, request model.ListingRequest, plan model.ListingPlan, selection model.CategorySelection, token userToken, accessToken string) (offer.Result, model.StageReport, error) {
	started := time.Now()
	value, output, err := stagePublishOffer(ctx, request, plan, selection, token, p.marketplace, accessToken)
	if err != nil {
		return offer.Result{}, model.StageReport{}, err
	}
	return value, report("publish_offer", started, output), nil
}

// StageResolveImages runs the resolve_images stage in isolation, for the
// /stages/resolve_images debug endpoint. Honors request.Overrides exactly
// as the full Run does.
func (p *Pipeline) StageResolveImages(request model.ListingRequest) (model.StageReport, error) {
	_, stageReport, err := p.resolveImagesStage(request)
	return stageReport, err
}

// StageSelectCategory runs select_category in isolation against an already
// resolved image list, for the /stages/select_category debug endpoint.
func (p *Pipeline) StageSelectCategory(request model.ListingRequest, images []string) (model.StageReport, error) {
	seed := computeSeed(request, images)
	_, stageReport, err := p.selectCategoryStage(request, images, seed)
	return stageReport, err
}

// StageExtractProduct runs extract_product in isolation, for the
// /stages/extract_product debug endpoint.
func (p *Pipeline) StageExtractProduct(ctx context.Context, request model.ListingRequest, images []string) (model.StageReport, error) {
	_, stageReport, err := p.extractProductStage(ctx, request, images)
	return stageReport, err
}

// StageDescription generates a polished listing description for an
// already-built product and title, for the /stages/description debug
// endpoint. Falls back to the deterministic templated description on LLM
// failure, exactly as build_listing does.
func (p *Pipeline) StageDescription(ctx context.Context, product model.Product, title string) string {
	return generateDescription(ctx, p.llm, product, title)
}
