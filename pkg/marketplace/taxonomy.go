package marketplace

import (
	"context"
	"net/url"

	"github.com/itsneelabh/hermes/pkg/model"
)

// FetchCategoryAspects retrieves the aspect set for a category from eBay's
// taxonomy API.
func (c *Client) FetchCategoryAspects(ctx context.Context, categoryID, accessToken string) (model.TaxonomySpec, error) {
	path := "/commerce/taxonomy/v1/category_tree/" + c.cfg.CategoryTreeID + "/get_item_aspects_for_category"
	query := url.Values{"category_id": {categoryID}}

	var payload struct {
		Aspects []model.TaxonomyAspect `json:"aspects"`
	}
	status, err := c.doJSON(ctx, "GET", path, query, nil, accessToken, &payload)
	if err != nil {
		return model.TaxonomySpec{}, &RequestError{Op: "ebay.taxonomy", Err: err}
	}
	if status < 200 || status >= 300 {
		return model.TaxonomySpec{}, &RequestError{Op: "ebay.taxonomy", Status: status}
	}
	return model.TaxonomySpec{
		CategoryID: categoryID,
		TreeID:     c.cfg.CategoryTreeID,
		Aspects:    payload.Aspects,
	}, nil
}
