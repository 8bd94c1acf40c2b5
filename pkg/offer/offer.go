// Package offer implements the create/reconcile/publish state machine that
// converges every (sku, marketplace) pair onto exactly one published eBay
// offer, following the original's publish_offer plus reconcile_existing_offer
// control flow: create, and on a 409 fall back to locating, updating (with a
// withdraw-then-retry if the update itself fails), then publishing.
package offer

import (
	"context"
	"errors"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/pkg/idgen"
	"github.com/itsneelabh/hermes/pkg/marketplace"
)

const stageName = "publish_offer"

// Result is the converged offer outcome: the listing id ready for the
// preview URL, and the offer id when one was created or reconciled.
type Result struct {
	ListingID string
	OfferID   *string
}

// Publish creates createReq, or reconciles an existing offer for its sku
// when one already exists, and publishes the result.
func Publish(ctx context.Context, client *marketplace.Client, createReq marketplace.CreateOfferRequest, updateReq marketplace.UpdateOfferRequest, accessToken string) (Result, error) {
	offerID, err := client.CreateOffer(ctx, createReq, accessToken)
	if err != nil {
		var exists *marketplace.ErrEntityExists
		if errors.As(err, &exists) {
			return reconcileExisting(ctx, client, createReq, updateReq, accessToken)
		}
		return Result{}, apperror.Internal(stageName, "create_offer failed", err)
	}

	listingID, err := client.PublishOffer(ctx, offerID, accessToken)
	if err != nil {
		return Result{}, apperror.Internal(stageName, "publish_offer failed", err)
	}
	if listingID == "" {
		listingID = idgen.FallbackListingID()
	}
	id := offerID
	return Result{ListingID: listingID, OfferID: &id}, nil
}

func reconcileExisting(ctx context.Context, client *marketplace.Client, createReq marketplace.CreateOfferRequest, updateReq marketplace.UpdateOfferRequest, accessToken string) (Result, error) {
	offers, err := client.GetOffersBySKU(ctx, createReq.SKU, accessToken)
	if err != nil {
		return Result{}, apperror.Internal(stageName, "get_offers_by_sku failed", err)
	}

	candidate := ""
	found := false
	for _, o := range offers {
		if o.MarketplaceID == createReq.MarketplaceID {
			candidate = o.OfferID
			found = true
			break
		}
	}
	if !found && len(offers) > 0 {
		candidate = offers[0].OfferID
		found = true
	}
	if !found {
		return Result{}, apperror.InternalMsg(stageName, "no existing offer found for reconciliation")
	}

	if err := client.UpdateOffer(ctx, candidate, updateReq, accessToken); err != nil {
		if werr := client.WithdrawOffer(ctx, candidate, accessToken); werr != nil {
			return Result{}, apperror.Internal(stageName, "withdraw_offer failed", werr)
		}
		if err2 := client.UpdateOffer(ctx, candidate, updateReq, accessToken); err2 != nil {
			return Result{}, apperror.Internal(stageName, "update_offer retry failed", err2)
		}
	}

	listingID, err := client.PublishOffer(ctx, candidate, accessToken)
	if err != nil {
		return Result{}, apperror.Internal(stageName, "publish_offer failed", err)
	}
	if listingID == "" {
		listingID = idgen.FallbackListingID()
	}
	id := candidate
	return Result{ListingID: listingID, OfferID: &id}, nil
}

// PreviewURL returns the sandbox preview link derived from the first twelve
// characters of listingID.
func PreviewURL(listingID string) string {
	n := len(listingID)
	if n > 12 {
		n = 12
	}
	return "https://sandbox.ebay.com/itm/" + listingID[:n]
}
