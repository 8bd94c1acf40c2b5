package offer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/pkg/marketplace"
)

func clientAgainst(t *testing.T, handler http.HandlerFunc) *marketplace.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.MarketplaceConfig{BaseURLOverride: server.URL}
	return marketplace.New(server.Client(), cfg, nil)
}

func TestPublishCreatesNewOffer(t *testing.T) {
	client := clientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer":
			w.Write([]byte(`{"offerId":"offer-1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer/offer-1/publish":
			w.Write([]byte(`{"listingId":"HER-abc123"}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	result, err := Publish(context.Background(), client, marketplace.CreateOfferRequest{SKU: "sku-1"}, marketplace.UpdateOfferRequest{}, "token")
	require.NoError(t, err)
	assert.Equal(t, "HER-abc123", result.ListingID)
	require.NotNil(t, result.OfferID)
	assert.Equal(t, "offer-1", *result.OfferID)
}

func TestPublishFallsBackToFallbackListingID(t *testing.T) {
	client := clientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/sell/inventory/v1/offer":
			w.Write([]byte(`{"offerId":"offer-1"}`))
		case r.URL.Path == "/sell/inventory/v1/offer/offer-1/publish":
			w.Write([]byte(`{"listingId":""}`))
		}
	})
	result, err := Publish(context.Background(), client, marketplace.CreateOfferRequest{SKU: "sku-1"}, marketplace.UpdateOfferRequest{}, "token")
	require.NoError(t, err)
	assert.Regexp(t, `^HER-[0-9a-f]{32}$`, result.ListingID)
}

func TestPublishReconcilesOn409(t *testing.T) {
	updateCalls := 0
	client := clientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodGet && r.URL.Path == "/sell/inventory/v1/offer":
			w.Write([]byte(`{"offers":[{"offerId":"existing-1","marketplaceId":"EBAY_US"}]}`))
		case r.Method == http.MethodPut:
			updateCalls++
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer/existing-1/publish":
			w.Write([]byte(`{"listingId":"HER-existing"}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	result, err := Publish(context.Background(), client, marketplace.CreateOfferRequest{SKU: "sku-1", MarketplaceID: "EBAY_US"}, marketplace.UpdateOfferRequest{}, "token")
	require.NoError(t, err)
	assert.Equal(t, "HER-existing", result.ListingID)
	assert.Equal(t, 1, updateCalls)
}

func TestPublishWithdrawsAndRetriesOnUpdateFailure(t *testing.T) {
	updateCalls := 0
	withdrawCalls := 0
	client := clientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodGet && r.URL.Path == "/sell/inventory/v1/offer":
			w.Write([]byte(`{"offers":[{"offerId":"existing-1","marketplaceId":"EBAY_US"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer/existing-1/withdraw":
			withdrawCalls++
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			updateCalls++
			if updateCalls == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/sell/inventory/v1/offer/existing-1/publish":
			w.Write([]byte(`{"listingId":"HER-existing"}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	result, err := Publish(context.Background(), client, marketplace.CreateOfferRequest{SKU: "sku-1", MarketplaceID: "EBAY_US"}, marketplace.UpdateOfferRequest{}, "token")
	require.NoError(t, err)
	assert.Equal(t, "HER-existing", result.ListingID)
	assert.Equal(t, 2, updateCalls)
	assert.Equal(t, 1, withdrawCalls)
}

func TestPreviewURLTruncatesTo12Chars(t *testing.T) {
	assert.Equal(t, "https://sandbox.ebay.com/itm/HER-abcdefgh", PreviewURL("HER-abcdefgh12"))
	assert.Equal(t, "https://sandbox.ebay.com/itm/short", PreviewURL("short"))
}
