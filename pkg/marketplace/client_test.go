package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/hermes/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc, cfg config.MarketplaceConfig) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURLOverride = server.URL
	return New(server.Client(), cfg, nil)
}

func TestCreateOfferReturnsOfferID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sell/inventory/v1/offer", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"offerId":"O-100"}`))
	}, config.MarketplaceConfig{})

	offerID, err := client.CreateOffer(context.Background(), CreateOfferRequest{SKU: "sku-1"}, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "O-100", offerID)
}

func TestCreateOfferSignalsEntityExistsOn409(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}, config.MarketplaceConfig{})

	_, err := client.CreateOffer(context.Background(), CreateOfferRequest{SKU: "sku-1"}, "token-1")
	var exists *ErrEntityExists
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "sku-1", exists.SKU)
}

func TestCreateOfferWrapsOtherFailures(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, config.MarketplaceConfig{})

	_, err := client.CreateOffer(context.Background(), CreateOfferRequest{SKU: "sku-1"}, "token-1")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadGateway, reqErr.Status)
}

func TestGetOffersBySKUDecodesSummaries(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sku-1", r.URL.Query().Get("sku"))
		w.Write([]byte(`{"offers":[{"offerId":"O1","marketplaceId":"EBAY_US"},{"offerId":"O2","marketplaceId":"EBAY_GB"}]}`))
	}, config.MarketplaceConfig{})

	offers, err := client.GetOffersBySKU(context.Background(), "sku-1", "token-1")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "O1", offers[0].OfferID)
	assert.Equal(t, "EBAY_GB", offers[1].MarketplaceID)
}

func TestUserTokenExchangeSendsRefreshGrant(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identity/v1/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "cert-id", pass)
		w.Write([]byte(`{"access_token":"user-token-1"}`))
	}, config.MarketplaceConfig{AppID: "app-id", CertID: "cert-id"})

	token, err := client.GetUserAccessTokenFromRefresh(context.Background(), "refresh-1", []string{"scope-a"})
	require.NoError(t, err)
	assert.Equal(t, "user-token-1", token)
}

func TestTokenExchangeRequiresCredentials(t *testing.T) {
	client := New(http.DefaultClient, config.MarketplaceConfig{}, nil)
	_, err := client.GetUserAccessTokenFromRefresh(context.Background(), "refresh-1", nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFetchCategoryAspectsDecodesConstraints(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/commerce/taxonomy/v1/category_tree/0/get_item_aspects_for_category", r.URL.Path)
		assert.Equal(t, "31387", r.URL.Query().Get("category_id"))
		w.Write([]byte(`{"aspects":[{"localizedAspectName":"Brand","aspectValues":[{"localizedValue":"Hermes Labs"}],"aspectConstraint":{"aspectMode":"SELECTION_ONLY","aspectRequired":true,"itemToAspectCardinality":"MULTI"}}]}`))
	}, config.MarketplaceConfig{CategoryTreeID: "0"})

	spec, err := client.FetchCategoryAspects(context.Background(), "31387", "token-1")
	require.NoError(t, err)
	assert.Equal(t, "31387", spec.CategoryID)
	require.Len(t, spec.Aspects, 1)
	assert.Equal(t, "Brand", spec.Aspects[0].LocalizedAspectName)
	require.NotNil(t, spec.Aspects[0].AspectConstraint)
	assert.Equal(t, "SELECTION_ONLY", spec.Aspects[0].AspectConstraint.AspectMode)
}

func TestUpsertInventoryItemFailsOnServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/sell/inventory/v1/inventory_item/sku-1", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}, config.MarketplaceConfig{})

	err := client.UpsertInventoryItem(context.Background(), "sku-1", InventoryItemRequest{}, "token-1")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
}
