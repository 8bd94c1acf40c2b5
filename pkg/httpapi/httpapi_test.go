package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/pkg/admission"
	"github.com/itsneelabh/hermes/pkg/idempotency"
	"github.com/itsneelabh/hermes/pkg/jobqueue"
	"github.com/itsneelabh/hermes/pkg/model"
)

type stubPipeline struct {
	response model.ListingResponse
	err      error
	calls    int
}

func (s *stubPipeline) Run(ctx context.Context, request model.ListingRequest, auth *admission.AuthContext) (model.ListingResponse, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubPipeline) StageResolveImages(request model.ListingRequest) (model.StageReport, error) {
	return model.StageReport{Name: "resolve_images"}, nil
}

func (s *stubPipeline) StageSelectCategory(request model.ListingRequest, images []string) (model.StageReport, error) {
	return model.StageReport{Name: "select_category"}, nil
}

func (s *stubPipeline) StageExtractProduct(ctx context.Context, request model.ListingRequest, images []string) (model.StageReport, error) {
	return model.StageReport{Name: "extract_product"}, nil
}

func (s *stubPipeline) StageDescription(ctx context.Context, product model.Product, title string) string {
	return "a description"
}

func newTestServer(pl *stubPipeline) *Server {
	cfg := config.Config{
		HTTP:      config.HTTPConfig{RequestMaxBytes: 256 * 1024},
		RateLimit: config.RateLimitConfig{PerSecond: 50, Capacity: 50},
		Queue:     config.QueueConfig{Capacity: 8},
	}
	keys := admission.LoadKeyTable("org-a:secret-a")
	limiter := admission.NewRateLimiter(cfg.RateLimit)
	queue := jobqueue.New(cfg.Queue.Capacity, pl, nil)
	idem := idempotency.New("", 0, nil)
	return New(cfg, pl, queue, idem, keys, limiter, nil, nil)
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	server := newTestServer(&stubPipeline{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListingsRequiresAuth(t *testing.T) {
	server := newTestServer(&stubPipeline{})
	req := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func validListingBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"images_source": "https://example.com/a.jpg",
		"sku":           "test-sku-001",
		"marketplace":   "EBAY_US",
	})
	return body
}

func TestListingsRunsPipelineAndReturnsListingID(t *testing.T) {
	pl := &stubPipeline{response: model.ListingResponse{ListingID: "HER-123", Stages: []model.StageReport{{Name: "resolve_images"}}}}
	server := newTestServer(pl)

	req := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader(validListingBody()))
	req.Header.Set("X-Hermes-Key", "secret-a")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response model.ListingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "HER-123", response.ListingID)
	assert.Equal(t, 1, pl.calls)
}

func TestListingsMapsInvalidInputTo400(t *testing.T) {
	pl := &stubPipeline{err: apperror.InvalidInput("resolve_images", "no images provided")}
	server := newTestServer(pl)

	req := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader(validListingBody()))
	req.Header.Set("X-Hermes-Key", "secret-a")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyKeyReplaysSameBody(t *testing.T) {
	pl := &stubPipeline{response: model.ListingResponse{ListingID: "HER-replay"}}
	server := newTestServer(pl)

	req1 := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader(validListingBody()))
	req1.Header.Set("X-Hermes-Key", "secret-a")
	req1.Header.Set("Idempotency-Key", "idem-1")
	rec1 := httptest.NewRecorder()
	server.Router().ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	pl.response = model.ListingResponse{ListingID: "HER-different"}

	req2 := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader(validListingBody()))
	req2.Header.Set("X-Hermes-Key", "secret-a")
	req2.Header.Set("Idempotency-Key", "idem-1")
	rec2 := httptest.NewRecorder()
	server.Router().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, 1, pl.calls)
}

func TestJobEnqueueAndPoll(t *testing.T) {
	pl := &stubPipeline{response: model.ListingResponse{ListingID: "HER-job"}}
	server := newTestServer(pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.queue.Start(ctx)

	req := httptest.NewRequest(http.MethodPost, "/jobs/listings", bytes.NewReader(validListingBody()))
	req.Header.Set("X-Hermes-Key", "secret-a")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	jobID := accepted["job_id"]
	require.NotEmpty(t, jobID)

	req2 := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil)
	req2.Header.Set("X-Hermes-Key", "secret-a")
	rec2 := httptest.NewRecorder()
	server.Router().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestStageEndpointsReturnReports(t *testing.T) {
	server := newTestServer(&stubPipeline{})

	for _, path := range []string{"/stages/resolve_images", "/stages/select_category", "/stages/extract_product"} {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(validListingBody()))
		req.Header.Set("X-Hermes-Key", "secret-a")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}

	body, _ := json.Marshal(map[string]interface{}{"product": map[string]interface{}{"name": "Widget"}, "title": "Widget"})
	req := httptest.NewRequest(http.MethodPost, "/stages/description", bytes.NewReader(body))
	req.Header.Set("X-Hermes-Key", "secret-a")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a description")
}

func TestMetricsGateRequiresConfiguredKey(t *testing.T) {
	server := newTestServer(&stubPipeline{})
	server.cfg.MetricsKey = "metrics-secret"

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("X-Metrics-Key", "metrics-secret")
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hermes_rate_limit_capacity")
}

func TestOpenAPIDocumentLoadsAndServes(t *testing.T) {
	doc, err := LoadOpenAPIJSON()
	require.NoError(t, err)
	require.NotEmpty(t, doc)

	server := newTestServer(&stubPipeline{})
	server.openapiJSON = doc

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "3.0.3", parsed["openapi"])
}

func TestUnknownJobIDReturns400(t *testing.T) {
	server := newTestServer(&stubPipeline{})
	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	req.Header.Set("X-Hermes-Key", "secret-a")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
