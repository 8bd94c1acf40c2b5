// Package httpapi wires the pipeline orchestrator, job queue, and
// idempotency cache behind an HTTP surface: routing with chi, uniform error
// mapping from apperror.Error onto status codes, health/metrics/openapi/docs
// endpoints, the full and continue pipeline routes, the four per-stage debug
// routes, and the async job endpoints. Grounded on the original's http
// module plus the admission layer's own writeError helper for response
// shape.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/internal/corelog"
	"github.com/itsneelabh/hermes/pkg/admission"
	"github.com/itsneelabh/hermes/pkg/idempotency"
	"github.com/itsneelabh/hermes/pkg/jobqueue"
	"github.com/itsneelabh/hermes/pkg/model"
	"github.com/itsneelabh/hermes/pkg/pipeline"
)

// ServiceName identifies this process in the /health payload.
const ServiceName = "hermes-listing-service"

// PipelineRunner is the subset of *pipeline.Pipeline the HTTP surface
// depends on.
type PipelineRunner interface {
	Run(ctx context.Context, request model.ListingRequest, auth *admission.AuthContext) (model.ListingResponse, error)
	StageResolveImages(request model.ListingRequest) (model.StageReport, error)
	StageSelectCategory(request model.ListingRequest, images []string) (model.StageReport, error)
	StageExtractProduct(ctx context.Context, request model.ListingRequest, images []string) (model.StageReport, error)
	StageDescription(ctx context.Context, product model.Product, title string) string
}

var _ PipelineRunner = (*pipeline.Pipeline)(nil)

// Server holds every collaborator the HTTP surface dispatches to.
type Server struct {
	pipeline    PipelineRunner
	queue       *jobqueue.Queue
	idempotency *idempotency.Cache
	keys        *admission.KeyTable
	limiter     *admission.RateLimiter
	cfg         config.Config
	logger      corelog.Logger
	openapiJSON []byte
}

// New builds a Server. openapiJSON is the pre-rendered OpenAPI document
// served from /openapi.json; it may be nil if no document was loaded.
func New(cfg config.Config, pl PipelineRunner, queue *jobqueue.Queue, idem *idempotency.Cache, keys *admission.KeyTable, limiter *admission.RateLimiter, logger corelog.Logger, openapiJSON []byte) *Server {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	return &Server{
		pipeline:    pl,
		queue:       queue,
		idempotency: idem,
		keys:        keys,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
		openapiJSON: openapiJSON,
	}
}

// Router builds the chi.Router serving every route spec.md §6 names.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(bodyLimitMiddleware(s.cfg.HTTP.RequestMaxBytes))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.gateByKey(s.cfg.MetricsKey, "X-Metrics-Key", s.handleMetrics))
	r.Get("/openapi.json", s.gateByKey(s.cfg.OpenAPIKey, "X-Docs-Key", s.handleOpenAPI))
	r.Get("/docs", s.handleDocs)

	authed := admission.Middleware(s.keys, s.limiter)

	r.Group(func(r chi.Router) {
		r.Use(authed)
		r.Post("/listings", s.handleRunListing(false))
		r.Post("/listings/continue", s.handleRunListing(true))
		r.Post("/stages/resolve_images", s.handleStageResolveImages)
		r.Post("/stages/select_category", s.handleStageSelectCategory)
		r.Post("/stages/extract_product", s.handleStageExtractProduct)
		r.Post("/stages/description", s.handleStageDescription)
		r.Post("/jobs/listings", s.handleEnqueue(false))
		r.Post("/jobs/listings/continue", s.handleEnqueue(true))
		r.Get("/jobs/{jobID}", s.handleJobStatus)
	})

	return r
}

func bodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 256 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) gateByKey(required, header string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if required != "" && r.Header.Get(header) != required {
			writeError(w, http.StatusUnauthorized, "missing_or_invalid_key", "Provide a valid "+header)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html>
<head><title>Hermes API Docs</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css" /></head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
window.onload = () => {
  window.ui = SwaggerUIBundle({ url: '/openapi.json', dom_id: '#swagger-ui' });
};
</script>
</body>
</html>`

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, model.ApiError{Error: code, Detail: detail})
}

// writeErr maps an apperror.Error (or any other error) onto the uniform
// {error, detail} body and the 400/500 split spec.md §7 specifies.
func writeErr(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperror.Error); ok {
		status := http.StatusInternalServerError
		code := "internal"
		if appErr.Kind == apperror.KindInvalidInput {
			status = http.StatusBadRequest
			code = "invalid_input"
		}
		writeError(w, status, appErr.Stage+"/"+detailCode(appErr.Detail, code), appErr.Detail)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

// detailCode derives a short machine code from a detail string already
// shaped like one ("too_many_images"), falling back to the generic kind
// code when the detail contains spaces or is empty.
func detailCode(detail, fallback string) string {
	trimmed := strings.TrimSpace(detail)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n") {
		return fallback
	}
	return trimmed
}

func decodeRequest(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dst)
}
