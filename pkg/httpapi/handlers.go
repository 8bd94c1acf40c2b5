package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/itsneelabh/hermes/pkg/admission"
	"github.com/itsneelabh/hermes/pkg/model"
)

// handleRunListing serves both /listings and /listings/continue. continueRoute
// has no behavioral effect beyond documentation intent: both routes accept
// the same ListingRequest shape (overrides included), matching the
// original's trimmed continue handler that simply reuses the full request
// body's overrides field.
func (s *Server) handleRunListing(continueRoute bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request model.ListingRequest
		if err := decodeRequest(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if idemKey != "" {
			if cached, ok := s.idempotency.Get(r.Context(), idemKey); ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(cached)
				return
			}
		}

		var auth *admission.AuthContext
		if ac, ok := admission.FromContext(r.Context()); ok {
			auth = &ac
		}

		response, err := s.pipeline.Run(r.Context(), request, auth)
		if err != nil {
			s.logger.ErrorWithContext(r.Context(), "pipeline_run_failed", map[string]interface{}{"error": err.Error()})
			writeErr(w, err)
			return
		}

		body, encodeErr := json.Marshal(response)
		if encodeErr == nil && idemKey != "" {
			s.idempotency.Put(r.Context(), idemKey, body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) handleStageResolveImages(w http.ResponseWriter, r *http.Request) {
	var request model.ListingRequest
	if err := decodeRequest(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}
	report, err := s.pipeline.StageResolveImages(request)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type selectCategoryRequest struct {
	model.ListingRequest
	Images []string `json:"images"`
}

func (s *Server) handleStageSelectCategory(w http.ResponseWriter, r *http.Request) {
	var body selectCategoryRequest
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}
	report, err := s.pipeline.StageSelectCategory(body.ListingRequest, body.Images)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type extractProductRequest struct {
	model.ListingRequest
	Images []string `json:"images"`
}

func (s *Server) handleStageExtractProduct(w http.ResponseWriter, r *http.Request) {
	var body extractProductRequest
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}
	report, err := s.pipeline.StageExtractProduct(r.Context(), body.ListingRequest, body.Images)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type descriptionRequest struct {
	Product model.Product `json:"product"`
	Title   string        `json:"title"`
}

func (s *Server) handleStageDescription(w http.ResponseWriter, r *http.Request) {
	var body descriptionRequest
	if err := decodeRequest(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}
	description := s.pipeline.StageDescription(r.Context(), body.Product, body.Title)
	writeJSON(w, http.StatusOK, map[string]string{"description": description})
}

func (s *Server) handleEnqueue(continueRoute bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request model.ListingRequest
		if err := decodeRequest(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		var auth *admission.AuthContext
		if ac, ok := admission.FromContext(r.Context()); ok {
			auth = &ac
		}

		jobID, err := s.queue.Enqueue(request, auth)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "state": string(model.JobQueued)})
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	state, ok := s.queue.Status(jobID)
	if !ok {
		writeError(w, http.StatusBadRequest, "not_found", "unknown job id")
		return
	}
	writeJSON(w, http.StatusOK, state)
}
