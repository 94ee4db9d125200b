package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/embedding-backend/internal/metrics"
	"github.com/MikeSquared-Agency/embedding-backend/internal/service"
)

// EmbedHandler serves capability listing, probing and batch embedding.
type EmbedHandler struct {
	svc          *service.Service
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewEmbedHandler creates a new EmbedHandler. A maxBodyBytes of 0 or less
// leaves request bodies unbounded.
func NewEmbedHandler(svc *service.Service, maxBodyBytes int64, logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Capabilities handles GET /capabilities.
func (h *EmbedHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Capabilities())
}

// Probe handles POST /probe.
func (h *EmbedHandler) Probe(w http.ResponseWriter, r *http.Request) {
	var req service.ProbeRequest
	if !h.decode(w, r, "probe", &req) {
		return
	}

	resp, err := h.svc.Probe(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "probe", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EmbedText handles POST /v1/embed/text.
func (h *EmbedHandler) EmbedText(w http.ResponseWriter, r *http.Request) {
	var req service.EmbedTextRequest
	if !h.decode(w, r, "embed_text", &req) {
		return
	}

	resp, err := h.svc.EmbedText(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "embed_text", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EmbedImageText handles POST /v1/embed/image_text.
func (h *EmbedHandler) EmbedImageText(w http.ResponseWriter, r *http.Request) {
	var req service.EmbedImageTextRequest
	if !h.decode(w, r, "embed_image_text", &req) {
		return
	}

	resp, err := h.svc.EmbedImageText(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "embed_image_text", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a request body into dst. The model field must be present;
// its value, even an empty string, is resolved against the registry later.
func (h *EmbedHandler) decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, op, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
			return false
		}
		h.reject(w, op, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}

	var named struct {
		Model *string `json:"model"`
	}
	if err := json.Unmarshal(data, dst); err != nil || json.Unmarshal(data, &named) != nil {
		h.reject(w, op, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	if named.Model == nil {
		h.reject(w, op, http.StatusBadRequest, "VALIDATION_ERROR", "model is required")
		return false
	}
	return true
}

func (h *EmbedHandler) reject(w http.ResponseWriter, op string, status int, code, message string) {
	metrics.RequestErrors.WithLabelValues(op, code).Inc()
	writeError(w, status, code, message)
}

// writeServiceError maps service failures onto HTTP statuses.
func (h *EmbedHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var svcErr *service.Error
	switch {
	case errors.As(err, &svcErr) && svcErr.Kind == service.KindNotFound:
		h.reject(w, op, http.StatusNotFound, "MODEL_NOT_FOUND", svcErr.Message)
	case errors.As(err, &svcErr):
		h.reject(w, op, http.StatusBadRequest, "VALIDATION_ERROR", svcErr.Message)
	case r.Context().Err() != nil:
		// Client went away or the router timeout already answered.
		h.logger.Debug("request abandoned", "op", op, "error", err)
	default:
		h.logger.Error("embedding request failed", "op", op, "error", err)
		h.reject(w, op, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate embeddings")
	}
}
