package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
	"github.com/MikeSquared-Agency/embedding-backend/internal/service"
)

func newHandler(t *testing.T) *EmbedHandler {
	t.Helper()
	reg, err := models.NewRegistry([]models.ModelDescriptor{
		{ID: "m1", Modalities: []models.Modality{models.ModalityText}, EmbeddingDim: 8},
	})
	require.NoError(t, err)
	return NewEmbedHandler(service.New(reg, ""), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWriteServiceError_Mapping(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", &service.Error{Kind: service.KindNotFound, Message: "Model 'x' not found"}, http.StatusNotFound, "MODEL_NOT_FOUND"},
		{"invalid", &service.Error{Kind: service.KindInvalidRequest, Message: "bad"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/probe", nil)
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, req, "probe", tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestWriteServiceError_AbandonedRequest(t *testing.T) {
	h := newHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/embed/text", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.writeServiceError(rec, req, "embed_text", context.Canceled)

	assert.Empty(t, rec.Body.String())
}

func TestEmbedText_Handler(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/embed/text", strings.NewReader(`{"model":"m1","inputs":["a"]}`))
	rec := httptest.NewRecorder()
	h.EmbedText(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"embeddings":[[`)
}

func TestCapabilities_Handler(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.Capabilities(rec, httptest.NewRequest(http.MethodGet, "/capabilities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models":[{"id":"m1","modalities":["text"],"embedding_dim":8}]}`, rec.Body.String())
}
