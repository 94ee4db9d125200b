package backendclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/embedding-backend/internal/config"
	"github.com/MikeSquared-Agency/embedding-backend/internal/embeddings"
	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
	"github.com/MikeSquared-Agency/embedding-backend/internal/server"
	"github.com/MikeSquared-Agency/embedding-backend/internal/service"
)

func ptr[T any](v T) *T { return &v }

func newBackend(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	reg, err := models.NewRegistry([]models.ModelDescriptor{
		{ID: "text-8", Modalities: []models.Modality{models.ModalityText}, EmbeddingDim: 8},
		{ID: "joint-4", Modalities: []models.Modality{models.ModalityImageText}, EmbeddingDim: 4, MaxBatch: ptr(1)},
	})
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 20,
		APIKey:         apiKey,
		BackendVersion: "v-test",
		BatchWorkers:   2,
	}
	srv := server.New(cfg, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Capabilities(t *testing.T) {
	ts := newBackend(t, "")
	c := New(ts.URL + "/")

	caps, err := c.Capabilities(context.Background())
	require.NoError(t, err)
	require.NotNil(t, caps.BackendVersion)
	assert.Equal(t, "v-test", *caps.BackendVersion)
	require.Len(t, caps.Models, 2)
	assert.Equal(t, "text-8", caps.Models[0].ID)
}

func TestClient_EmbedText(t *testing.T) {
	ts := newBackend(t, "")
	c := New(ts.URL)

	vecs, err := c.EmbedText(context.Background(), "text-8", []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	want, err := embeddings.Generate([]byte("b"), 8)
	require.NoError(t, err)
	assert.Equal(t, want, vecs[1])
}

func TestClient_ProbeAndImageText(t *testing.T) {
	ts := newBackend(t, "key")
	c := New(ts.URL, WithAPIKey("key"))
	ctx := context.Background()

	probe, err := c.Probe(ctx, service.ProbeRequest{Model: "joint-4", Text: "x", ImageBase64: ptr("/w==")})
	require.NoError(t, err)
	assert.Equal(t, "joint-4", probe.ID)
	assert.Nil(t, probe.TextEmbeddings)
	require.Len(t, probe.JointEmbeddings, 1)

	vecs, err := c.EmbedImageText(ctx, "joint-4", []service.ImageTextInput{{ImageBase64: "/w==", Text: ptr("x")}})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Equal(t, probe.JointEmbeddings[0], vecs[0])
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	ts := newBackend(t, "")
	c := New(ts.URL)
	ctx := context.Background()

	_, err := c.EmbedText(ctx, "missing", []string{"a"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = c.EmbedImageText(ctx, "joint-4", []service.ImageTextInput{{ImageBase64: "AQI="}, {ImageBase64: "AQI="}})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", statusErr.Code)
	assert.Equal(t, "Batch size 2 exceeds max_batch 1", statusErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestClient_RejectsWithoutAPIKey(t *testing.T) {
	ts := newBackend(t, "key")
	c := New(ts.URL)

	_, err := c.EmbedText(context.Background(), "text-8", []string{"a"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,-0.5]]}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	vecs, err := c.EmbedText(context.Background(), "m", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, -0.5}}, vecs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := New(ts.URL, WithRetries(1))
	_, err := c.Capabilities(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "unavailable", statusErr.Message)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProvider_Embed(t *testing.T) {
	ts := newBackend(t, "")
	p := NewProvider(New(ts.URL), "text-8")

	assert.Equal(t, "backend", p.Name())

	vec, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	local, err := embeddings.NewDeterministicProvider(8)
	require.NoError(t, err)
	want, err := local.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, want.Slice(), vec.Slice())
}

func TestProvider_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer ts.Close()

	p := NewProvider(New(ts.URL), "m")
	_, err := p.Embed(context.Background(), "test")
	require.Error(t, err)
}

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_WithHTTPClient(t *testing.T) {
	ts := newBackend(t, "")
	transport := &countingTransport{}
	c := New(ts.URL, WithHTTPClient(&http.Client{Transport: transport, Timeout: time.Second}))

	_, err := c.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), transport.calls.Load())
}
