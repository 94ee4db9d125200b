// Package service validates embedding requests against the model registry and
// dispatches them to the deterministic generator.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/embedding-backend/internal/embeddings"
	"github.com/MikeSquared-Agency/embedding-backend/internal/metrics"
	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
)

// Service answers the four backend operations. It holds no mutable state and
// is safe for concurrent use.
type Service struct {
	registry       *models.Registry
	backendVersion string
	workers        int
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBatchWorkers bounds how many vectors of one batch are generated
// concurrently. Values below 1 are ignored.
func WithBatchWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a Service over reg. An empty backendVersion is reported as absent.
func New(reg *models.Registry, backendVersion string, opts ...Option) *Service {
	s := &Service{
		registry:       reg,
		backendVersion: backendVersion,
		workers:        runtime.GOMAXPROCS(0),
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Capabilities lists every registered model in registry order.
func (s *Service) Capabilities() CapabilitiesResponse {
	resp := CapabilitiesResponse{Models: s.registry.Models()}
	if s.backendVersion != "" {
		v := s.backendVersion
		resp.BackendVersion = &v
	}
	return resp
}

// Probe embeds a single text and optional image with the named model.
func (s *Service) Probe(ctx context.Context, req ProbeRequest) (*ProbeResponse, error) {
	model, err := s.lookup(req.Model)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &ProbeResponse{ModelDescriptor: model}
	hasImage := req.ImageBase64 != nil && *req.ImageBase64 != ""

	if model.SupportsJoint() {
		// Joint models answer with the combined vector only.
		if !hasImage {
			return nil, invalidf("image_base64 is required for joint models")
		}
		image, err := decodeImage(*req.ImageBase64)
		if err != nil {
			return nil, err
		}
		vec, err := generate(jointSeed(req.Text, image), model.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		resp.JointEmbeddings = [][]float64{vec}
		metrics.VectorsGenerated.WithLabelValues(model.ID, "joint").Inc()
		return resp, nil
	}

	if model.SupportsText() {
		vec, err := generate([]byte(req.Text), model.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		resp.TextEmbeddings = [][]float64{vec}
		metrics.VectorsGenerated.WithLabelValues(model.ID, "text").Inc()
	}

	if model.SupportsImage() && hasImage {
		image, err := decodeImage(*req.ImageBase64)
		if err != nil {
			return nil, err
		}
		vec, err := generate(image, model.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		resp.ImageEmbeddings = [][]float64{vec}
		metrics.VectorsGenerated.WithLabelValues(model.ID, "image").Inc()
	}

	return resp, nil
}

// EmbedText embeds each input text independently, preserving order.
func (s *Service) EmbedText(ctx context.Context, req EmbedTextRequest) (*EmbeddingsResponse, error) {
	model, err := s.lookup(req.Model)
	if err != nil {
		return nil, err
	}
	if !model.SupportsText() {
		return nil, invalidf("Model does not support text inputs")
	}
	if err := checkBatch(model, len(req.Inputs)); err != nil {
		return nil, err
	}

	seeds := make([][]byte, len(req.Inputs))
	for i, text := range req.Inputs {
		seeds[i] = []byte(text)
	}

	vecs, err := s.generateBatch(ctx, seeds, model.EmbeddingDim)
	if err != nil {
		return nil, err
	}
	metrics.VectorsGenerated.WithLabelValues(model.ID, "text").Add(float64(len(vecs)))
	s.logger.Debug("embedded text batch", "model", model.ID, "inputs", len(vecs))
	return &EmbeddingsResponse{Embeddings: vecs}, nil
}

// EmbedImageText embeds each image, combined with its text for joint models.
// Every image is decoded before any vector is generated, so one malformed
// input fails the whole batch.
func (s *Service) EmbedImageText(ctx context.Context, req EmbedImageTextRequest) (*EmbeddingsResponse, error) {
	model, err := s.lookup(req.Model)
	if err != nil {
		return nil, err
	}
	if !model.SupportsImage() {
		return nil, invalidf("Model does not support image inputs")
	}
	if err := checkBatch(model, len(req.Inputs)); err != nil {
		return nil, err
	}

	joint := model.SupportsJoint()
	seeds := make([][]byte, len(req.Inputs))
	for i, in := range req.Inputs {
		image, err := decodeImage(in.ImageBase64)
		if err != nil {
			return nil, err
		}
		if joint {
			var text string
			if in.Text != nil {
				text = *in.Text
			}
			seeds[i] = jointSeed(text, image)
		} else {
			seeds[i] = image
		}
	}

	vecs, err := s.generateBatch(ctx, seeds, model.EmbeddingDim)
	if err != nil {
		return nil, err
	}
	kind := "image"
	if joint {
		kind = "joint"
	}
	metrics.VectorsGenerated.WithLabelValues(model.ID, kind).Add(float64(len(vecs)))
	s.logger.Debug("embedded image batch", "model", model.ID, "inputs", len(vecs), "joint", joint)
	return &EmbeddingsResponse{Embeddings: vecs}, nil
}

func (s *Service) lookup(id string) (models.ModelDescriptor, error) {
	model, ok := s.registry.Lookup(id)
	if !ok {
		return models.ModelDescriptor{}, notFound(id)
	}
	return model, nil
}

// generateBatch fans seeds out over at most s.workers goroutines. Output
// position i always holds the vector for seeds[i].
func (s *Service) generateBatch(ctx context.Context, seeds [][]byte, dim int) ([][]float64, error) {
	out := make([][]float64, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vec, err := generate(seed, dim)
			if err != nil {
				return err
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func generate(seed []byte, dim int) ([]float64, error) {
	vec, err := embeddings.Generate(seed, dim)
	if errors.Is(err, embeddings.ErrInvalidDimension) {
		return nil, invalidf("%s", err.Error())
	}
	return vec, err
}

func checkBatch(model models.ModelDescriptor, count int) error {
	if model.ExceedsBatch(count) {
		return invalidf("Batch size %d exceeds max_batch %d", count, *model.MaxBatch)
	}
	return nil
}

// jointSeed is the UTF-8 text followed by the raw image bytes.
func jointSeed(text string, image []byte) []byte {
	seed := make([]byte, 0, len(text)+len(image))
	seed = append(seed, text...)
	return append(seed, image...)
}

// decodeImage decodes standard base64 strictly. The stdlib decoder skips CR and
// LF, so those are rejected up front.
func decodeImage(encoded string) ([]byte, error) {
	if strings.ContainsAny(encoded, "\r\n") {
		return nil, invalidf("Invalid image_base64")
	}
	data, err := base64.StdEncoding.Strict().DecodeString(encoded)
	if err != nil {
		return nil, invalidf("Invalid image_base64")
	}
	return data, nil
}
