// Package backendclient provides an HTTP client for the embedding backend API,
// used by embedctl and by remote embedding providers.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MikeSquared-Agency/embedding-backend/internal/service"
)

// Client is an HTTP client for the embedding backend.
type Client struct {
	baseURL string
	apiKey  string
	retries uint64
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key sent via X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithRetries sets how many times a request is retried after a transport
// error or 5xx response. Defaults to 2.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client. baseURL should be like "http://localhost:8501".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		retries: 2,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

// NotFound reports whether the backend rejected an unknown model.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Methods ---

// Capabilities lists the models the backend serves.
func (c *Client) Capabilities(ctx context.Context) (*service.CapabilitiesResponse, error) {
	var result service.CapabilitiesResponse
	if err := c.get(ctx, "/capabilities", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Probe embeds one text and an optional image.
func (c *Client) Probe(ctx context.Context, req service.ProbeRequest) (*service.ProbeResponse, error) {
	var result service.ProbeResponse
	if err := c.post(ctx, "/probe", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EmbedText embeds a batch of texts.
func (c *Client) EmbedText(ctx context.Context, model string, inputs []string) ([][]float64, error) {
	var result service.EmbeddingsResponse
	req := service.EmbedTextRequest{Model: model, Inputs: inputs}
	if err := c.post(ctx, "/v1/embed/text", req, &result); err != nil {
		return nil, err
	}
	return result.Embeddings, nil
}

// EmbedImageText embeds a batch of images with optional captions.
func (c *Client) EmbedImageText(ctx context.Context, model string, inputs []service.ImageTextInput) ([][]float64, error) {
	var result service.EmbeddingsResponse
	req := service.EmbedImageTextRequest{Model: model, Inputs: inputs}
	if err := c.post(ctx, "/v1/embed/image_text", req, &result); err != nil {
		return nil, err
	}
	return result.Embeddings, nil
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, data, out)
}

// do sends the request, retrying transport errors and 5xx responses with
// exponential backoff. 4xx responses are final.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxElapsedTime(0),
	)
	b = backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)

	return backoff.Retry(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request %s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
			var envelope errorEnvelope
			if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Message != "" {
				statusErr.Code = envelope.Error.Code
				statusErr.Message = envelope.Error.Message
			} else {
				statusErr.Message = strings.TrimSpace(string(respBody))
			}
			if resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}, b)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.NotFound()
}
