package service

import "github.com/MikeSquared-Agency/embedding-backend/internal/models"

// CapabilitiesResponse is the body of GET /capabilities.
type CapabilitiesResponse struct {
	BackendVersion *string                  `json:"backend_version,omitempty"`
	Models         []models.ModelDescriptor `json:"models"`
}

// ProbeRequest is the body of POST /probe. A nil or empty ImageBase64 means
// no image was supplied.
type ProbeRequest struct {
	Model       string  `json:"model"`
	Text        string  `json:"text"`
	ImageBase64 *string `json:"image_base64,omitempty"`
	ImageMime   *string `json:"image_mime,omitempty"`
}

// ProbeResponse echoes the model descriptor with whichever embedding slots the
// model's modalities populated. Unpopulated slots are omitted, never empty.
type ProbeResponse struct {
	models.ModelDescriptor
	TextEmbeddings  [][]float64 `json:"text_embeddings,omitempty"`
	ImageEmbeddings [][]float64 `json:"image_embeddings,omitempty"`
	JointEmbeddings [][]float64 `json:"joint_embeddings,omitempty"`
}

// EmbedTextRequest is the body of POST /v1/embed/text.
type EmbedTextRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"inputs"`
}

// ImageTextInput is one item of an image(+text) batch.
type ImageTextInput struct {
	ImageBase64 string  `json:"image_base64"`
	ImageMime   *string `json:"image_mime,omitempty"`
	Text        *string `json:"text,omitempty"`
}

// EmbedImageTextRequest is the body of POST /v1/embed/image_text.
type EmbedImageTextRequest struct {
	Model  string           `json:"model"`
	Inputs []ImageTextInput `json:"inputs"`
}

// EmbeddingsResponse carries one vector per input, in input order.
type EmbeddingsResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}
