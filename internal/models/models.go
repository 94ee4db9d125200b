// Package models holds the embedding model descriptors advertised by the backend
// and the read-only registry they are served from.
package models

// Modality is an input kind a model accepts.
type Modality string

const (
	ModalityText      Modality = "text"
	ModalityImage     Modality = "image"
	ModalityImageText Modality = "image_text"
)

// Valid reports whether m is one of the recognised modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityImage, ModalityImageText:
		return true
	}
	return false
}

// ModelDescriptor describes one embedding model's advertised capabilities.
// Optional fields are nil when absent; a nil MaxBatch means unbounded.
type ModelDescriptor struct {
	ID           string     `json:"id" yaml:"id"`
	Family       *string    `json:"family,omitempty" yaml:"family,omitempty"`
	Modalities   []Modality `json:"modalities" yaml:"modalities"`
	EmbeddingDim int        `json:"embedding_dim" yaml:"embedding_dim"`
	Multivector  *bool      `json:"multivector,omitempty" yaml:"multivector,omitempty"`
	SupportsMRL  *bool      `json:"supports_mrl,omitempty" yaml:"supports_mrl,omitempty"`
	MaxBatch     *int       `json:"max_batch,omitempty" yaml:"max_batch,omitempty"`
}

func (d ModelDescriptor) has(m Modality) bool {
	for _, v := range d.Modalities {
		if v == m {
			return true
		}
	}
	return false
}

// SupportsText reports whether the model accepts text inputs.
func (d ModelDescriptor) SupportsText() bool {
	return d.has(ModalityText) || d.has(ModalityImageText)
}

// SupportsImage reports whether the model accepts image inputs.
func (d ModelDescriptor) SupportsImage() bool {
	return d.has(ModalityImage) || d.has(ModalityImageText)
}

// SupportsJoint reports whether images and text are embedded together.
func (d ModelDescriptor) SupportsJoint() bool {
	return d.has(ModalityImageText)
}

// ExceedsBatch reports whether count inputs is over the model's max_batch.
func (d ModelDescriptor) ExceedsBatch(count int) bool {
	return d.MaxBatch != nil && count > *d.MaxBatch
}
