// Package model owns the language model sessions used for summarization.
//
// A Provider knows how to probe and create sessions for a modality. The
// Manager on top of it memoizes the text session for the life of the
// process and creates multimodal sessions on demand.
package model

import (
	"context"
	"errors"
)

// Availability is the readiness of a model as reported by its provider.
type Availability string

const (
	Available    Availability = "available"
	Downloadable Availability = "downloadable"
	Downloading  Availability = "downloading"
	Unavailable  Availability = "unavailable"
)

// Modality selects the kind of input a session must accept.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

var (
	// ErrModelUnavailable means the text model cannot be used at all.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrMultimodalUnavailable means no image-capable model can be used.
	ErrMultimodalUnavailable = errors.New("multimodal model unavailable")

	ErrNotSupported      = errors.New("operation not supported by model")
	ErrResourceExhausted = errors.New("model resources exhausted")
	ErrInputTooLarge     = errors.New("input is too large")

	// ErrOperation covers failures while preparing or running a prompt,
	// including inputs the model cannot decode.
	ErrOperation = errors.New("model operation failed")
)

// ProgressFunc receives download progress as an integer percentage 0-100.
type ProgressFunc func(percent int)

// Image is one binary image attached to a prompt.
type Image struct {
	MIME string
	Data []byte
}

// Prompt is a single user turn. The system prompt is fixed per session.
type Prompt struct {
	Text   string
	Images []Image
}

// Session is a ready model conversation context.
type Session interface {
	// Prompt returns the complete response.
	Prompt(ctx context.Context, p Prompt) (string, error)

	// PromptStreaming delivers the response incrementally to onChunk.
	// A non-nil error from onChunk aborts generation.
	PromptStreaming(ctx context.Context, p Prompt, onChunk func(chunk string) error) error
}

// Provider probes and creates sessions against a model backend.
type Provider interface {
	Availability(ctx context.Context, m Modality) (Availability, error)

	// Create blocks until the session is usable, downloading the model
	// first if needed. onProgress may be nil.
	Create(ctx context.Context, m Modality, onProgress ProgressFunc) (Session, error)
}
