// Package llm talks to text generation and embedding backends and routes
// assistant queries between a local and a cloud model.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a backend answers without content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Params tune a single completion.
type Params struct {
	System      string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Provider generates text from a prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, params Params) (string, error)
}

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
