// Package ai defines the embedding surface the ingestion pipeline
// consumes and the token-counting helpers shared by its drivers.
package ai

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// ModelName selects the embedding model a driver talks to. Loaded
// from config; drivers fill in their own default when empty.
type ModelName struct {
	EmbeddingModel string `toml:"embedding_model"`
}

// EmbeddingResult carries the vectors of one batched embedding call
// together with the accumulated token usage.
type EmbeddingResult struct {
	Model string
	Usage *openai.Usage
	Data  [][]float32
}

// Embedder is implemented by every embedding driver. Drivers split
// oversized inputs into batches internally; callers see one call, one
// result, vectors in input order.
type Embedder interface {
	EmbeddingForDocument(ctx context.Context, title string, content []string) (EmbeddingResult, error)
	EmbeddingForQuery(ctx context.Context, content []string) (EmbeddingResult, error)
}

const (
	// DefaultEmbeddingTokenLimit caps a single embedding input. The
	// OpenAI embedding endpoints reject inputs beyond 8191 tokens and
	// the other providers sit near the same bound.
	DefaultEmbeddingTokenLimit = 8191

	fallbackEncoding = "cl100k_base"
)

// encodingFor resolves the tokenizer of a model, falling back to
// cl100k_base for models tiktoken does not know.
func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return tkm, nil
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}

// NumTokens counts the BPE tokens of text under the model's encoding.
func NumTokens(text, model string) (int, error) {
	tkm, err := encodingFor(model)
	if err != nil {
		return 0, fmt.Errorf("encoding for model: %w", err)
	}
	return len(tkm.Encode(text, nil, nil)), nil
}

// TruncateByTokens clamps text to at most limit tokens, re-decoding
// the kept prefix. A limit of zero or less leaves the text alone.
func TruncateByTokens(text, model string, limit int) (string, error) {
	if limit <= 0 {
		return text, nil
	}
	tkm, err := encodingFor(model)
	if err != nil {
		return "", fmt.Errorf("encoding for model: %w", err)
	}
	tokens := tkm.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text, nil
	}
	return tkm.Decode(tokens[:limit]), nil
}
