// Package ollama drives a local ollama instance through its
// OpenAI-compatible endpoint.
package ollama

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quillmind-ai/quillmind/pkg/ai"
)

const (
	NAME = "ollama"

	DEFAULT_ENDPOINT = "http://127.0.0.1:11434/v1"
)

// embeddingBatchMax caps how many inputs ride in one API request.
const embeddingBatchMax = 6

type Driver struct {
	client *openai.Client
	model  ai.ModelName
}

func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	} else {
		cfg.BaseURL = DEFAULT_ENDPOINT
	}

	if model.EmbeddingModel == "" {
		model.EmbeddingModel = "nomic-embed-text"
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *Driver) embedding(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME))

	result := ai.EmbeddingResult{Usage: &openai.Usage{}}
	for start := 0; start < len(content); start += embeddingBatchMax {
		end := start + embeddingBatchMax
		if end > len(content) {
			end = len(content)
		}

		// Local models ignore the dimensions parameter, so it stays
		// unset.
		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(s.model.EmbeddingModel),
			Input: content[start:end],
		})
		if err != nil {
			return result, fmt.Errorf("create embeddings: %w", err)
		}

		for _, item := range resp.Data {
			result.Data = append(result.Data, item.Embedding)
		}
		result.Usage.PromptTokens += resp.Usage.PromptTokens
		result.Usage.CompletionTokens += resp.Usage.CompletionTokens
		result.Usage.TotalTokens += resp.Usage.TotalTokens
		result.Model = string(resp.Model)
	}
	return result, nil
}

func (s *Driver) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, content)
}

func (s *Driver) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, content)
}
