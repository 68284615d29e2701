// Package openai adapts the go-openai client to the embedding driver
// seam. Through the proxy URL it also fronts any OpenAI-compatible
// endpoint, which is how self-hosted gateways are wired in.
package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quillmind-ai/quillmind/pkg/ai"
)

const NAME = "openai"

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
	}

	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.LargeEmbedding3)
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

		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(s.model.EmbeddingModel),
			Dimensions: 1024,
			Input:      content[start:end],
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
