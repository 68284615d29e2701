package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/quillmind-ai/quillmind/pkg/ai"
)

const (
	NAME = "gemini"

	// The batch embedding endpoint accepts up to 100 requests per call.
	batchMax = 100
)

type Driver struct {
	client *genai.Client
	model  ai.ModelName
}

func New(token string, model ai.ModelName) *Driver {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(token))
	if err != nil {
		panic(err)
	}

	if model.EmbeddingModel == "" {
		model.EmbeddingModel = "text-embedding-004"
	}

	return &Driver{
		client: client,
		model:  model,
	}
}

func (s *Driver) embedding(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME))
	em := s.client.EmbeddingModel(s.model.EmbeddingModel)
	if title != "" {
		em.TaskType = genai.TaskTypeRetrievalDocument
	} else {
		em.TaskType = genai.TaskTypeRetrievalQuery
	}

	// The API reports no token usage for embeddings.
	r := ai.EmbeddingResult{
		Model: s.model.EmbeddingModel,
		Usage: &openai.Usage{},
	}

	for start := 0; start < len(content); start += batchMax {
		end := start + batchMax
		if end > len(content) {
			end = len(content)
		}

		batch := em.NewBatch()
		for _, text := range content[start:end] {
			if title != "" {
				batch.AddContentWithTitle(title, genai.Text(text))
			} else {
				batch.AddContent(genai.Text(text))
			}
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return r, fmt.Errorf("Error creating embedding: %w", err)
		}
		for _, e := range resp.Embeddings {
			if e == nil {
				return r, fmt.Errorf("embedding response contains an empty entry")
			}
			r.Data = append(r.Data, e.Values)
		}
	}

	return r, nil
}

func (s *Driver) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, "", content)
}

func (s *Driver) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, title, content)
}
