package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/quillmind-ai/quillmind/pkg/ai"
	"github.com/quillmind-ai/quillmind/pkg/ai/ollama"
)

var _ ai.Embedder = (*ollama.Driver)(nil)

func TestEmbeddingUsesLocalDefaults(t *testing.T) {
	type embeddingRequest struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions"`
	}

	var lastReq embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		if err := json.NewDecoder(r.Body).Decode(&lastReq); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := goopenai.EmbeddingResponse{
			Object: "list",
			Model:  goopenai.EmbeddingModel(lastReq.Model),
		}
		for i := range lastReq.Input {
			resp.Data = append(resp.Data, goopenai.Embedding{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{0.5},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	d := ollama.New("ollama", server.URL+"/v1", ai.ModelName{})

	res, err := d.EmbeddingForDocument(context.Background(), "t", []string{"one", "two"})
	assert.NoError(t, err)
	assert.Len(t, res.Data, 2)

	assert.Equal(t, "nomic-embed-text", lastReq.Model)
	// Local models get no dimensions hint.
	assert.Equal(t, 0, lastReq.Dimensions)
}
