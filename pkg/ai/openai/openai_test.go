package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/quillmind-ai/quillmind/pkg/ai"
	"github.com/quillmind-ai/quillmind/pkg/ai/openai"
)

var _ ai.Embedder = (*openai.Driver)(nil)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

// fakeEmbeddingServer answers /v1/embeddings with one vector per
// input, encoding the input's trailing digit so ordering is checkable.
func fakeEmbeddingServer(t *testing.T, calls *atomic.Int32, lastReq *embeddingRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		*lastReq = req

		resp := goopenai.EmbeddingResponse{
			Object: "list",
			Model:  goopenai.EmbeddingModel(req.Model),
			Usage: goopenai.Usage{
				PromptTokens: len(req.Input),
				TotalTokens:  len(req.Input),
			},
		}
		for i, input := range req.Input {
			val := float32(input[len(input)-1] - '0')
			resp.Data = append(resp.Data, goopenai.Embedding{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{val, val},
			})
		}
		json.NewEncoder(w).Encode(resp)
	})
	return httptest.NewServer(mux)
}

func TestEmbeddingBatchesAndOrder(t *testing.T) {
	var calls atomic.Int32
	var lastReq embeddingRequest
	server := fakeEmbeddingServer(t, &calls, &lastReq)
	defer server.Close()

	d := openai.New("test-token", server.URL+"/v1", ai.ModelName{})

	inputs := []string{"w0", "w1", "w2", "w3", "w4", "w5", "w6", "w7"}
	res, err := d.EmbeddingForDocument(context.Background(), "title", inputs)
	assert.NoError(t, err)

	// Eight inputs at batchMax 6 means two upstream calls.
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, res.Data, len(inputs))
	for i := range inputs {
		assert.Equal(t, float32(i), res.Data[i][0], "vector %d out of order", i)
	}

	assert.Equal(t, 8, res.Usage.PromptTokens)
	assert.Equal(t, string(goopenai.LargeEmbedding3), lastReq.Model)
	assert.Equal(t, 1024, lastReq.Dimensions)
}

func TestEmbeddingUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := openai.New("test-token", server.URL+"/v1", ai.ModelName{})
	_, err := d.EmbeddingForQuery(context.Background(), []string{"hello"})
	assert.Error(t, err)
}
