package srv

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillmind-ai/quillmind/pkg/ai"
	"github.com/quillmind-ai/quillmind/pkg/ai/baidu"
	"github.com/quillmind-ai/quillmind/pkg/ai/gemini"
	"github.com/quillmind-ai/quillmind/pkg/ai/ollama"
	"github.com/quillmind-ai/quillmind/pkg/ai/openai"
)

type EmbeddingAI interface {
	EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error)
	EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error)
}

// AIDriver adds the model identity callers need to clamp inputs by
// token count before embedding.
type AIDriver interface {
	EmbeddingAI
	EmbeddingModel() string
}

// defaultRateLimit is the embedding calls allowed per minute when the
// config does not set one.
const defaultRateLimit = 60

type AIConfig struct {
	Driver         string `toml:"driver"` // openai | ollama | gemini
	Token          string `toml:"token"`
	Endpoint       string `toml:"endpoint"`
	EmbeddingModel string `toml:"embedding_model"`
	RateLimit      int    `toml:"rate_limit"` // calls per minute

	OCR *baidu.Config `toml:"ocr"`
}

func (c *AIConfig) FromENV() {
	c.Driver = os.Getenv("QUILL_AI_DRIVER")
	c.Token = os.Getenv("QUILL_AI_TOKEN")
	c.Endpoint = os.Getenv("QUILL_AI_ENDPOINT")
	c.EmbeddingModel = os.Getenv("QUILL_AI_EMBEDDING_MODEL")
	if limitStr := os.Getenv("QUILL_AI_RATE_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			c.RateLimit = limit
		}
	}
	if apiURL := os.Getenv("QUILL_OCR_API_URL"); apiURL != "" {
		c.OCR = &baidu.Config{
			APIURL: apiURL,
			Token:  os.Getenv("QUILL_OCR_TOKEN"),
		}
	}
}

// AI fronts the configured embedding driver with a shared rate limiter
// so concurrent per-file pipelines cannot stampede the provider.
type AI struct {
	driver  EmbeddingAI
	limiter *rate.Limiter
	model   ai.ModelName
}

func SetupAI(cfg AIConfig) (*AI, error) {
	model := ai.ModelName{EmbeddingModel: cfg.EmbeddingModel}

	var driver EmbeddingAI
	switch cfg.Driver {
	case openai.NAME, "":
		driver = openai.New(cfg.Token, cfg.Endpoint, model)
	case ollama.NAME:
		driver = ollama.New(cfg.Token, cfg.Endpoint, model)
	case gemini.NAME:
		driver = gemini.New(cfg.Token, model)
	default:
		return nil, fmt.Errorf("unsupported ai driver %q", cfg.Driver)
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	return &AI{
		driver:  driver,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit*2),
		model:   model,
	}, nil
}

func (s *AI) EmbeddingModel() string {
	return s.model.EmbeddingModel
}

func (s *AI) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ai.EmbeddingResult{}, err
	}
	return s.driver.EmbeddingForQuery(ctx, content)
}

func (s *AI) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ai.EmbeddingResult{}, err
	}
	return s.driver.EmbeddingForDocument(ctx, title, content)
}

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		a, err := SetupAI(cfg)
		if err != nil {
			panic(err)
		}
		s.ai = a
	}
}

// ApplyOCR installs the image text recognizer. Left unset, image files
// degrade to placeholder documents instead of failing.
func ApplyOCR(cfg *baidu.Config) ApplyFunc {
	return func(s *Srv) {
		if cfg == nil || cfg.APIURL == "" {
			return
		}
		s.ocr = baidu.New(*cfg)
	}
}
