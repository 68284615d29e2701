package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// EnvConfig gathers the deployment credentials this service reads from
// the environment. The full-archive export writes them out as a
// plaintext env file so a restored deployment can be brought up
// without hunting for secrets.
type EnvConfig struct {
	// embedding provider
	AIDriver         string
	AIToken          string
	AIEndpoint       string
	AIEmbeddingModel string

	// OCR service
	OCRApiURL string
	OCRToken  string

	// snapshot upload target
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3PathStyle bool

	// ops surface
	MetricsPassword string
}

func LoadEnvConfig() *EnvConfig {
	return &EnvConfig{
		AIDriver:         getEnv("QUILL_AI_DRIVER", ""),
		AIToken:          getEnv("QUILL_AI_TOKEN", ""),
		AIEndpoint:       getEnv("QUILL_AI_ENDPOINT", ""),
		AIEmbeddingModel: getEnv("QUILL_AI_EMBEDDING_MODEL", ""),

		OCRApiURL: getEnv("QUILL_OCR_API_URL", ""),
		OCRToken:  getEnv("QUILL_OCR_TOKEN", ""),

		S3AccessKey: getEnv("QUILL_S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("QUILL_S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("QUILL_S3_BUCKET", ""),
		S3Endpoint:  getEnv("QUILL_S3_ENDPOINT", ""),
		S3Region:    getEnv("QUILL_S3_REGION", "us-east-1"),
		S3PathStyle: getEnvBool("QUILL_S3_PATH_STYLE", false),

		MetricsPassword: getEnv("QUILL_METRICS_PASSWORD", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// ToEnvFile renders the known credential set in env-file format,
// grouped the way the deployment docs group them.
func (c *EnvConfig) ToEnvFile() string {
	var builder strings.Builder

	builder.WriteString("# embedding provider\n")
	builder.WriteString(fmt.Sprintf("QUILL_AI_DRIVER=%s\n", c.AIDriver))
	builder.WriteString(fmt.Sprintf("QUILL_AI_TOKEN=%s\n", c.AIToken))
	builder.WriteString(fmt.Sprintf("QUILL_AI_ENDPOINT=%s\n", c.AIEndpoint))
	builder.WriteString(fmt.Sprintf("QUILL_AI_EMBEDDING_MODEL=%s\n", c.AIEmbeddingModel))
	builder.WriteString("\n")

	builder.WriteString("# ocr service\n")
	builder.WriteString(fmt.Sprintf("QUILL_OCR_API_URL=%s\n", c.OCRApiURL))
	builder.WriteString(fmt.Sprintf("QUILL_OCR_TOKEN=%s\n", c.OCRToken))
	builder.WriteString("\n")

	builder.WriteString("# snapshot upload\n")
	builder.WriteString(fmt.Sprintf("QUILL_S3_ACCESS_KEY=%s\n", c.S3AccessKey))
	builder.WriteString(fmt.Sprintf("QUILL_S3_SECRET_KEY=%s\n", c.S3SecretKey))
	builder.WriteString(fmt.Sprintf("QUILL_S3_BUCKET=%s\n", c.S3Bucket))
	builder.WriteString(fmt.Sprintf("QUILL_S3_ENDPOINT=%s\n", c.S3Endpoint))
	builder.WriteString(fmt.Sprintf("QUILL_S3_REGION=%s\n", c.S3Region))
	builder.WriteString(fmt.Sprintf("QUILL_S3_PATH_STYLE=%t\n", c.S3PathStyle))
	builder.WriteString("\n")

	builder.WriteString("# ops\n")
	builder.WriteString(fmt.Sprintf("QUILL_METRICS_PASSWORD=%s\n", c.MetricsPassword))

	if extra := collectExtraSensitiveEnv(); len(extra) > 0 {
		builder.WriteString("\n# other QUILL_* values present in the environment\n")
		for _, line := range extra {
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

var knownEnvKeys = map[string]struct{}{
	"QUILL_AI_DRIVER":          {},
	"QUILL_AI_TOKEN":           {},
	"QUILL_AI_ENDPOINT":        {},
	"QUILL_AI_EMBEDDING_MODEL": {},
	"QUILL_OCR_API_URL":        {},
	"QUILL_OCR_TOKEN":          {},
	"QUILL_S3_ACCESS_KEY":      {},
	"QUILL_S3_SECRET_KEY":      {},
	"QUILL_S3_BUCKET":          {},
	"QUILL_S3_ENDPOINT":        {},
	"QUILL_S3_REGION":          {},
	"QUILL_S3_PATH_STYLE":      {},
	"QUILL_METRICS_PASSWORD":   {},
}

// collectExtraSensitiveEnv picks up QUILL_* variables the struct does
// not model so the export never silently drops a credential added
// after this file was written.
func collectExtraSensitiveEnv() []string {
	var out []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "QUILL_") {
			continue
		}
		key := kv
		if idx := strings.Index(kv, "="); idx > 0 {
			key = kv[:idx]
		}
		if _, known := knownEnvKeys[key]; known {
			continue
		}
		out = append(out, kv)
	}
	sort.Strings(out)
	return out
}
