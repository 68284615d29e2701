package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupConfigFromEnv(t *testing.T) {
	addr := "localhost:11111"
	t.Setenv("QUILL_API_SERVICE_ADDRESS", addr)
	t.Setenv("QUILL_SQLITE_PATH", "/data/quill.db")
	t.Setenv("QUILL_INGEST_EXTENSIONS", "md,txt")

	cfg := LoadBaseConfigFromENV()

	assert.Equal(t, addr, cfg.Addr)
	assert.Equal(t, "/data/quill.db", cfg.Sqlite.Path)
	assert.Equal(t, []string{"md", "txt"}, cfg.Ingest.Extensions)
	assert.Equal(t, "knowledge", cfg.Vector.Collection)
	assert.Empty(t, cfg.Path())
}

func TestMustLoadBaseConfig(t *testing.T) {
	raw := `
addr = ":9900"

[log]
level = "info"

[sqlite]
path = "/data/quill.db"

[vector]
path = "/data/vectors"

[ingest]
watch_dir = "/data/inbox"
archive_dir = "/data/library"
extensions = ["md", "txt"]

[backup]
root_dir = "/data/backups"
keep = 7

[ai]
driver = "ollama"
embedding_model = "nomic-embed-text"

[ai.ocr]
api_url = "https://ocr.example.com/layout-parsing"
token = "tok"
`
	path := filepath.Join(t.TempDir(), "quillmind.toml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg := MustLoadBaseConfig(path)

	assert.Equal(t, ":9900", cfg.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.Equal(t, "/data/quill.db", cfg.Sqlite.Path)
	assert.Equal(t, "/data/vectors", cfg.Vector.Path)
	assert.Equal(t, "knowledge", cfg.Vector.Collection)
	assert.Equal(t, "/data/inbox", cfg.Ingest.WatchDir)
	assert.Equal(t, 7, cfg.Backup.Keep)
	assert.Equal(t, "ollama", cfg.AI.Driver)
	require.NotNil(t, cfg.AI.OCR)
	assert.Equal(t, "tok", cfg.AI.OCR.Token)
	assert.Equal(t, path, cfg.Path())
}

func TestSqliteDSN(t *testing.T) {
	c := SqliteConfig{Path: "/data/quill.db"}
	assert.Equal(t, "file:/data/quill.db?_pragma=busy_timeout(5000)", c.FormatDSN())
}
