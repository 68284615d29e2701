package v1_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quillmind-ai/quillmind/app/core"
)

func setupCore(t *testing.T) *core.Core {
	t.Helper()

	root := t.TempDir()
	t.Setenv("QUILL_SQLITE_PATH", filepath.Join(root, "quill.db"))
	t.Setenv("QUILL_VECTOR_PATH", filepath.Join(root, "vector"))
	t.Setenv("QUILL_INGEST_WATCH_DIR", filepath.Join(root, "inbox"))
	t.Setenv("QUILL_INGEST_ARCHIVE_DIR", filepath.Join(root, "archive"))
	t.Setenv("QUILL_BACKUP_ROOT", filepath.Join(root, "backups"))

	// every registered backup source should exist so snapshot passes
	// cover all kinds
	if err := os.MkdirAll(filepath.Join(root, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	appCore := core.MustSetupCore(core.LoadBaseConfigFromENV())
	t.Cleanup(appCore.Backup().Close)
	return appCore
}

func testCtx() context.Context {
	return context.Background()
}
