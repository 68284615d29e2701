package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupFromENV(t *testing.T) {
	root := t.TempDir()
	t.Setenv("QUILL_SQLITE_PATH", filepath.Join(root, "quill.db"))
	t.Setenv("QUILL_VECTOR_PATH", filepath.Join(root, "vectors"))
	t.Setenv("QUILL_INGEST_WATCH_DIR", filepath.Join(root, "inbox"))
	t.Setenv("QUILL_INGEST_ARCHIVE_DIR", filepath.Join(root, "library"))
	t.Setenv("QUILL_BACKUP_ROOT", filepath.Join(root, "backups"))

	core := MustSetupCore(LoadBaseConfigFromENV())
	require.NotNil(t, core)
	defer core.Backup().Close()

	assert.NotNil(t, core.Store().FileLedgerStore())
	assert.NotNil(t, core.Store().KnowledgeStore())
	assert.NotNil(t, core.VectorStore())
	assert.NotNil(t, core.Srv().AI())

	// fresh data directory, nothing to repair
	assert.Empty(t, core.RestoredAtStartup())

	// no settings saved yet means scheduled backups stay off
	settings, err := core.LoadBackupSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
}
