package process

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quillmind-ai/quillmind/app/core"
	"github.com/quillmind-ai/quillmind/pkg/types"
	"github.com/quillmind-ai/quillmind/pkg/utils"
)

func TestMain(m *testing.M) {
	utils.SetupIDWorker(1)
	os.Exit(m.Run())
}

// fakeEmbeddingServer speaks just enough of the OpenAI embeddings wire
// format to drive the real driver, returning one fixed vector per
// input.
func fakeEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
			Usage  struct {
				PromptTokens int `json:"prompt_tokens"`
				TotalTokens  int `json:"total_tokens"`
			} `json:"usage"`
		}{
			Object: "list",
			Model:  "fake-embed",
		}
		for i := range req.Input {
			resp.Data = append(resp.Data, item{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{0.1, 0.5, float32(i%7+1) * 0.1},
			})
		}
		resp.Usage.PromptTokens = len(req.Input)
		resp.Usage.TotalTokens = len(req.Input)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func setupIngestProcess(t *testing.T) (*IngestProcess, *core.Core) {
	t.Helper()

	root := t.TempDir()
	server := fakeEmbeddingServer(t)

	t.Setenv("QUILL_SQLITE_PATH", filepath.Join(root, "quill.db"))
	t.Setenv("QUILL_VECTOR_PATH", filepath.Join(root, "vector"))
	t.Setenv("QUILL_INGEST_WATCH_DIR", filepath.Join(root, "inbox"))
	t.Setenv("QUILL_INGEST_ARCHIVE_DIR", filepath.Join(root, "archive"))
	t.Setenv("QUILL_BACKUP_ROOT", filepath.Join(root, "backups"))
	t.Setenv("QUILL_AI_DRIVER", "openai")
	t.Setenv("QUILL_AI_TOKEN", "test-token")
	t.Setenv("QUILL_AI_ENDPOINT", server.URL)
	t.Setenv("QUILL_AI_EMBEDDING_MODEL", "fake-embed")

	if err := os.MkdirAll(filepath.Join(root, "inbox"), 0o755); err != nil {
		t.Fatal(err)
	}

	appCore := core.MustSetupCore(core.LoadBaseConfigFromENV())
	t.Cleanup(appCore.Backup().Close)

	proc, err := NewIngestProcess(appCore)
	if err != nil {
		t.Fatal(err)
	}
	return proc, appCore
}

// twoParagraphs builds a ~600 word document with a blank line between
// the halves.
func twoParagraphs() string {
	sentence := "The ingestion pipeline turns dropped files into searchable knowledge chunks every night. "
	para := strings.TrimSpace(strings.Repeat(sentence, 25))
	return para + "\n\n" + para
}

func TestIngestPipelineEndToEnd(t *testing.T) {
	proc, appCore := setupIngestProcess(t)
	ctx := context.Background()

	path := filepath.Join(appCore.Cfg().Ingest.WatchDir, "notes.txt")
	if err := os.WriteFile(path, []byte(twoParagraphs()), 0o644); err != nil {
		t.Fatal(err)
	}

	proc.processFile(ctx, path)

	status := proc.Status()
	if status.Processed != 1 {
		t.Fatalf("expected 1 processed file, status %+v", status)
	}

	ledger, err := appCore.Store().FileLedgerStore().Get(ctx, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if ledger == nil {
		t.Fatal("expected a ledger row for notes.txt")
	}
	if ledger.Status != types.LEDGER_STATUS_RECORDED {
		t.Fatalf("expected recorded status, got %q", ledger.Status)
	}
	if ledger.ChunksCreated < 1 {
		t.Fatalf("expected at least one chunk, got %d", ledger.ChunksCreated)
	}

	total, err := appCore.Store().KnowledgeStore().Total(ctx, types.GetKnowledgeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if total != uint64(ledger.ChunksCreated) {
		t.Fatalf("knowledge rows %d should match chunksCreated %d", total, ledger.ChunksCreated)
	}

	collection, err := appCore.VectorStore().Open(appCore.Cfg().Vector.Collection)
	if err != nil {
		t.Fatal(err)
	}
	if collection.CountRows() != ledger.ChunksCreated {
		t.Fatalf("vector records %d should match chunksCreated %d", collection.CountRows(), ledger.ChunksCreated)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("source file should have moved out of the inbox")
	}
	entries, err := os.ReadDir(appCore.Cfg().Ingest.ArchiveDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), "-notes.txt") {
		t.Fatalf("expected one timestamp-prefixed archive entry, got %v", entries)
	}
	if ledger.ArchivedPath != filepath.Join(appCore.Cfg().Ingest.ArchiveDir, entries[0].Name()) {
		t.Fatalf("ledger archived path %q does not point at the archive entry", ledger.ArchivedPath)
	}
}

func TestIngestRejectsShortFile(t *testing.T) {
	proc, appCore := setupIngestProcess(t)
	ctx := context.Background()

	path := filepath.Join(appCore.Cfg().Ingest.WatchDir, "tiny.txt")
	if err := os.WriteFile(path, []byte("short text"), 0o644); err != nil {
		t.Fatal(err)
	}

	proc.processFile(ctx, path)

	status := proc.Status()
	if status.Skipped != 1 || status.Processed != 0 {
		t.Fatalf("expected a single skip, status %+v", status)
	}

	// the reservation is released and the file stays put
	exist, err := appCore.Store().FileLedgerStore().Exist(ctx, "tiny.txt")
	if err != nil {
		t.Fatal(err)
	}
	if exist {
		t.Fatal("short file should leave no ledger row")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("short file should stay in the inbox")
	}

	total, err := appCore.Store().KnowledgeStore().Total(ctx, types.GetKnowledgeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("expected no knowledge rows, got %d", total)
	}
}

func TestIngestSkipsEmptyAndVanishedFiles(t *testing.T) {
	proc, appCore := setupIngestProcess(t)
	ctx := context.Background()

	empty := filepath.Join(appCore.Cfg().Ingest.WatchDir, "empty.txt")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	proc.processFile(ctx, empty)

	proc.processFile(ctx, filepath.Join(appCore.Cfg().Ingest.WatchDir, "gone.txt"))

	status := proc.Status()
	if status.Skipped != 2 || status.Processed != 0 || status.Failed != 0 {
		t.Fatalf("expected two skips, status %+v", status)
	}

	total, err := appCore.Store().FileLedgerStore().Total(ctx, types.ListFileLedgerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("expected no ledger rows, got %d", total)
	}
	if _, err := os.Stat(empty); err != nil {
		t.Fatal("empty file should stay in the inbox")
	}
}

func TestIngestIdempotentByFilename(t *testing.T) {
	proc, appCore := setupIngestProcess(t)
	ctx := context.Background()

	path := filepath.Join(appCore.Cfg().Ingest.WatchDir, "repeat.txt")
	if err := os.WriteFile(path, []byte(twoParagraphs()), 0o644); err != nil {
		t.Fatal(err)
	}

	proc.processFile(ctx, path)

	// the same filename lands in the inbox again
	if err := os.WriteFile(path, []byte(twoParagraphs()), 0o644); err != nil {
		t.Fatal(err)
	}
	proc.processFile(ctx, path)

	status := proc.Status()
	if status.Processed != 1 || status.Skipped != 1 {
		t.Fatalf("second pass should skip, status %+v", status)
	}

	rowsOnce, err := appCore.Store().KnowledgeStore().Total(ctx, types.GetKnowledgeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	ledgerTotal, err := appCore.Store().FileLedgerStore().Total(ctx, types.ListFileLedgerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ledgerTotal != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", ledgerTotal)
	}

	ledger, err := appCore.Store().FileLedgerStore().Get(ctx, "repeat.txt")
	if err != nil {
		t.Fatal(err)
	}
	if uint64(ledger.ChunksCreated) != rowsOnce {
		t.Fatalf("knowledge rows %d changed after the duplicate run (chunksCreated %d)", rowsOnce, ledger.ChunksCreated)
	}
}

func TestIngestConcurrentSameFilename(t *testing.T) {
	proc, appCore := setupIngestProcess(t)
	ctx := context.Background()

	path := filepath.Join(appCore.Cfg().Ingest.WatchDir, "burst.txt")
	if err := os.WriteFile(path, []byte(twoParagraphs()), 0o644); err != nil {
		t.Fatal(err)
	}

	// simulate the in-flight guard: while the name is held, a second
	// arrival is dropped without touching any store
	proc.inflight.SetIfAbsent("burst.txt", struct{}{})
	proc.processFile(ctx, path)
	proc.inflight.Remove("burst.txt")

	if status := proc.Status(); status.Processed != 0 || status.Failed != 0 || status.Skipped != 0 {
		t.Fatalf("held filename should be a silent drop, status %+v", status)
	}

	exist, err := appCore.Store().FileLedgerStore().Exist(ctx, "burst.txt")
	if err != nil {
		t.Fatal(err)
	}
	if exist {
		t.Fatal("dropped arrival must not reserve the filename")
	}
}

func TestIngestStartSweepsExistingFiles(t *testing.T) {
	proc, appCore := setupIngestProcess(t)

	path := filepath.Join(appCore.Cfg().Ingest.WatchDir, "preexisting.txt")
	if err := os.WriteFile(path, []byte(twoParagraphs()), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := proc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer proc.Stop()

	deadline := waitFor(t, func() bool {
		return proc.Status().Processed == 1
	})
	if !deadline {
		t.Fatalf("startup sweep never ingested the file, status %+v", proc.Status())
	}

	exist, err := appCore.Store().FileLedgerStore().Exist(context.Background(), "preexisting.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !exist {
		t.Fatal("swept file should be ledgered")
	}
}

func TestIngestStartClearsStalePending(t *testing.T) {
	proc, appCore := setupIngestProcess(t)
	ctx := context.Background()

	// a reservation orphaned by a crash
	err := appCore.Store().FileLedgerStore().Create(ctx, types.FileLedger{
		ID:       "stale",
		Filename: "stale.txt",
		Filepath: "/gone/stale.txt",
		Status:   types.LEDGER_STATUS_PENDING,
	})
	if err != nil {
		t.Fatal(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := proc.Start(runCtx); err != nil {
		t.Fatal(err)
	}
	defer proc.Stop()

	exist, err := appCore.Store().FileLedgerStore().Exist(ctx, "stale.txt")
	if err != nil {
		t.Fatal(err)
	}
	if exist {
		t.Fatal("startup should drop stale pending reservations")
	}
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cond()
}
