// Package process hosts the background ingestion pipeline: it feeds
// watcher events through extraction, chunking, embedding and the
// stores, archives finished files and keeps the counters the status
// API reports.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quillmind-ai/quillmind/app/core"
	"github.com/quillmind-ai/quillmind/pkg/ai"
	"github.com/quillmind-ai/quillmind/pkg/chunker"
	"github.com/quillmind-ai/quillmind/pkg/extractor"
	"github.com/quillmind-ai/quillmind/pkg/safe"
	"github.com/quillmind-ai/quillmind/pkg/types"
	"github.com/quillmind-ai/quillmind/pkg/utils"
	"github.com/quillmind-ai/quillmind/pkg/watcher"
)

const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"

	defaultMinContentLength = 30
	fileTimeout             = 5 * time.Minute
	embedAttempts           = 3
)

type IngestProcess struct {
	core      *core.Core
	watcher   *watcher.Watcher
	extractor *extractor.Extractor
	chunker   *chunker.Chunker

	archiveDir       string
	minContentLength int

	// filenames currently mid-flight, keyed by base name so the same
	// file emitted twice inside one debounce window runs once
	inflight cmap.ConcurrentMap[string, struct{}]

	inFlight  atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64

	cancel context.CancelFunc
}

func NewIngestProcess(appCore *core.Core) (*IngestProcess, error) {
	cfg := appCore.Cfg().Ingest
	if cfg.WatchDir == "" {
		return nil, fmt.Errorf("ingest watch dir is not configured")
	}
	if cfg.ArchiveDir == "" {
		return nil, fmt.Errorf("ingest archive dir is not configured")
	}
	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	watchOpts := []watcher.Option{watcher.WithExtensions(cfg.Extensions)}
	if cfg.DebounceSeconds > 0 {
		watchOpts = append(watchOpts, watcher.WithDebounce(time.Duration(cfg.DebounceSeconds)*time.Second))
	}
	w, err := watcher.New(cfg.WatchDir, watchOpts...)
	if err != nil {
		return nil, err
	}

	var chunkOpts []chunker.Option
	if cfg.ChunkSize > 0 {
		chunkOpts = append(chunkOpts, chunker.WithChunkSize(cfg.ChunkSize))
	}
	if cfg.ChunkOverlap > 0 {
		chunkOpts = append(chunkOpts, chunker.WithOverlap(cfg.ChunkOverlap))
	}

	minLen := cfg.MinContentLength
	if minLen <= 0 {
		minLen = defaultMinContentLength
	}

	return &IngestProcess{
		core:             appCore,
		watcher:          w,
		extractor:        extractor.New(extractor.WithOCR(appCore.Srv().OCR())),
		chunker:          chunker.New(chunkOpts...),
		archiveDir:       cfg.ArchiveDir,
		minContentLength: minLen,
		inflight:         cmap.New[struct{}](),
	}, nil
}

// Start clears stale reservations, begins watching and sweeps the
// files already sitting in the inbox through the same path new events
// take.
func (p *IngestProcess) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	// reservations left behind by a crash would block their filenames
	// forever; the sweep below re-feeds anything still in the inbox
	if err := p.core.Store().FileLedgerStore().DeletePending(ctx); err != nil {
		return fmt.Errorf("clear pending ledger rows: %w", err)
	}

	if err := p.watcher.Start(ctx); err != nil {
		return err
	}

	go safe.Run(func() {
		p.consume(ctx)
	})

	existing, err := p.watcher.ListExisting()
	if err != nil {
		return err
	}
	for _, path := range existing {
		p.dispatch(ctx, path)
	}
	return nil
}

func (p *IngestProcess) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	if err := p.watcher.Stop(); err != nil {
		slog.Error("Failed to stop ingest watcher", slog.String("error", err.Error()))
	}
}

func (p *IngestProcess) Status() types.IngestStatus {
	return types.IngestStatus{
		Watching:  p.watcher.Dir(),
		InFlight:  p.inFlight.Load(),
		Processed: p.processed.Load(),
		Skipped:   p.skipped.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *IngestProcess) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-p.watcher.Events():
			if !ok {
				return
			}
			p.dispatch(ctx, path)
		}
	}
}

// dispatch runs one file's chain in its own goroutine so a slow file
// never holds up the rest of the inbox.
func (p *IngestProcess) dispatch(ctx context.Context, path string) {
	go safe.Run(func() {
		p.processFile(ctx, path)
	})
}

func (p *IngestProcess) processFile(ctx context.Context, path string) {
	src, err := statSource(path)
	if err != nil {
		p.skip(filepath.Base(path), "vanished before processing")
		return
	}
	filename := src.Name

	if !p.inflight.SetIfAbsent(filename, struct{}{}) {
		return
	}
	defer p.inflight.Remove(filename)

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	ctx, cancel := context.WithTimeout(ctx, fileTimeout)
	defer cancel()

	timer := p.core.Metrics().IngestDurationTimer()
	defer timer.ObserveDuration()

	if src.SizeBytes == 0 {
		p.skip(filename, "empty file")
		return
	}

	reserved, err := p.reserve(ctx, filename, src.Path)
	if err != nil {
		p.fail(filename, "reserve", err)
		return
	}
	if !reserved {
		p.skip(filename, "already ledgered")
		return
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		p.unreserve(filename)
		p.fail(filename, "read", err)
		return
	}

	doc := p.extractor.Extract(ctx, data, filename)
	text := strings.TrimSpace(doc.FlattenText())
	if len([]rune(text)) < p.minContentLength {
		// a deliberate no-op, not a failure: release the reservation
		// and leave the file where it is
		p.unreserve(filename)
		p.skip(filename, "content too short")
		return
	}

	analysis := Analyze(text, doc.FileType)
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		p.unreserve(filename)
		p.skip(filename, "no chunks produced")
		return
	}

	fileID := utils.GenRandomID()
	records, err := p.embed(ctx, fileID, doc, analysis, chunks)
	if err != nil {
		p.unreserve(filename)
		p.fail(filename, "embed", err)
		return
	}

	if err := p.storeVectors(ctx, records); err != nil {
		p.unreserve(filename)
		p.fail(filename, "similarity store", err)
		return
	}

	rows := knowledgeRows(fileID, doc, analysis, chunks)
	err = p.core.Store().Transaction(ctx, func(ctx context.Context) error {
		if err := p.core.Store().KnowledgeStore().BatchCreate(ctx, rows); err != nil {
			return fmt.Errorf("insert knowledge rows: %w", err)
		}
		archivedPath := p.archiveFile(path)
		return p.core.Store().FileLedgerStore().MarkRecorded(ctx, filename, types.RecordFileArgs{
			Title:         doc.Title,
			Description:   doc.Description,
			ChunksCreated: len(chunks),
			ArchivedPath:  archivedPath,
			ProcessedAt:   time.Now().Unix(),
		})
	})
	if err != nil {
		p.unreserve(filename)
		p.fail(filename, "record", err)
		return
	}

	p.processed.Add(1)
	p.core.Metrics().IngestFileInc(ResultProcessed)
	slog.Info("File ingested",
		slog.String("file", filename),
		slog.Int("chunks", len(chunks)),
		slog.String("category", analysis.Category),
		slog.String("language", analysis.Language))

	for _, kind := range types.AllBackupKinds {
		p.core.Backup().TriggerSnapshot(kind)
	}
}

// statSource resolves one event path into the file it names. Events
// can outlive their file: a path may be gone, or turn out to be a
// directory, by the time its debounce fires.
func statSource(path string) (types.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.SourceFile{}, err
	}
	if info.IsDir() {
		return types.SourceFile{}, fmt.Errorf("%s is a directory", path)
	}
	return types.SourceFile{
		Path:      path,
		Name:      info.Name(),
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

// reserve inserts the pending ledger row that claims this filename.
// false with a nil error means a row already exists: recorded means
// done, pending means another arrival got there first.
func (p *IngestProcess) reserve(ctx context.Context, filename, path string) (bool, error) {
	err := p.core.Store().FileLedgerStore().Create(ctx, types.FileLedger{
		ID:       utils.GenUniqIDStr(),
		Filename: filename,
		Filepath: path,
		Status:   types.LEDGER_STATUS_PENDING,
	})
	if err == nil {
		return true, nil
	}

	exist, existErr := p.core.Store().FileLedgerStore().Exist(ctx, filename)
	if existErr == nil && exist {
		return false, nil
	}
	return false, err
}

// unreserve uses a fresh context: cleanup still has to run when the
// per-file context is already expired.
func (p *IngestProcess) unreserve(filename string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.core.Store().FileLedgerStore().Delete(ctx, filename); err != nil {
		slog.Error("Failed to release ledger reservation",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}

func (p *IngestProcess) skip(filename, reason string) {
	p.skipped.Add(1)
	p.core.Metrics().IngestFileInc(ResultSkipped)
	slog.Debug("File skipped", slog.String("file", filename), slog.String("reason", reason))
}

func (p *IngestProcess) fail(filename, stage string, err error) {
	p.failed.Add(1)
	p.core.Metrics().IngestFileInc(ResultFailed)
	slog.Error("File ingestion failed",
		slog.String("file", filename),
		slog.String("stage", stage),
		slog.String("error", err.Error()))
}

// embed turns every chunk of one file into a similarity-store record
// through a single batched driver call. Inputs are clamped to the
// embedding token cap and the call is retried with backoff.
func (p *IngestProcess) embed(ctx context.Context, fileID string, doc *types.ExtractedDocument, analysis types.ContentAnalysis, chunks []types.Chunk) ([]types.KnowledgeRecord, error) {
	model := p.core.Srv().AI().EmbeddingModel()

	inputs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		text, err := ai.TruncateByTokens(chunk.Text, model, ai.DefaultEmbeddingTokenLimit)
		if err != nil {
			// no tokenizer for this model; send the chunk as-is and
			// let the provider enforce its own cap
			text = chunk.Text
		}
		inputs = append(inputs, text)
	}

	var (
		result ai.EmbeddingResult
		err    error
	)
	for attempt := 0; attempt < embedAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		timer := p.core.Metrics().EmbeddingTimer(model)
		result, err = p.core.Srv().AI().EmbeddingForDocument(ctx, doc.Title, inputs)
		timer.ObserveDuration()
		if err == nil {
			break
		}
		slog.Warn("Embedding call failed",
			slog.String("file", doc.Title),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
	if err != nil {
		return nil, err
	}
	if len(result.Data) != len(chunks) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d chunks", len(result.Data), len(chunks))
	}

	now := time.Now().Unix()
	records := make([]types.KnowledgeRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, types.KnowledgeRecord{
			ID:          types.KnowledgeRecordID(fileID, chunk.Index),
			Text:        chunk.Text,
			Vector:      result.Data[i],
			Title:       doc.Title,
			SourceType:  string(doc.FileType),
			Category:    analysis.Category,
			ChunkIndex:  chunk.Index,
			TotalChunks: chunk.TotalChunks,
			CreatedAt:   now,
		})
	}
	return records, nil
}

func (p *IngestProcess) storeVectors(ctx context.Context, records []types.KnowledgeRecord) error {
	name := p.core.Cfg().Vector.Collection
	if !p.core.VectorStore().Exists(name) {
		_, err := p.core.VectorStore().Create(ctx, name, records)
		return err
	}

	collection, err := p.core.VectorStore().Open(name)
	if err != nil {
		return err
	}
	return collection.Add(ctx, records)
}

func knowledgeRows(fileID string, doc *types.ExtractedDocument, analysis types.ContentAnalysis, chunks []types.Chunk) []*types.Knowledge {
	now := time.Now().Unix()
	rows := make([]*types.Knowledge, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, &types.Knowledge{
			ID:          utils.GenUniqIDStr(),
			FileID:      fileID,
			Title:       doc.Title,
			Description: doc.Description,
			Category:    analysis.Category,
			SourceType:  string(doc.FileType),
			Language:    analysis.Language,
			ChunkIndex:  chunk.Index,
			TotalChunks: chunk.TotalChunks,
			Content:     chunk.Text,
			CreatedAt:   now,
		})
	}
	return rows
}

// archiveFile moves an ingested file out of the inbox under a
// timestamp prefix. Failure is non-fatal: the ledger then carries the
// original path so operators can see the file never moved.
func (p *IngestProcess) archiveFile(path string) string {
	name := time.Now().Format("20060102-150405") + "-" + filepath.Base(path)
	dest := filepath.Join(p.archiveDir, name)
	if err := os.Rename(path, dest); err != nil {
		slog.Warn("Failed to archive ingested file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return path
	}
	return dest
}
