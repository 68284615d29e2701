// Package vectordb wraps the embedded similarity store. Every
// collection persists under one root directory, which is what lets the
// backup coordinator snapshot and restore the store with plain
// recursive copies.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

// Vectors are computed upstream by the embedding drivers; chromem must
// never call out on its own.
func precomputedOnly(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("records must carry precomputed embeddings")
}

type Store struct {
	db   *chromem.DB
	path string
}

func New(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open similarity store at %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the persistence root, used for snapshots and the
// startup corruption check.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Exists(name string) bool {
	return s.db.GetCollection(name, precomputedOnly) != nil
}

// Create makes the named collection and writes its first records in the
// same call.
func (s *Store) Create(ctx context.Context, name string, records []types.KnowledgeRecord) (*Collection, error) {
	col, err := s.db.CreateCollection(name, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	wrapped := &Collection{col: col}
	if len(records) == 0 {
		return wrapped, nil
	}
	if err := wrapped.Add(ctx, records); err != nil {
		return nil, err
	}
	return wrapped, nil
}

func (s *Store) Open(name string) (*Collection, error) {
	col := s.db.GetCollection(name, precomputedOnly)
	if col == nil {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	return &Collection{col: col}, nil
}

type Collection struct {
	col *chromem.Collection
}

func (c *Collection) Add(ctx context.Context, records []types.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, chromem.Document{
			ID:        record.ID,
			Embedding: record.Vector,
			Content:   record.Text,
			Metadata: map[string]string{
				"title":        record.Title,
				"source_type":  record.SourceType,
				"category":     record.Category,
				"chunk_index":  strconv.Itoa(record.ChunkIndex),
				"total_chunks": strconv.Itoa(record.TotalChunks),
				"created_at":   strconv.FormatInt(record.CreatedAt, 10),
			},
		})
	}

	if err := c.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add %d records: %w", len(docs), err)
	}
	return nil
}

// Delete drops the records with the given ids. Unknown ids are
// ignored.
func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete %d records: %w", len(ids), err)
	}
	return nil
}

func (c *Collection) CountRows() int {
	return c.col.Count()
}
