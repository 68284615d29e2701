package types

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Chunk is one bounded slice of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	Text        string `json:"text"`
	Index       int    `json:"index"`
	TotalChunks int    `json:"total_chunks"`
}

// KnowledgeRecord is the payload written to the similarity store,
// one per chunk. ID is derived from the per-file identifier plus the
// chunk index so re-ingesting an unchanged file cannot mint duplicates
// once the ledger check passes.
type KnowledgeRecord struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Vector      []float32 `json:"vector"`
	Title       string    `json:"title"`
	SourceType  string    `json:"source_type"`
	Category    string    `json:"category"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	CreatedAt   int64     `json:"created_at"`
}

func KnowledgeRecordID(fileID string, chunkIndex int) string {
	return fmt.Sprintf("%s-%d", fileID, chunkIndex)
}

// Knowledge is the structured-store mirror of one chunk, kept for
// listings and admin views.
type Knowledge struct {
	ID          string `json:"id" db:"id"`
	FileID      string `json:"file_id" db:"file_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"`
	SourceType  string `json:"source_type" db:"source_type"`
	Language    string `json:"language" db:"language"`
	ChunkIndex  int    `json:"chunk_index" db:"chunk_index"`
	TotalChunks int    `json:"total_chunks" db:"total_chunks"`
	Content     string `json:"content" db:"content"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
}

type GetKnowledgeOptions struct {
	ID       string
	FileID   string
	Category string
	Keywords string
}

func (opts GetKnowledgeOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	}
	if opts.FileID != "" {
		*query = query.Where(sq.Eq{"file_id": opts.FileID})
	}
	if opts.Category != "" {
		*query = query.Where(sq.Eq{"category": opts.Category})
	}
	if opts.Keywords != "" {
		*query = query.Where(sq.Like{"content": "%" + opts.Keywords + "%"})
	}
}

type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Total    int64  `json:"total" db:"total"`
}

// ContentAnalysis is the pure-heuristic tagging result produced
// between extraction and chunking.
type ContentAnalysis struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Language string   `json:"language"`
}
