package store

import (
	"context"

	"github.com/quillmind-ai/quillmind/pkg/sqlstore"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

// FileLedgerStore tracks which source filenames have been ingested.
// A pending row reserves a filename before the pipeline starts work on
// it; MarkRecorded promotes the reservation once the file is archived.
type FileLedgerStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.FileLedger) error
	Get(ctx context.Context, filename string) (*types.FileLedger, error)
	Exist(ctx context.Context, filename string) (bool, error)
	MarkRecorded(ctx context.Context, filename string, data types.RecordFileArgs) error
	Delete(ctx context.Context, filename string) error
	DeletePending(ctx context.Context) error
	List(ctx context.Context, opts types.ListFileLedgerOptions, page, pageSize uint64) ([]types.FileLedger, error)
	Total(ctx context.Context, opts types.ListFileLedgerOptions) (int64, error)
}

// KnowledgeStore mirrors each chunk written to the similarity store so
// listings and admin views never need a vector query.
type KnowledgeStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.Knowledge) error
	BatchCreate(ctx context.Context, datas []*types.Knowledge) error
	GetKnowledge(ctx context.Context, id string) (*types.Knowledge, error)
	Delete(ctx context.Context, id string) error
	DeleteByFileID(ctx context.Context, fileID string) error
	ListKnowledges(ctx context.Context, opts types.GetKnowledgeOptions, page, pageSize uint64) ([]*types.Knowledge, error)
	Total(ctx context.Context, opts types.GetKnowledgeOptions) (uint64, error)
	ListCategories(ctx context.Context) ([]types.CategoryCount, error)
}

type CustomConfigStore interface {
	sqlstore.SqlCommons
	Upsert(ctx context.Context, data types.CustomConfig) error
	Get(ctx context.Context, name string) (*types.CustomConfig, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, opts types.ListCustomConfigOptions, page, pageSize uint64) ([]types.CustomConfig, error)
	Total(ctx context.Context, opts types.ListCustomConfigOptions) (int64, error)
}
