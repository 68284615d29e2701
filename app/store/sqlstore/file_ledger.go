package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/quillmind-ai/quillmind/pkg/register"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.FileLedgerStore = NewFileLedgerStore(provider)
	})
}

// FileLedgerStore keeps one row per ingested filename. The unique index
// on filename makes Create the reservation point for concurrent
// discoveries of the same file.
type FileLedgerStore struct {
	CommonFields
}

func NewFileLedgerStore(provider SqlProviderAchieve) *FileLedgerStore {
	repo := &FileLedgerStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_FILE_LEDGER)
	repo.SetAllColumns("id", "filename", "filepath", "title", "description", "chunks_created", "archived_path", "status", "processed_at")
	return repo
}

func (s *FileLedgerStore) Create(ctx context.Context, data types.FileLedger) error {
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.Filename, data.Filepath, data.Title, data.Description,
			data.ChunksCreated, data.ArchivedPath, data.Status, data.ProcessedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *FileLedgerStore) Get(ctx context.Context, filename string) (*types.FileLedger, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"filename": filename})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var entry types.FileLedger
	if err = s.GetReplica(ctx).Get(&entry, queryString, args...); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (s *FileLedgerStore) Exist(ctx context.Context, filename string) (bool, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable()).Where(sq.Eq{"filename": filename})

	queryString, args, err := query.ToSql()
	if err != nil {
		return false, ErrorSqlBuild(err)
	}

	var count int
	if err = s.GetReplica(ctx).Get(&count, queryString, args...); err != nil {
		return false, err
	}

	return count > 0, nil
}

// MarkRecorded promotes a pending reservation to a durable ledger entry.
func (s *FileLedgerStore) MarkRecorded(ctx context.Context, filename string, data types.RecordFileArgs) error {
	query := sq.Update(s.GetTable()).
		SetMap(map[string]interface{}{
			"title":          data.Title,
			"description":    data.Description,
			"chunks_created": data.ChunksCreated,
			"archived_path":  data.ArchivedPath,
			"status":         types.LEDGER_STATUS_RECORDED,
			"processed_at":   data.ProcessedAt,
		}).
		Where(sq.Eq{"filename": filename})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *FileLedgerStore) Delete(ctx context.Context, filename string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"filename": filename})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// DeletePending drops leftover reservations, usually ones stranded by a
// crash mid-pipeline. The startup sweep re-discovers their files.
func (s *FileLedgerStore) DeletePending(ctx context.Context) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"status": types.LEDGER_STATUS_PENDING})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *FileLedgerStore) List(ctx context.Context, opts types.ListFileLedgerOptions, page, pageSize uint64) ([]types.FileLedger, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("processed_at DESC")

	opts.Apply(&query)

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query = query.Limit(pageSize).Offset(offset)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var entries []types.FileLedger
	if err = s.GetReplica(ctx).Select(&entries, queryString, args...); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *FileLedgerStore) Total(ctx context.Context, opts types.ListFileLedgerOptions) (int64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())

	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var count int64
	if err = s.GetReplica(ctx).Get(&count, queryString, args...); err != nil {
		return 0, err
	}

	return count, nil
}
