package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quillmind-ai/quillmind/pkg/register"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.KnowledgeStore = NewKnowledgeStore(provider)
	})
}

// KnowledgeStore holds the relational mirror of the similarity store,
// one row per chunk.
type KnowledgeStore struct {
	CommonFields
}

func NewKnowledgeStore(provider SqlProviderAchieve) *KnowledgeStore {
	repo := &KnowledgeStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_KNOWLEDGE)
	repo.SetAllColumns("id", "file_id", "title", "description", "category", "source_type",
		"language", "chunk_index", "total_chunks", "content", "created_at")
	return repo
}

func (s *KnowledgeStore) Create(ctx context.Context, data types.Knowledge) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.FileID, data.Title, data.Description, data.Category, data.SourceType,
			data.Language, data.ChunkIndex, data.TotalChunks, data.Content, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *KnowledgeStore) BatchCreate(ctx context.Context, datas []*types.Knowledge) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)
	for _, data := range datas {
		if data.CreatedAt == 0 {
			data.CreatedAt = time.Now().Unix()
		}

		query = query.Values(data.ID, data.FileID, data.Title, data.Description, data.Category, data.SourceType,
			data.Language, data.ChunkIndex, data.TotalChunks, data.Content, data.CreatedAt)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	if _, err = s.GetMaster(ctx).Exec(queryString, args...); err != nil {
		return err
	}
	return nil
}

func (s *KnowledgeStore) GetKnowledge(ctx context.Context, id string) (*types.Knowledge, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var data types.Knowledge
	if err = s.GetReplica(ctx).Get(&data, queryString, args...); err != nil {
		return nil, err
	}

	return &data, nil
}

func (s *KnowledgeStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *KnowledgeStore) DeleteByFileID(ctx context.Context, fileID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"file_id": fileID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *KnowledgeStore) ListKnowledges(ctx context.Context, opts types.GetKnowledgeOptions, page, pageSize uint64) ([]*types.Knowledge, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		OrderBy("created_at DESC", "chunk_index ASC")

	opts.Apply(&query)

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query = query.Limit(pageSize).Offset(offset)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var list []*types.Knowledge
	if err = s.GetReplica(ctx).Select(&list, queryString, args...); err != nil {
		return nil, err
	}

	return list, nil
}

func (s *KnowledgeStore) Total(ctx context.Context, opts types.GetKnowledgeOptions) (uint64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())

	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var count uint64
	if err = s.GetReplica(ctx).Get(&count, queryString, args...); err != nil {
		return 0, err
	}

	return count, nil
}

func (s *KnowledgeStore) ListCategories(ctx context.Context) ([]types.CategoryCount, error) {
	query := sq.Select("category", "COUNT(*) AS total").From(s.GetTable()).
		GroupBy("category").OrderBy("total DESC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var list []types.CategoryCount
	if err = s.GetReplica(ctx).Select(&list, queryString, args...); err != nil {
		return nil, err
	}

	return list, nil
}
