package sqlstore

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quillmind-ai/quillmind/pkg/register"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.CustomConfigStore = NewCustomConfigStore(provider)
	})
}

// CustomConfigStore persists named JSON config entries, one row per name.
type CustomConfigStore struct {
	CommonFields
}

func NewCustomConfigStore(provider SqlProviderAchieve) *CustomConfigStore {
	repo := &CustomConfigStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CUSTOM_CONFIG)
	repo.SetAllColumns("name", "description", "value", "category", "status", "created_at", "updated_at")
	return repo
}

// Upsert inserts the entry or overwrites its value while keeping the
// original created_at.
func (s *CustomConfigStore) Upsert(ctx context.Context, data types.CustomConfig) error {
	now := time.Now().Unix()

	existing, err := s.Get(ctx, data.Name)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		data.UpdatedAt = now
		data.CreatedAt = existing.CreatedAt

		query := sq.Update(s.GetTable()).
			SetMap(map[string]interface{}{
				"description": data.Description,
				"value":       data.Value,
				"category":    data.Category,
				"status":      data.Status,
				"updated_at":  data.UpdatedAt,
			}).
			Where(sq.Eq{"name": data.Name})

		queryString, args, err := query.ToSql()
		if err != nil {
			return ErrorSqlBuild(err)
		}

		_, err = s.GetMaster(ctx).Exec(queryString, args...)
		return err
	}

	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = now
	}

	query := sq.Insert(s.GetTable()).
		Columns("name", "description", "value", "category", "status", "created_at", "updated_at").
		Values(data.Name, data.Description, data.Value, data.Category, data.Status, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *CustomConfigStore) Get(ctx context.Context, name string) (*types.CustomConfig, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"name": name})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var config types.CustomConfig
	if err = s.GetReplica(ctx).Get(&config, queryString, args...); err != nil {
		return nil, err
	}

	return &config, nil
}

func (s *CustomConfigStore) Delete(ctx context.Context, name string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"name": name})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *CustomConfigStore) List(ctx context.Context, opts types.ListCustomConfigOptions, page, pageSize uint64) ([]types.CustomConfig, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")

	opts.Apply(&query)

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query = query.Limit(pageSize).Offset(offset)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var configs []types.CustomConfig
	if err = s.GetReplica(ctx).Select(&configs, queryString, args...); err != nil {
		return nil, err
	}

	return configs, nil
}

func (s *CustomConfigStore) Total(ctx context.Context, opts types.ListCustomConfigOptions) (int64, error) {
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
