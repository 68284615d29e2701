package sqlstore

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type SqlCommons interface {
	GetTable() string
}

type ConnectConfig interface {
	FormatDSN() string
}

// SqlProvider wraps the shared sqlite handle. The database is a single
// file on disk so the backup coordinator can snapshot it with a plain
// file copy; reads and writes go through the same connection pool.
type SqlProvider struct {
	db *sqlx.DB
}

func (s *SqlProvider) GetTxFromCtx(ctx context.Context) *sqlx.Tx {
	if driver, ok := ctx.Value(TransactionKey{}).(*sqlx.Tx); ok {
		return driver
	}
	return nil
}

func (s *SqlProvider) GetMaster() *sqlx.DB {
	return s.db
}

func (s *SqlProvider) GetReplica() *sqlx.DB {
	return s.db
}

type TransactionKey struct{}

func (s *SqlProvider) Transaction(ctx context.Context, next func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// re-entrant call keeps using the transaction already on the ctx,
	// sqlite only ever allows one writer
	if _, ok := ctx.Value(TransactionKey{}).(*sqlx.Tx); ok {
		return next(ctx)
	}

	var (
		tx  *sqlx.Tx
		err error
	)
	if tx, err = s.GetMaster().BeginTxx(ctx, nil); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil || err != nil {
			slog.Error("Transaction rollbacked", slog.Any("recover", r), slog.Any("error", err))
			_ = tx.Rollback()
			return
		}
	}()

	if err = next(context.WithValue(ctx, TransactionKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SqlProvider) initConnection(conf ConnectConfig) (*sqlx.DB, error) {
	engine := sqlx.MustOpen("sqlite", conf.FormatDSN())
	// writes serialize on the file lock anyway; a small pool keeps
	// SQLITE_BUSY retries rare
	engine.SetMaxOpenConns(4)
	return engine, nil
}

func MustSetupProvider(m ConnectConfig) *SqlProvider {
	provider := &SqlProvider{}

	engine, err := provider.initConnection(m)
	if err != nil {
		panic(err)
	}
	provider.db = engine

	return provider
}

func (s *SqlProvider) GetTx() (*sqlx.Tx, error) {
	return s.GetMaster().Beginx()
}
