package v1

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/quillmind-ai/quillmind/app/core"
	"github.com/quillmind-ai/quillmind/pkg/errors"
	"github.com/quillmind-ai/quillmind/pkg/i18n"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

type KnowledgeLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewKnowledgeLogic(ctx context.Context, core *core.Core) *KnowledgeLogic {
	return &KnowledgeLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *KnowledgeLogic) GetKnowledge(id string) (*types.Knowledge, error) {
	data, err := l.core.Store().KnowledgeStore().GetKnowledge(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("KnowledgeLogic.GetKnowledge.KnowledgeStore.GetKnowledge", i18n.ERROR_INTERNAL, err)
	}
	if data == nil {
		return nil, errors.New("KnowledgeLogic.GetKnowledge.KnowledgeStore.GetKnowledge.nil", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
	}
	return data, nil
}

func (l *KnowledgeLogic) ListKnowledges(category, keywords string, page, pagesize uint64) ([]*types.Knowledge, uint64, error) {
	opts := types.GetKnowledgeOptions{
		Category: category,
		Keywords: keywords,
	}

	list, err := l.core.Store().KnowledgeStore().ListKnowledges(l.ctx, opts, page, pagesize)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, errors.New("KnowledgeLogic.ListKnowledges.KnowledgeStore.ListKnowledges", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.core.Store().KnowledgeStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("KnowledgeLogic.ListKnowledges.KnowledgeStore.Total", i18n.ERROR_INTERNAL, err)
	}

	return list, total, nil
}

func (l *KnowledgeLogic) ListCategories() ([]types.CategoryCount, error) {
	list, err := l.core.Store().KnowledgeStore().ListCategories(l.ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("KnowledgeLogic.ListCategories.KnowledgeStore.ListCategories", i18n.ERROR_INTERNAL, err)
	}
	return list, nil
}

// DeleteByFileID removes every chunk row that one ingested file
// produced, plus the matching similarity records. The ledger row stays
// so the file is not re-ingested.
func (l *KnowledgeLogic) DeleteByFileID(fileID string) error {
	if fileID == "" {
		return errors.New("KnowledgeLogic.DeleteByFileID.empty", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	rows, err := l.core.Store().KnowledgeStore().ListKnowledges(l.ctx, types.GetKnowledgeOptions{FileID: fileID}, 0, 0)
	if err != nil && err != sql.ErrNoRows {
		return errors.New("KnowledgeLogic.DeleteByFileID.KnowledgeStore.ListKnowledges", i18n.ERROR_INTERNAL, err)
	}

	if err := l.core.Store().KnowledgeStore().DeleteByFileID(l.ctx, fileID); err != nil {
		return errors.New("KnowledgeLogic.DeleteByFileID.KnowledgeStore.DeleteByFileID", i18n.ERROR_INTERNAL, err)
	}

	l.deleteSimilarityRecords(fileID, rows)
	return nil
}

// Similarity record ids are derived from the file id and chunk index,
// so the rows just removed name the vectors to drop. Failures leave
// orphan vectors and are logged, not propagated.
func (l *KnowledgeLogic) deleteSimilarityRecords(fileID string, rows []*types.Knowledge) {
	if len(rows) == 0 {
		return
	}

	col, err := l.core.VectorStore().Open(l.core.Cfg().Vector.Collection)
	if err != nil {
		return
	}

	ids := lo.Map(rows, func(row *types.Knowledge, _ int) string {
		return types.KnowledgeRecordID(fileID, row.ChunkIndex)
	})
	if err := col.Delete(l.ctx, ids...); err != nil {
		slog.Warn("Failed to delete similarity records",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()))
	}
}

// FileListItem is the ledger view the API returns; the in-flight
// filepath is an internal detail and stays out of it.
type FileListItem struct {
	Filename      string `json:"filename"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ChunksCreated int    `json:"chunks_created"`
	ArchivedPath  string `json:"archived_path"`
	Status        string `json:"status"`
	ProcessedAt   int64  `json:"processed_at"`
}

func (l *KnowledgeLogic) ListFiles(status, keywords string, page, pagesize uint64) ([]FileListItem, int64, error) {
	opts := types.ListFileLedgerOptions{
		Status:   status,
		Keywords: keywords,
	}

	list, err := l.core.Store().FileLedgerStore().List(l.ctx, opts, page, pagesize)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, errors.New("KnowledgeLogic.ListFiles.FileLedgerStore.List", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.core.Store().FileLedgerStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("KnowledgeLogic.ListFiles.FileLedgerStore.Total", i18n.ERROR_INTERNAL, err)
	}

	items := lo.Map(list, func(item types.FileLedger, _ int) FileListItem {
		return FileListItem{
			Filename:      item.Filename,
			Title:         item.Title,
			Description:   item.Description,
			ChunksCreated: item.ChunksCreated,
			ArchivedPath:  item.ArchivedPath,
			Status:        item.Status,
			ProcessedAt:   item.ProcessedAt,
		}
	})

	return items, total, nil
}
