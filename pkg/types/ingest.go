package types

import (
	sq "github.com/Masterminds/squirrel"
)

// IngestStage tracks a file's position in the ingestion state machine.
type IngestStage int8

const (
	INGEST_STAGE_DISCOVERED IngestStage = 0
	INGEST_STAGE_VALIDATED  IngestStage = 1
	INGEST_STAGE_EXTRACTED  IngestStage = 2
	INGEST_STAGE_CHUNKED    IngestStage = 3
	INGEST_STAGE_EMBEDDED   IngestStage = 4
	INGEST_STAGE_STORED     IngestStage = 5
	INGEST_STAGE_ARCHIVED   IngestStage = 6
	INGEST_STAGE_RECORDED   IngestStage = 7
)

func (s IngestStage) String() string {
	switch s {
	case INGEST_STAGE_DISCOVERED:
		return "discovered"
	case INGEST_STAGE_VALIDATED:
		return "validated"
	case INGEST_STAGE_EXTRACTED:
		return "extracted"
	case INGEST_STAGE_CHUNKED:
		return "chunked"
	case INGEST_STAGE_EMBEDDED:
		return "embedded"
	case INGEST_STAGE_STORED:
		return "stored"
	case INGEST_STAGE_ARCHIVED:
		return "archived"
	case INGEST_STAGE_RECORDED:
		return "recorded"
	default:
		return "unknown"
	}
}

// Ledger row status. A pending row is a reservation inserted before any
// extraction work starts so that concurrent discoveries of the same
// filename cannot both run the pipeline.
const (
	LEDGER_STATUS_PENDING  = "pending"
	LEDGER_STATUS_RECORDED = "recorded"
)

// FileLedger records that a source filename has been fully ingested.
// At most one row exists per filename.
type FileLedger struct {
	ID            string `json:"id" db:"id"`
	Filename      string `json:"filename" db:"filename"`
	Filepath      string `json:"filepath" db:"filepath"`
	Title         string `json:"title" db:"title"`
	Description   string `json:"description" db:"description"`
	ChunksCreated int    `json:"chunks_created" db:"chunks_created"`
	ArchivedPath  string `json:"archived_path" db:"archived_path"`
	Status        string `json:"status" db:"status"`
	ProcessedAt   int64  `json:"processed_at" db:"processed_at"`
}

// RecordFileArgs carries everything MarkRecorded writes when a pending
// reservation is promoted.
type RecordFileArgs struct {
	Title         string
	Description   string
	ChunksCreated int
	ArchivedPath  string
	ProcessedAt   int64
}

type ListFileLedgerOptions struct {
	Status   string
	Keywords string
}

func (opts ListFileLedgerOptions) Apply(query *sq.SelectBuilder) {
	if opts.Status != "" {
		*query = query.Where(sq.Eq{"status": opts.Status})
	}
	if opts.Keywords != "" {
		*query = query.Where(sq.Like{"filename": "%" + opts.Keywords + "%"})
	}
}

// IngestStatus is the pipeline's visible counter state.
type IngestStatus struct {
	Watching  string `json:"watching"`
	InFlight  int64  `json:"in_flight"`
	Processed int64  `json:"processed"`
	Skipped   int64  `json:"skipped"`
	Failed    int64  `json:"failed"`
}
