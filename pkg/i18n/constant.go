package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL            = "error.internal"
	ERROR_NOT_FOUND           = "error.notfound"
	ERROR_INVALIDARGUMENT     = "error.invalidargument"
	ERROR_UNAUTHORIZED        = "error.unauthorized"
	ERROR_FORBIDDEN           = "error.forbidden"
	ERROR_EXIST               = "error.exist"
	ERROR_TOO_MANY_REQUESTS   = "error.tooManyRequests"
	ERROR_UNSUPPORTED_FEATURE = "error.unsupported.feature"

	ERROR_EXTRACTION_FAILED     = "error.ingest.extraction.failed"
	ERROR_CONTENT_TOO_SHORT     = "error.ingest.content.too.short"
	ERROR_ALREADY_INGESTED      = "error.ingest.already.ingested"
	ERROR_EMBEDDING_FAILED      = "error.ingest.embedding.failed"
	ERROR_KNOWLEDGE_STORE_WRITE = "error.ingest.store.write.failed"

	ERROR_SNAPSHOT_FAILED       = "error.backup.snapshot.failed"
	ERROR_SNAPSHOT_NOT_FOUND    = "error.backup.snapshot.notfound"
	ERROR_RESTORE_FAILED        = "error.backup.restore.failed"
	ERROR_ARCHIVE_EXPORT_FAILED = "error.backup.archive.failed"
	ERROR_BACKUP_DISABLED       = "error.backup.disabled"

	MESSAGE_BACKUP_SETTINGS_UPDATED = "message.backup.settings.updated"
	MESSAGE_SNAPSHOT_CREATED        = "message.backup.snapshot.created"
)
