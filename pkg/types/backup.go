package types

import "time"

// BackupKind names one independently snapshotted data source.
type BackupKind string

const (
	BACKUP_KIND_STRUCTURED BackupKind = "structured-db"
	BACKUP_KIND_SIMILARITY BackupKind = "similarity-db"
	BACKUP_KIND_RAW        BackupKind = "raw-folder"
)

// AllBackupKinds lists every kind in the order SnapshotAll and the
// startup check walk them.
var AllBackupKinds = []BackupKind{
	BACKUP_KIND_STRUCTURED,
	BACKUP_KIND_SIMILARITY,
	BACKUP_KIND_RAW,
}

func (k BackupKind) String() string {
	return string(k)
}

// Prefix is the filename prefix used inside the per-kind snapshot
// directory. Snapshot names sort chronologically because the suffix is
// a fixed-width timestamp.
func (k BackupKind) Prefix() string {
	switch k {
	case BACKUP_KIND_STRUCTURED:
		return "structured"
	case BACKUP_KIND_SIMILARITY:
		return "similarity"
	case BACKUP_KIND_RAW:
		return "raw"
	default:
		return "unknown"
	}
}

const BACKUP_TIMESTAMP_LAYOUT = "20060102-150405"

// BackupSnapshot is one point-in-time copy of a data source.
type BackupSnapshot struct {
	Kind      BackupKind `json:"kind"`
	Location  string     `json:"location"`
	CreatedAt time.Time  `json:"created_at"`
}

// RestoredItem reports one store repaired during the startup
// integrity check.
type RestoredItem struct {
	Kind     BackupKind `json:"kind"`
	Snapshot string     `json:"snapshot"`
}

// ArchiveResult describes a finished full-archive export.
type ArchiveResult struct {
	ID        string   `json:"id"`
	Path      string   `json:"path"`
	SizeBytes int64    `json:"size_bytes"`
	Included  []string `json:"included"`
	Skipped   []string `json:"skipped"`
	Stored    bool     `json:"stored"`
	CreatedAt int64    `json:"created_at"`
}

// BackupSettings is the persisted backup configuration. It is loaded
// once at startup and written through to the settings table on every
// mutation.
type BackupSettings struct {
	Enabled       bool   `json:"enabled" toml:"enabled"`
	Schedule      string `json:"schedule" toml:"schedule"`
	CloudProvider string `json:"cloud_provider" toml:"cloud_provider"`
	NotifyEnabled bool   `json:"notify_enabled" toml:"notify_enabled"`
	NotifyURL     string `json:"notify_url" toml:"notify_url"`
}

const (
	BACKUP_CLOUD_PROVIDER_NONE = ""
	BACKUP_CLOUD_PROVIDER_S3   = "s3"
)

// Settings key under which BackupSettings persist in the custom
// config table.
const (
	BACKUP_SETTINGS_CONFIG_NAME     = "backup_settings"
	BACKUP_SETTINGS_CONFIG_CATEGORY = "backup"
)
