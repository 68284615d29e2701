package v1

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/quillmind-ai/quillmind/app/core"
	"github.com/quillmind-ai/quillmind/pkg/backup"
	"github.com/quillmind-ai/quillmind/pkg/errors"
	"github.com/quillmind-ai/quillmind/pkg/i18n"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

type BackupLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewBackupLogic(ctx context.Context, core *core.Core) *BackupLogic {
	return &BackupLogic{
		ctx:  ctx,
		core: core,
	}
}

// SnapshotOutcome reports one kind's result of an on-demand snapshot
// pass. A kind whose source was never registered or is missing on disk
// comes back skipped.
type SnapshotOutcome struct {
	Kind      string `json:"kind"`
	Location  string `json:"location,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Skipped   bool   `json:"skipped"`
}

func (l *BackupLogic) SnapshotNow() []SnapshotOutcome {
	results := l.core.Backup().SnapshotAll(l.ctx)

	outcomes := make([]SnapshotOutcome, 0, len(types.AllBackupKinds))
	for _, kind := range types.AllBackupKinds {
		outcome := SnapshotOutcome{Kind: kind.String()}
		if snap := results[kind.String()]; snap != nil {
			outcome.Location = snap.Location
			outcome.CreatedAt = snap.CreatedAt.Unix()
		} else {
			outcome.Skipped = true
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (l *BackupLogic) ListSnapshots() map[string][]string {
	return l.core.Backup().ListSnapshots()
}

func (l *BackupLogic) CreateArchive(downloadOnly bool) (*types.ArchiveResult, error) {
	result, err := l.core.Backup().CreateFullArchive(l.ctx, backup.ArchiveOptions{
		DownloadOnly: downloadOnly,
	})
	if err != nil {
		return nil, errors.New("BackupLogic.CreateArchive.CreateFullArchive", i18n.ERROR_ARCHIVE_EXPORT_FAILED, err)
	}
	return result, nil
}

func (l *BackupLogic) RestoreGuide() string {
	return l.core.Backup().RestoreGuide()
}

func (l *BackupLogic) GetSettings() (types.BackupSettings, error) {
	settings, err := l.core.LoadBackupSettings(l.ctx)
	if err != nil {
		return types.BackupSettings{}, errors.New("BackupLogic.GetSettings.LoadBackupSettings", i18n.ERROR_INTERNAL, err)
	}
	return settings, nil
}

// UpdateSettings reschedules the coordinator and writes the settings
// through to the config table so they survive restarts. The
// coordinator goes first: it rejects an invalid cron expression before
// anything is persisted.
func (l *BackupLogic) UpdateSettings(settings types.BackupSettings) (types.BackupSettings, error) {
	if err := validateBackupSettings(settings); err != nil {
		return types.BackupSettings{}, err
	}

	if err := l.core.Backup().ApplySettings(settings); err != nil {
		return types.BackupSettings{}, errors.New("BackupLogic.UpdateSettings.ApplySettings", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}

	value, err := json.Marshal(settings)
	if err != nil {
		return types.BackupSettings{}, errors.New("BackupLogic.UpdateSettings.Marshal", i18n.ERROR_INTERNAL, err)
	}

	err = l.core.Store().CustomConfigStore().Upsert(l.ctx, types.CustomConfig{
		Name:        types.BACKUP_SETTINGS_CONFIG_NAME,
		Description: "backup coordinator settings",
		Value:       value,
		Category:    types.BACKUP_SETTINGS_CONFIG_CATEGORY,
		Status:      types.StatusEnabled,
	})
	if err != nil {
		return types.BackupSettings{}, errors.New("BackupLogic.UpdateSettings.CustomConfigStore.Upsert", i18n.ERROR_INTERNAL, err)
	}

	return settings, nil
}

func validateBackupSettings(settings types.BackupSettings) error {
	if settings.Enabled && settings.Schedule == "" {
		return errors.New("BackupLogic.UpdateSettings.Schedule.empty", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	if settings.NotifyEnabled && settings.NotifyURL == "" {
		return errors.New("BackupLogic.UpdateSettings.NotifyURL.empty", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	switch settings.CloudProvider {
	case types.BACKUP_CLOUD_PROVIDER_NONE, types.BACKUP_CLOUD_PROVIDER_S3:
	default:
		return errors.New("BackupLogic.UpdateSettings.CloudProvider.unknown", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	return nil
}
