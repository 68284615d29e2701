package v1_test

import (
	"os"
	"strings"
	"testing"

	v1 "github.com/quillmind-ai/quillmind/app/logic/v1"
	"github.com/quillmind-ai/quillmind/pkg/errors"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

func TestSnapshotNowCoversEveryKind(t *testing.T) {
	appCore := setupCore(t)
	logic := v1.NewBackupLogic(testCtx(), appCore)

	outcomes := logic.SnapshotNow()
	if len(outcomes) != len(types.AllBackupKinds) {
		t.Fatalf("expected %d outcomes, got %v", len(types.AllBackupKinds), outcomes)
	}

	for _, outcome := range outcomes {
		if outcome.Skipped {
			t.Fatalf("all sources exist, nothing should be skipped: %+v", outcome)
		}
		if outcome.Location == "" {
			t.Fatalf("missing snapshot location: %+v", outcome)
		}
		if _, err := os.Stat(outcome.Location); err != nil {
			t.Fatalf("snapshot %q not on disk: %v", outcome.Location, err)
		}
	}

	listed := logic.ListSnapshots()
	for _, kind := range types.AllBackupKinds {
		if len(listed[kind.String()]) != 1 {
			t.Fatalf("expected one listed snapshot for %s, got %v", kind, listed)
		}
	}
}

func TestCreateArchiveDownloadOnly(t *testing.T) {
	appCore := setupCore(t)
	logic := v1.NewBackupLogic(testCtx(), appCore)

	result, err := logic.CreateArchive(true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stored {
		t.Fatal("download-only archive must not be marked stored")
	}
	if result.ID == "" {
		t.Fatal("archive result needs an id")
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Fatalf("archive missing at %q: %v", result.Path, err)
	}
	// the caller owns a download-only archive
	os.Remove(result.Path)
}

func TestRestoreGuide(t *testing.T) {
	appCore := setupCore(t)
	logic := v1.NewBackupLogic(testCtx(), appCore)

	guide := logic.RestoreGuide()
	if !strings.Contains(guide, "Stop the service") {
		t.Fatalf("guide should open with stopping the service:\n%s", guide)
	}
	if !strings.Contains(guide, "backup-metadata.json") {
		t.Fatalf("guide should mention the manifest:\n%s", guide)
	}
}

func TestBackupSettingsRoundTrip(t *testing.T) {
	appCore := setupCore(t)
	logic := v1.NewBackupLogic(testCtx(), appCore)

	settings, err := logic.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Enabled {
		t.Fatal("scheduled backups should start disabled")
	}

	updated, err := logic.UpdateSettings(types.BackupSettings{
		Enabled:  true,
		Schedule: "0 3 * * *",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Enabled || updated.Schedule != "0 3 * * *" {
		t.Fatalf("unexpected echo %+v", updated)
	}

	// the write-through row is what a restart reads
	stored, err := appCore.LoadBackupSettings(testCtx())
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Enabled || stored.Schedule != "0 3 * * *" {
		t.Fatalf("stored settings do not match update: %+v", stored)
	}

	row, err := appCore.Store().CustomConfigStore().Get(testCtx(), types.BACKUP_SETTINGS_CONFIG_NAME)
	if err != nil {
		t.Fatal(err)
	}
	if row.Category != types.BACKUP_SETTINGS_CONFIG_CATEGORY {
		t.Fatalf("unexpected settings row %+v", row)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	appCore := setupCore(t)
	logic := v1.NewBackupLogic(testCtx(), appCore)

	tests := []struct {
		name     string
		settings types.BackupSettings
	}{
		{"enabled without schedule", types.BackupSettings{Enabled: true}},
		{"bad cron expression", types.BackupSettings{Enabled: true, Schedule: "not a cron"}},
		{"notify without url", types.BackupSettings{NotifyEnabled: true}},
		{"unknown provider", types.BackupSettings{CloudProvider: "ftp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := logic.UpdateSettings(tt.settings)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			ce, ok := err.(*errors.CustomizedError)
			if !ok || ce.GetCode() != 400 {
				t.Fatalf("expected a 400, got %v", err)
			}
		})
	}

	// nothing invalid may reach the settings table
	settings, err := logic.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Enabled || settings.NotifyEnabled {
		t.Fatalf("rejected settings leaked into storage: %+v", settings)
	}
}
