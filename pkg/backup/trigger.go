package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillmind-ai/quillmind/pkg/safe"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

// TriggerSnapshot schedules a snapshot of one kind after the debounce
// window. Another trigger inside the window resets the timer, so a
// burst of ingestions collapses into a single snapshot once the burst
// settles.
func (c *Coordinator) TriggerSnapshot(kind types.BackupKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[kind]; ok {
		t.Reset(c.debounce)
		return
	}
	c.timers[kind] = time.AfterFunc(c.debounce, func() {
		c.fire(kind)
	})
}

func (c *Coordinator) fire(kind types.BackupKind) {
	c.mu.Lock()
	delete(c.timers, kind)
	c.mu.Unlock()

	safe.Run(func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		if _, err := c.Snapshot(ctx, kind); err != nil {
			slog.Error("triggered snapshot failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
			return
		}
		if err := c.Rotate(kind); err != nil {
			slog.Error("snapshot rotation failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
		}
	})
}

// ApplySettings swaps in new backup settings. The scheduled
// SnapshotAll entry is removed and, when the settings enable it,
// re-added under the new cron expression. An invalid expression
// returns an error and leaves scheduled backups off.
func (c *Coordinator) ApplySettings(settings types.BackupSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cronID != 0 {
		c.cron.Remove(c.cronID)
		c.cronID = 0
	}
	c.settings = settings

	if !settings.Enabled || settings.Schedule == "" {
		slog.Info("scheduled backups disabled")
		return nil
	}

	id, err := c.cron.AddFunc(settings.Schedule, func() {
		safe.Run(func() {
			ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
			defer cancel()
			c.SnapshotAll(ctx)
		})
	})
	if err != nil {
		return fmt.Errorf("backup: invalid schedule %q: %w", settings.Schedule, err)
	}
	c.cronID = id
	c.cron.Start()

	slog.Info("scheduled backups enabled",
		slog.String("schedule", settings.Schedule),
		slog.String("cloud_provider", settings.CloudProvider))
	return nil
}
