package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

// Restore copies the named snapshot of a kind back over its live
// source path. An empty name picks the newest snapshot. The caller
// must guarantee no store handle is open on the destination.
func (c *Coordinator) Restore(ctx context.Context, kind types.BackupKind, name string) error {
	dest, ok := c.source(kind)
	if !ok || dest == "" {
		return fmt.Errorf("backup: no source registered for %s", kind)
	}

	if name == "" {
		name = c.newestSnapshot(kind)
		if name == "" {
			return fmt.Errorf("backup: no snapshot available for %s", kind)
		}
	}
	// Snapshot names never contain separators; reject anything that
	// would escape the kind directory.
	if name != filepath.Base(name) || !strings.HasPrefix(name, kind.Prefix()+"-") {
		return fmt.Errorf("backup: invalid snapshot name %q", name)
	}

	src := filepath.Join(c.kindDir(kind), name)
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("backup: snapshot %s/%s: %w", kind, name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("backup: create parent of %s: %w", dest, err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("backup: clear %s: %w", dest, err)
	}

	if info.IsDir() {
		err = copyDir(src, dest)
	} else {
		err = copyFile(src, dest)
	}
	if err != nil {
		return fmt.Errorf("backup: restore %s from %s: %w", kind, name, err)
	}

	if c.observer != nil {
		c.observer.RestorePerformed(kind)
	}
	slog.Info("snapshot restored",
		slog.String("kind", kind.String()),
		slog.String("snapshot", name),
		slog.String("dest", dest))
	return nil
}

// CheckAndRestoreOnStartup examines every registered source and puts
// the newest snapshot back in place for each one that looks damaged.
// It must run before any store opens its files. Sources that are
// unhealthy with no snapshot to fall back on are logged and left
// alone, which gives a degraded but working empty start.
func (c *Coordinator) CheckAndRestoreOnStartup(ctx context.Context) []types.RestoredItem {
	var restored []types.RestoredItem
	for _, kind := range types.AllBackupKinds {
		src, ok := c.source(kind)
		if !ok || src == "" {
			continue
		}
		reason := c.unhealthyReason(kind, src)
		if reason == "" {
			continue
		}

		newest := c.newestSnapshot(kind)
		if newest == "" {
			slog.Warn("source unhealthy with no snapshot, starting empty",
				slog.String("kind", kind.String()),
				slog.String("path", src),
				slog.String("reason", reason))
			continue
		}

		slog.Warn("source unhealthy, restoring newest snapshot",
			slog.String("kind", kind.String()),
			slog.String("path", src),
			slog.String("reason", reason),
			slog.String("snapshot", newest))
		if err := c.Restore(ctx, kind, newest); err != nil {
			slog.Error("startup restore failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
			continue
		}
		restored = append(restored, types.RestoredItem{Kind: kind, Snapshot: newest})
	}
	return restored
}

// unhealthyReason returns a short description of why the source fails
// the startup check, or "" when it looks fine. The heuristics are
// deliberately crude: a missing path, a structured store file too
// small to hold a schema, or a similarity directory with nothing in
// it.
func (c *Coordinator) unhealthyReason(kind types.BackupKind, path string) string {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "path missing"
	}
	if err != nil {
		return "path unreadable: " + err.Error()
	}

	switch kind {
	case types.BACKUP_KIND_STRUCTURED:
		if info.IsDir() {
			return "expected a file"
		}
		if info.Size() < minStructuredBytes {
			return fmt.Sprintf("file truncated (%d bytes)", info.Size())
		}
	case types.BACKUP_KIND_SIMILARITY:
		if !info.IsDir() {
			return "expected a directory"
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return "directory unreadable: " + err.Error()
		}
		if len(entries) == 0 {
			return "directory empty"
		}
	}
	return ""
}
