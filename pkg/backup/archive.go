package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillmind-ai/quillmind/pkg/config"
	"github.com/quillmind-ai/quillmind/pkg/safe"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

const (
	archiveFormatVersion = 1
	archiveManifestName  = "backup-metadata.json"
	archiveCredsName     = "credentials.txt"
)

// ArchiveOptions controls where a full archive lands. DownloadOnly
// writes to a temporary location the caller deletes after streaming
// it out; otherwise the archive is stored under the backup root and
// rotated like snapshots.
type ArchiveOptions struct {
	DownloadOnly bool
}

type archiveManifest struct {
	FormatVersion int                  `json:"format_version"`
	CreatedAt     time.Time            `json:"created_at"`
	Sources       []archiveSourceEntry `json:"sources"`
	Stats         archiveStats         `json:"stats"`
}

type archiveSourceEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Included bool   `json:"included"`
	Files    int    `json:"files"`
	Bytes    int64  `json:"bytes"`
}

type archiveStats struct {
	TotalFiles int   `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}

// CreateFullArchive packs every registered source into a single zip:
// the per-kind sources, the extra archive-only sources, a plaintext
// export of sensitive environment configuration and a manifest
// describing what made it in. Sources missing on disk are recorded as
// skipped rather than failing the export.
func (c *Coordinator) CreateFullArchive(ctx context.Context, opts ArchiveOptions) (*types.ArchiveResult, error) {
	now := time.Now()
	name := "archive-" + now.Format(types.BACKUP_TIMESTAMP_LAYOUT)

	var dir string
	if opts.DownloadOnly {
		tmp, err := os.MkdirTemp("", "quillmind-export-")
		if err != nil {
			return nil, fmt.Errorf("backup: create export dir: %w", err)
		}
		dir = tmp
	} else {
		dir = c.archivesDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("backup: create archives dir: %w", err)
		}
	}

	zipPath := filepath.Join(dir, name+".zip")
	result, err := c.writeFullArchive(ctx, zipPath, now)
	if err != nil {
		os.Remove(zipPath)
		if opts.DownloadOnly {
			os.RemoveAll(dir)
		}
		c.reportArchive(nil, err)
		return nil, err
	}

	result.ID = uuid.NewString()
	result.Stored = !opts.DownloadOnly
	result.CreatedAt = now.Unix()

	if result.Stored {
		c.rotateArchives()
	}

	slog.Info("full archive created",
		slog.String("path", result.Path),
		slog.Int64("size_bytes", result.SizeBytes),
		slog.Bool("stored", result.Stored))
	c.reportArchive(result, nil)
	return result, nil
}

func (c *Coordinator) archivesDir() string {
	return filepath.Join(c.root, "archives")
}

// archiveSources pairs each registered kind source with the extras.
func (c *Coordinator) archiveSources() []ArchiveSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	sources := make([]ArchiveSource, 0, len(c.sources)+len(c.extras))
	for _, kind := range types.AllBackupKinds {
		if path, ok := c.sources[kind]; ok && path != "" {
			sources = append(sources, ArchiveSource{Name: kind.String(), Path: path})
		}
	}
	sources = append(sources, c.extras...)
	return sources
}

func (c *Coordinator) writeFullArchive(ctx context.Context, zipPath string, now time.Time) (*types.ArchiveResult, error) {
	f, err := os.Create(zipPath)
	if err != nil {
		return nil, fmt.Errorf("backup: create archive file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	manifest := archiveManifest{
		FormatVersion: archiveFormatVersion,
		CreatedAt:     now,
	}
	result := &types.ArchiveResult{
		Path:     zipPath,
		Included: []string{},
		Skipped:  []string{},
	}

	for _, src := range c.archiveSources() {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return nil, err
		}

		entry := archiveSourceEntry{Name: src.Name, Path: src.Path}
		info, err := os.Stat(src.Path)
		if err != nil {
			manifest.Sources = append(manifest.Sources, entry)
			result.Skipped = append(result.Skipped, src.Name)
			slog.Info("archive source skipped",
				slog.String("source", src.Name),
				slog.String("path", src.Path))
			continue
		}

		var files int
		var bytes int64
		if info.IsDir() {
			files, bytes, err = addTreeEntry(zw, src.Name, src.Path)
		} else {
			files, bytes, err = addFileEntry(zw, path.Join(src.Name, filepath.Base(src.Path)), src.Path)
		}
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("backup: archive source %s: %w", src.Name, err)
		}

		entry.Included = true
		entry.Files = files
		entry.Bytes = bytes
		manifest.Sources = append(manifest.Sources, entry)
		manifest.Stats.TotalFiles += files
		manifest.Stats.TotalBytes += bytes
		result.Included = append(result.Included, src.Name)
	}

	if err := writeCredentialsEntry(zw, now); err != nil {
		zw.Close()
		return nil, fmt.Errorf("backup: write credentials: %w", err)
	}
	if err := writeManifestEntry(zw, manifest); err != nil {
		zw.Close()
		return nil, fmt.Errorf("backup: write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("backup: finalize archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("backup: sync archive: %w", err)
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		return nil, fmt.Errorf("backup: stat archive: %w", err)
	}
	result.SizeBytes = info.Size()
	return result, nil
}

// addTreeEntry walks a directory and writes each regular file under
// the source's name prefix, so every source occupies its own top
// level directory inside the zip.
func addTreeEntry(zw *zip.Writer, name, root string) (int, int64, error) {
	var files int
	var bytes int64
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		n, err := writeZipFile(zw, path.Join(name, filepath.ToSlash(rel)), p)
		if err != nil {
			return err
		}
		files++
		bytes += n
		return nil
	})
	return files, bytes, err
}

func addFileEntry(zw *zip.Writer, entry, p string) (int, int64, error) {
	n, err := writeZipFile(zw, entry, p)
	if err != nil {
		return 0, 0, err
	}
	return 1, n, nil
}

func writeZipFile(zw *zip.Writer, entry, p string) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w, err := zw.Create(entry)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, f)
}

func writeManifestEntry(zw *zip.Writer, manifest archiveManifest) error {
	w, err := zw.Create(archiveManifestName)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

// writeCredentialsEntry exports the deployment's credential environment
// so a restored instance can be reconfigured without hunting for
// secrets. The archive itself must be treated as confidential because
// of this entry.
func writeCredentialsEntry(zw *zip.Writer, now time.Time) error {
	w, err := zw.Create(archiveCredsName)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("# Sensitive configuration captured at " + now.Format(time.RFC3339) + ".\n")
	sb.WriteString("# Keep this file private; it grants access to external services.\n\n")
	sb.WriteString(config.LoadEnvConfig().ToEnvFile())

	_, err = io.WriteString(w, sb.String())
	return err
}

// rotateArchives keeps the newest stored archives, mirroring snapshot
// rotation. Best-effort.
func (c *Coordinator) rotateArchives() {
	entries, err := os.ReadDir(c.archivesDir())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("archive rotation failed", slog.Any("error", err))
		}
		return
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "archive-") && strings.HasSuffix(entry.Name(), ".zip") {
			names = append(names, entry.Name())
		}
	}
	if len(names) <= c.keep {
		return
	}
	sort.Strings(names)

	for _, name := range names[:len(names)-c.keep] {
		if err := os.Remove(filepath.Join(c.archivesDir(), name)); err != nil {
			slog.Error("archive removal failed",
				slog.String("archive", name),
				slog.Any("error", err))
			continue
		}
		slog.Info("archive rotated out", slog.String("archive", name))
	}
}

func (c *Coordinator) reportArchive(result *types.ArchiveResult, archiveErr error) {
	settings := c.settingsSnapshot()
	if !settings.NotifyEnabled || settings.NotifyURL == "" {
		return
	}

	ev := notifyEvent{
		Event:  "archive",
		Status: "ok",
		At:     time.Now().Unix(),
	}
	if archiveErr != nil {
		ev.Status = "failed"
		ev.Error = archiveErr.Error()
	} else if result != nil {
		ev.Location = result.Path
	}
	go safe.Run(func() {
		c.notifier.send(context.Background(), settings.NotifyURL, ev)
	})
}

// RestoreGuide explains how to rebuild an instance from a full
// archive. The archive is never applied automatically: other
// processes may hold the live files, so replacement has to happen
// with the service stopped.
func (c *Coordinator) RestoreGuide() string {
	var sb strings.Builder
	sb.WriteString("Manual restore from a full archive:\n\n")
	sb.WriteString("1. Stop the service so no data file is held open.\n")
	sb.WriteString("2. Unzip the archive into a scratch directory and read " + archiveManifestName + " to see what it contains.\n")

	step := 3
	for _, src := range c.archiveSources() {
		sb.WriteString(fmt.Sprintf("%d. Copy the %q directory from the archive back to %s.\n", step, src.Name, src.Path))
		step++
	}
	sb.WriteString(fmt.Sprintf("%d. Re-apply the values from %s to the environment, then delete that file.\n", step, archiveCredsName))
	step++
	sb.WriteString(fmt.Sprintf("%d. Start the service; the startup check verifies the restored stores.\n", step))
	return sb.String()
}

// zipDirToTemp packs a directory into a temporary zip whose entries
// are prefixed with the directory's own name, and returns the zip
// path. The caller removes the file.
func zipDirToTemp(dir string) (string, error) {
	f, err := os.CreateTemp("", "quillmind-upload-*.zip")
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(f)
	if _, _, err := addTreeEntry(zw, filepath.Base(dir), dir); err != nil {
		zw.Close()
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
