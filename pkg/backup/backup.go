// Package backup maintains point-in-time copies of the subsystem's data
// sources. Each source is snapshotted independently under its own kind
// directory, old snapshots are rotated away, and at startup the
// coordinator can detect a damaged source and put the newest snapshot
// back in place before any store handle is opened.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quillmind-ai/quillmind/pkg/safe"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

const (
	// DefaultKeep is how many snapshots of each kind survive rotation.
	DefaultKeep = 5
	// DefaultSnapshotDebounce is the quiet period after an ingestion
	// burst before the triggered snapshot actually runs.
	DefaultSnapshotDebounce = 10 * time.Second

	// Structured store files smaller than this are treated as corrupt
	// by the startup check. A freshly initialised sqlite file is
	// already several kilobytes.
	minStructuredBytes = 100

	snapshotTimeout = 5 * time.Minute
)

// Uploader pushes a finished snapshot to remote storage. The s3 client
// satisfies it.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

// Observer receives snapshot and restore outcomes, normally to feed
// prometheus counters. All methods must be non-blocking.
type Observer interface {
	SnapshotDone(kind types.BackupKind, err error)
	RestorePerformed(kind types.BackupKind)
}

// Coordinator owns the backup root directory. All mutable state is
// guarded by mu; snapshot copies themselves run outside the lock.
type Coordinator struct {
	root     string
	keep     int
	debounce time.Duration

	mu       sync.Mutex
	sources  map[types.BackupKind]string
	extras   []ArchiveSource
	timers   map[types.BackupKind]*time.Timer
	settings types.BackupSettings
	cronID   cron.EntryID

	cron     *cron.Cron
	uploader Uploader
	observer Observer
	notifier *notifier
}

// ArchiveSource is a path included in the full archive export but not
// snapshotted on its own.
type ArchiveSource struct {
	Name string
	Path string
}

type Option func(*Coordinator)

// WithKeep overrides how many snapshots of each kind rotation retains.
func WithKeep(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.keep = n
		}
	}
}

// WithDebounce overrides the quiet period of TriggerSnapshot.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithUploader installs the remote storage client used when the cloud
// provider setting is enabled.
func WithUploader(u Uploader) Option {
	return func(c *Coordinator) {
		c.uploader = u
	}
}

// WithObserver installs the metrics sink.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// NewCoordinator creates a coordinator rooted at root. Sources are
// registered afterwards with RegisterSource; nothing is scheduled until
// ApplySettings enables it.
func NewCoordinator(root string, opts ...Option) (*Coordinator, error) {
	if root == "" {
		return nil, fmt.Errorf("backup: root directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create root: %w", err)
	}

	c := &Coordinator{
		root:     root,
		keep:     DefaultKeep,
		debounce: DefaultSnapshotDebounce,
		sources:  make(map[types.BackupKind]string),
		timers:   make(map[types.BackupKind]*time.Timer),
		cron:     cron.New(),
		notifier: newNotifier(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RegisterSource binds a kind to the live path it snapshots. The
// structured kind points at a file, the other kinds at directories.
func (c *Coordinator) RegisterSource(kind types.BackupKind, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[kind] = path
}

// RegisterArchiveSource adds a path that only the full archive export
// picks up, such as the log directory or the config file.
func (c *Coordinator) RegisterArchiveSource(name, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extras = append(c.extras, ArchiveSource{Name: name, Path: path})
}

// Root returns the backup root directory.
func (c *Coordinator) Root() string {
	return c.root
}

func (c *Coordinator) source(kind types.BackupKind) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.sources[kind]
	return path, ok
}

func (c *Coordinator) settingsSnapshot() types.BackupSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// kindDir is where snapshots of one kind live.
func (c *Coordinator) kindDir(kind types.BackupKind) string {
	return filepath.Join(c.root, kind.String())
}

// Snapshot copies the kind's source into a timestamped snapshot and
// returns its description. A kind whose source is not registered or
// does not exist on disk yields (nil, nil): there is nothing to back up
// yet, which is not an error.
func (c *Coordinator) Snapshot(ctx context.Context, kind types.BackupKind) (*types.BackupSnapshot, error) {
	snap, err := c.snapshot(ctx, kind)
	if err != nil {
		c.reportSnapshot(kind, "", err)
		return nil, err
	}
	if snap != nil {
		c.reportSnapshot(kind, snap.Location, nil)
	}
	return snap, nil
}

func (c *Coordinator) snapshot(ctx context.Context, kind types.BackupKind) (*types.BackupSnapshot, error) {
	src, ok := c.source(kind)
	if !ok || src == "" {
		return nil, nil
	}
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: stat source %s: %w", kind, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	name := kind.Prefix() + "-" + now.Format(types.BACKUP_TIMESTAMP_LAYOUT)
	dir := c.kindDir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot dir: %w", err)
	}

	// Two snapshots of the same kind within one second land on the
	// same name and collapse into one copy.
	var dest string
	if info.IsDir() {
		dest = filepath.Join(dir, name)
		err = copyDir(src, dest)
	} else {
		dest = filepath.Join(dir, name+".db")
		err = copyFile(src, dest)
	}
	if err != nil {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("backup: copy %s: %w", kind, err)
	}

	slog.Info("snapshot created",
		slog.String("kind", kind.String()),
		slog.String("location", dest))
	return &types.BackupSnapshot{
		Kind:      kind,
		Location:  dest,
		CreatedAt: now,
	}, nil
}

// SnapshotAll snapshots every kind and rotates each one afterwards.
// Kinds whose source is absent are left out of the result; per-kind
// failures are logged and do not stop the others.
func (c *Coordinator) SnapshotAll(ctx context.Context) map[string]*types.BackupSnapshot {
	out := make(map[string]*types.BackupSnapshot)
	for _, kind := range types.AllBackupKinds {
		snap, err := c.Snapshot(ctx, kind)
		if err != nil {
			slog.Error("snapshot failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
			continue
		}
		if snap == nil {
			continue
		}
		out[kind.String()] = snap
		if err := c.Rotate(kind); err != nil {
			slog.Error("snapshot rotation failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
		}
	}
	return out
}

// ListSnapshots returns the snapshot names of every kind, newest
// first. Kinds with no snapshots map to an empty slice.
func (c *Coordinator) ListSnapshots() map[string][]string {
	out := make(map[string][]string, len(types.AllBackupKinds))
	for _, kind := range types.AllBackupKinds {
		names, err := c.snapshotNames(kind)
		if err != nil {
			slog.Error("list snapshots failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
			names = nil
		}
		// Reverse to newest first for display.
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		if names == nil {
			names = []string{}
		}
		out[kind.String()] = names
	}
	return out
}

// snapshotNames lists the kind's snapshots sorted ascending, which is
// oldest first because names embed a fixed-width timestamp.
func (c *Coordinator) snapshotNames(kind types.BackupKind) ([]string, error) {
	entries, err := os.ReadDir(c.kindDir(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), kind.Prefix()+"-") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Coordinator) newestSnapshot(kind types.BackupKind) string {
	names, err := c.snapshotNames(kind)
	if err != nil || len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}

// Rotate removes the oldest snapshots of a kind until at most the
// configured count remains. Individual removal failures are logged and
// skipped so one stuck file cannot block rotation forever.
func (c *Coordinator) Rotate(kind types.BackupKind) error {
	names, err := c.snapshotNames(kind)
	if err != nil {
		return fmt.Errorf("backup: rotate %s: %w", kind, err)
	}
	if len(names) <= c.keep {
		return nil
	}

	dir := c.kindDir(kind)
	for _, name := range names[:len(names)-c.keep] {
		logArgs := []any{slog.String("kind", kind.String()), slog.String("snapshot", name)}
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			slog.Error("snapshot removal failed", append(logArgs, slog.Any("error", err))...)
			continue
		}
		slog.Info("snapshot rotated out", logArgs...)
	}
	return nil
}

// reportSnapshot fans a snapshot outcome out to the observer, the
// webhook and, on success, the cloud uploader.
func (c *Coordinator) reportSnapshot(kind types.BackupKind, location string, snapErr error) {
	if c.observer != nil {
		c.observer.SnapshotDone(kind, snapErr)
	}

	settings := c.settingsSnapshot()
	if snapErr == nil && settings.CloudProvider == types.BACKUP_CLOUD_PROVIDER_S3 && c.uploader != nil {
		go safe.Run(func() {
			c.uploadSnapshot(kind, location)
		})
	}
	if settings.NotifyEnabled && settings.NotifyURL != "" {
		ev := notifyEvent{
			Event:    "snapshot",
			Kind:     kind.String(),
			Status:   "ok",
			Location: location,
			At:       time.Now().Unix(),
		}
		if snapErr != nil {
			ev.Status = "failed"
			ev.Location = ""
			ev.Error = snapErr.Error()
		}
		go safe.Run(func() {
			c.notifier.send(context.Background(), settings.NotifyURL, ev)
		})
	}
}

// uploadSnapshot ships one finished snapshot to remote storage. A
// directory snapshot is packed into a zip first since object stores
// take single blobs.
func (c *Coordinator) uploadSnapshot(kind types.BackupKind, location string) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	info, err := os.Stat(location)
	if err != nil {
		slog.Error("snapshot upload skipped", slog.Any("error", err))
		return
	}

	key := kind.String() + "/" + filepath.Base(location)
	path := location
	if info.IsDir() {
		tmp, err := zipDirToTemp(location)
		if err != nil {
			slog.Error("snapshot upload failed",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
			return
		}
		defer os.Remove(tmp)
		path = tmp
		key += ".zip"
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("snapshot upload failed", slog.Any("error", err))
		return
	}
	defer f.Close()

	if err := c.uploader.Upload(ctx, key, f); err != nil {
		slog.Error("snapshot upload failed",
			slog.String("kind", kind.String()),
			slog.String("key", key),
			slog.Any("error", err))
		return
	}
	slog.Info("snapshot uploaded",
		slog.String("kind", kind.String()),
		slog.String("key", key))
}

// Close stops pending debounce timers and the cron scheduler, waiting
// for any running scheduled job to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	for kind, t := range c.timers {
		t.Stop()
		delete(c.timers, kind)
	}
	c.mu.Unlock()

	ctx := c.cron.Stop()
	<-ctx.Done()
}
