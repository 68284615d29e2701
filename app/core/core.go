package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quillmind-ai/quillmind/app/core/srv"
	"github.com/quillmind-ai/quillmind/app/store/sqlstore"
	"github.com/quillmind-ai/quillmind/pkg/backup"
	"github.com/quillmind-ai/quillmind/pkg/object-storage/s3"
	"github.com/quillmind-ai/quillmind/pkg/types"
	"github.com/quillmind-ai/quillmind/pkg/vectordb"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores  func() *sqlstore.Provider
	vectors *vectordb.Store
	backup  *backup.Coordinator

	httpEngine *gin.Engine
	metrics    *Metrics

	restored []types.RestoredItem
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("quillmind", "core"),
		httpEngine: gin.New(),
	}

	// durability comes first: damaged stores are repaired from the
	// newest snapshot before anything opens them
	setupBackup(core)

	// setup store
	setupSqlStore(core)
	setupVectorStore(core)

	core.srv = srv.SetupSrvs(
		srv.ApplyAI(cfg.AI),
		srv.ApplyOCR(cfg.AI.OCR),
	)

	core.applyStoredBackupSettings()

	return core
}

func setupBackup(core *Core) {
	opts := []backup.Option{
		backup.WithObserver(core.metrics),
	}
	if keep := core.cfg.Backup.Keep; keep > 0 {
		opts = append(opts, backup.WithKeep(keep))
	}
	if seconds := core.cfg.Backup.DebounceSeconds; seconds > 0 {
		opts = append(opts, backup.WithDebounce(time.Duration(seconds)*time.Second))
	}
	if uploader := setupSnapshotUploader(core.cfg.ObjectStorage); uploader != nil {
		opts = append(opts, backup.WithUploader(uploader))
	}

	coordinator, err := backup.NewCoordinator(core.cfg.Backup.RootDir, opts...)
	if err != nil {
		panic(err)
	}

	coordinator.RegisterSource(types.BACKUP_KIND_STRUCTURED, core.cfg.Sqlite.Path)
	coordinator.RegisterSource(types.BACKUP_KIND_SIMILARITY, core.cfg.Vector.Path)
	coordinator.RegisterSource(types.BACKUP_KIND_RAW, core.cfg.Ingest.ArchiveDir)
	if core.cfg.Log.Path != "" {
		coordinator.RegisterArchiveSource("logs", core.cfg.Log.Path)
	}
	if core.cfg.path != "" {
		coordinator.RegisterArchiveSource("config", core.cfg.path)
	}

	core.backup = coordinator
	core.restored = coordinator.CheckAndRestoreOnStartup(context.Background())
}

func setupSnapshotUploader(cfg ObjectStorageDriver) backup.Uploader {
	if cfg.Driver != types.BACKUP_CLOUD_PROVIDER_S3 || cfg.S3 == nil {
		return nil
	}
	return s3.NewS3Client(
		cfg.S3.Endpoint,
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKey,
		cfg.S3.SecretKey,
		s3.WithPathStyle(cfg.S3.UsePathStyle),
	)
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Sqlite)
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	fmt.Println("setupSqlStore done")
}

func setupVectorStore(core *Core) {
	store, err := vectordb.New(core.cfg.Vector.Path)
	if err != nil {
		panic(err)
	}
	core.vectors = store
}

// applyStoredBackupSettings loads the persisted schedule and arms the
// cron. A broken stored value logs and leaves scheduled backups off;
// it must not block startup.
func (s *Core) applyStoredBackupSettings() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	settings, err := s.LoadBackupSettings(ctx)
	if err != nil {
		slog.Error("failed to load backup settings", slog.Any("error", err))
		return
	}
	if err := s.backup.ApplySettings(settings); err != nil {
		slog.Error("failed to apply backup settings", slog.Any("error", err))
	}
}

// LoadBackupSettings reads the persisted backup settings; defaults
// when none were saved yet.
func (s *Core) LoadBackupSettings(ctx context.Context) (types.BackupSettings, error) {
	cfg, err := s.Store().CustomConfigStore().Get(ctx, types.BACKUP_SETTINGS_CONFIG_NAME)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BackupSettings{}, nil
		}
		return types.BackupSettings{}, err
	}
	if cfg == nil || len(cfg.Value) == 0 {
		return types.BackupSettings{}, nil
	}

	var settings types.BackupSettings
	if err := json.Unmarshal(cfg.Value, &settings); err != nil {
		return types.BackupSettings{}, err
	}
	return settings, nil
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) VectorStore() *vectordb.Store {
	return s.vectors
}

func (s *Core) Backup() *backup.Coordinator {
	return s.backup
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

// RestoredAtStartup reports the snapshots that were restored during
// the integrity check, for logs and the status surface.
func (s *Core) RestoredAtStartup() []types.RestoredItem {
	return s.restored
}
