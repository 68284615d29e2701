package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/quillmind-ai/quillmind/app/core/srv"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	conf.SetConfigBytes(raw)
	conf.path = path

	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	conf.applyDefaults()
	return *conf
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	if err := toml.Unmarshal(c.bytes, cfg); err != nil {
		return err
	}
	return nil
}

type CustomConfig[T any] struct {
	CustomConfig T `toml:"custom_config"`
}

func NewCustomConfigPayload[T any]() CustomConfig[T] {
	return CustomConfig[T]{}
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	c.applyDefaults()
	return c
}

type CoreConfig struct {
	Addr string `toml:"addr"`
	Log  Log    `toml:"log"`

	Sqlite SqliteConfig `toml:"sqlite"`
	Vector VectorConfig `toml:"vector"`
	Ingest IngestConfig `toml:"ingest"`
	Backup BackupConfig `toml:"backup"`

	AI srv.AIConfig `toml:"ai"`

	ObjectStorage ObjectStorageDriver `toml:"object_storage"`

	Security Security `toml:"security"`

	bytes []byte `toml:"-"`
	path  string `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

// Path reports where the config file was loaded from, empty when the
// config came from the environment. The full-archive export bundles
// this file when present.
func (c CoreConfig) Path() string {
	return c.path
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("QUILL_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Sqlite.FromENV()
	c.Vector.FromENV()
	c.Ingest.FromENV()
	c.Backup.FromENV()
	c.AI.FromENV()
	c.ObjectStorage.FromENV()
	c.Security.FromENV()
}

func (c *CoreConfig) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8799"
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "knowledge"
	}
}

// SqliteConfig locates the structured store. The database lives in a
// single file so the backup coordinator can snapshot it with a plain
// copy.
type SqliteConfig struct {
	Path string `toml:"path"`
}

func (c *SqliteConfig) FromENV() {
	c.Path = os.Getenv("QUILL_SQLITE_PATH")
}

// FormatDSN keeps the rollback journal in its default mode. WAL would
// spread live state across side files a single-file snapshot copy
// cannot see.
func (c SqliteConfig) FormatDSN() string {
	return "file:" + c.Path + "?_pragma=busy_timeout(5000)"
}

type VectorConfig struct {
	Path       string `toml:"path"`
	Collection string `toml:"collection"`
}

func (c *VectorConfig) FromENV() {
	c.Path = os.Getenv("QUILL_VECTOR_PATH")
	c.Collection = os.Getenv("QUILL_VECTOR_COLLECTION")
}

type IngestConfig struct {
	WatchDir   string   `toml:"watch_dir"`
	ArchiveDir string   `toml:"archive_dir"`
	Extensions []string `toml:"extensions"` // empty accepts every regular file

	DebounceSeconds  int `toml:"debounce_seconds"` // write-settle window for new files
	MinContentLength int `toml:"min_content_length"`

	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

func (c *IngestConfig) FromENV() {
	c.WatchDir = os.Getenv("QUILL_INGEST_WATCH_DIR")
	c.ArchiveDir = os.Getenv("QUILL_INGEST_ARCHIVE_DIR")
	if exts := os.Getenv("QUILL_INGEST_EXTENSIONS"); exts != "" {
		c.Extensions = strings.Split(exts, ",")
	}
}

type BackupConfig struct {
	RootDir         string `toml:"root_dir"`
	Keep            int    `toml:"keep"`             // snapshots retained per kind
	DebounceSeconds int    `toml:"debounce_seconds"` // quiet window after ingests
}

func (c *BackupConfig) FromENV() {
	c.RootDir = os.Getenv("QUILL_BACKUP_ROOT")
	if keepStr := os.Getenv("QUILL_BACKUP_KEEP"); keepStr != "" {
		if keep, err := strconv.Atoi(keepStr); err == nil {
			c.Keep = keep
		}
	}
}

type ObjectStorageDriver struct {
	Driver string    `toml:"driver"` // "s3" or empty for none
	S3     *S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

func (c *ObjectStorageDriver) FromENV() {
	if os.Getenv("QUILL_S3_BUCKET") == "" {
		return
	}
	c.Driver = "s3"
	c.S3 = &S3Config{
		Bucket:       os.Getenv("QUILL_S3_BUCKET"),
		Region:       os.Getenv("QUILL_S3_REGION"),
		Endpoint:     os.Getenv("QUILL_S3_ENDPOINT"),
		AccessKey:    os.Getenv("QUILL_S3_ACCESS_KEY"),
		SecretKey:    os.Getenv("QUILL_S3_SECRET_KEY"),
		UsePathStyle: os.Getenv("QUILL_S3_PATH_STYLE") == "true",
	}
}

type Security struct {
	MetricsPassword string `toml:"metrics_password"`
}

func (c *Security) FromENV() {
	c.MetricsPassword = os.Getenv("QUILL_METRICS_PASSWORD")
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("QUILL_API_LOG_LEVEL")
	l.Path = os.Getenv("QUILL_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
