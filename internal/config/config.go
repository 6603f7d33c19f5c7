package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/2beens/notesapp/internal/middleware"
	"github.com/2beens/notesapp/internal/notes_box"
	"github.com/2beens/notesapp/internal/storage"

	"github.com/BurntSushi/toml"
)

const (
	defaultStorageKey       = "notes-app-data"
	defaultMemoryMaxEntryKB = 1024
	defaultWebAppURL        = "https://notes-app-lake-two.vercel.app/"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrEmptyKey       = errors.New("storage key must not be empty")
	ErrNoDiskPath     = errors.New("disk storage backend requires storage_disk_path")
	ErrInvalidWebApp  = errors.New("web app url must be an absolute https url")
	ErrMemoryEntry    = errors.New("memory_max_entry_kb cannot hold a single note of maximum size")
	ErrTrustedProxy   = errors.New("invalid trusted proxy")
)

type Config struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Environment   string `toml:"environment"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	// storage
	StorageBackend   string `toml:"storage_backend"`
	StorageKey       string `toml:"storage_key"`
	StorageDiskPath  string `toml:"storage_disk_path"`
	MemoryMaxEntryKB int    `toml:"memory_max_entry_kb"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// http
	AllowedOrigins  []string `toml:"allowed_origins"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
	TrustedProxies  []string `toml:"trusted_proxies"`
	// bot
	WebAppURL      string `toml:"web_app_url"`
	BotMetricsPort string `toml:"bot_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path, picks the table for env, fills defaults
// and validates the result.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}
	return FromToml(&t, env)
}

func FromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for env [%s]: %w", env, err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.StorageBackend == "" {
		c.StorageBackend = storage.BackendDisk
	}
	if c.StorageKey == "" {
		c.StorageKey = defaultStorageKey
	}
	if c.MemoryMaxEntryKB <= 0 {
		c.MemoryMaxEntryKB = defaultMemoryMaxEntryKB
	}
	if c.WebAppURL == "" {
		c.WebAppURL = defaultWebAppURL
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

func (c *Config) Validate() error {
	if !storage.IsValidBackend(c.StorageBackend) {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.StorageBackend)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return ErrEmptyKey
	}
	if c.StorageBackend == storage.BackendDisk && c.StorageDiskPath == "" {
		return ErrNoDiskPath
	}
	// the whole collection is one memory entry, it has to fit at least one full note
	if c.StorageBackend == storage.BackendMemory && c.MemoryMaxEntryKB*1024 < notes_box.MaxEncodedNoteBytes {
		return fmt.Errorf("%w: %d KB < %d bytes", ErrMemoryEntry, c.MemoryMaxEntryKB, notes_box.MaxEncodedNoteBytes)
	}
	if _, err := middleware.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("%w: %s", ErrTrustedProxy, err)
	}
	return ValidateWebAppURL(c.WebAppURL)
}

// ValidateWebAppURL accepts absolute https urls, and plain http only for localhost.
func ValidateWebAppURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWebApp, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidWebApp, rawURL)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if host := u.Hostname(); host == "localhost" || host == "127.0.0.1" {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidWebApp, rawURL)
}
