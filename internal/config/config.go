// Package config provides configuration management for quotesync.
// It supports a YAML config file, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Remote kinds.
const (
	RemoteHTTP = "http"
	RemoteS3   = "s3"
	RemoteNone = "none"
)

// Config represents the complete quotesync configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects the local persister.
type StorageConfig struct {
	// Driver is sqlite or json
	Driver string `yaml:"driver"`
	// Path may start with ~ for the home directory
	Path string `yaml:"path"`
}

// RemoteConfig selects and configures the remote adapter.
type RemoteConfig struct {
	// Kind is http, s3 or none
	Kind     string        `yaml:"kind"`
	BaseURL  string        `yaml:"base_url"`
	Resource string        `yaml:"resource"`
	UserID   int           `yaml:"user_id"`
	Limit    int           `yaml:"limit"`
	Window   int           `yaml:"window"`
	Category string        `yaml:"category"`
	Timeout  time.Duration `yaml:"timeout"`
	S3       S3Config      `yaml:"s3"`
}

// S3Config holds the bucket settings for the s3 remote.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// SyncConfig holds scheduler settings.
type SyncConfig struct {
	Interval    time.Duration `yaml:"interval"`
	PushTimeout time.Duration `yaml:"push_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Dir returns the quotesync home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quotesync"
	}
	return filepath.Join(home, ".quotesync")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(Dir(), "quotes.db"),
		},
		Remote: RemoteConfig{
			Kind:     RemoteHTTP,
			BaseURL:  "https://jsonplaceholder.typicode.com",
			Resource: "/posts",
			UserID:   9,
			Limit:    5,
			Window:   5,
			Category: "Server",
			Timeout:  10 * time.Second,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Sync: SyncConfig{
			Interval:    30 * time.Second,
			PushTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

const configFileName = "config.yaml"

// FilePath returns the config file path, honoring $QUOTESYNC_CONFIG.
func FilePath() string {
	if v := os.Getenv("QUOTESYNC_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(Dir(), configFileName)
}

// Load loads the configuration from FilePath over the defaults. A missing
// file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	// #nosec G304 - path comes from the user's environment or home directory
	data, err := os.ReadFile(FilePath())
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvironment()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvironment()
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to FilePath.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// config may hold S3 keys
	return os.WriteFile(path, data, 0o600)
}

// applyEnvironment applies QUOTESYNC_* overrides.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("QUOTESYNC_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("QUOTESYNC_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}

	if v := os.Getenv("QUOTESYNC_REMOTE_KIND"); v != "" {
		c.Remote.Kind = v
	}
	if v := os.Getenv("QUOTESYNC_REMOTE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("QUOTESYNC_REMOTE_USER_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Remote.UserID = n
		}
	}
	if v := os.Getenv("QUOTESYNC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Remote.Timeout = d
		}
	}

	if v := os.Getenv("QUOTESYNC_S3_BUCKET"); v != "" {
		c.Remote.S3.Bucket = v
	}
	if v := os.Getenv("QUOTESYNC_S3_REGION"); v != "" {
		c.Remote.S3.Region = v
	}
	if v := os.Getenv("QUOTESYNC_S3_ENDPOINT"); v != "" {
		c.Remote.S3.Endpoint = v
	}
	if v := os.Getenv("QUOTESYNC_S3_PREFIX"); v != "" {
		c.Remote.S3.Prefix = v
	}
	if v := os.Getenv("QUOTESYNC_S3_PATH_STYLE"); v != "" {
		c.Remote.S3.UsePathStyle = parseBool(v)
	}

	if v := os.Getenv("QUOTESYNC_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.Interval = d
		}
	}

	if v := os.Getenv("QUOTESYNC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("QUOTESYNC_LOG_JSON"); v != "" {
		c.Log.JSON = parseBool(v)
	}
}

// Validate checks enum values and durations.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverSQLite, DriverJSON:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path: required"))
	}

	switch c.Remote.Kind {
	case RemoteHTTP:
		if c.Remote.BaseURL == "" {
			errs = append(errs, errors.New("remote.base_url: required for http remote"))
		}
		if c.Remote.Limit <= 0 || c.Remote.Window <= 0 {
			errs = append(errs, errors.New("remote.limit and remote.window must be positive"))
		}
	case RemoteS3:
		if c.Remote.S3.Bucket == "" {
			errs = append(errs, errors.New("remote.s3.bucket: required for s3 remote"))
		}
	case RemoteNone:
	default:
		errs = append(errs, fmt.Errorf("remote.kind: unknown kind %q", c.Remote.Kind))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}

	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync.interval must be positive"))
	}
	if c.Sync.PushTimeout <= 0 {
		errs = append(errs, errors.New("sync.push_timeout must be positive"))
	}

	return errors.Join(errs...)
}

// StoragePath returns Storage.Path with a leading ~ expanded.
func (c *Config) StoragePath() string {
	return expandHome(c.Storage.Path)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}
