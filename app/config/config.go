package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. SKYMOCK_SERVER_ADDR.
const EnvPrefix = "SKYMOCK"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Feed     FeedConfig    `yaml:"feed"`
	Storage  StorageConfig `yaml:"storage"`
	Avatar   AvatarConfig  `yaml:"avatar"`
	Ingest   IngestConfig  `yaml:"ingest"`
	Export   ExportConfig  `yaml:"export"`
	Picker   PickerConfig  `yaml:"picker"`
	Location string        `yaml:"location" split_words:"true"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" split_words:"true" validate:"required"`
	StaticDir   string `yaml:"static_dir" split_words:"true"`
	AnalyticsID string `yaml:"analytics_id" envconfig:"ANALYTICS_ID"`
}

type FeedConfig struct {
	Host      string        `yaml:"host" split_words:"true" validate:"required,url"`
	PageSize  int64         `yaml:"page_size" split_words:"true" validate:"gte=1,lte=100"`
	UserAgent string        `yaml:"user_agent" split_words:"true"`
	Timeout   time.Duration `yaml:"timeout" split_words:"true" validate:"gte=0"`
}

type StorageConfig struct {
	Path     string `yaml:"path" split_words:"true"`
	InMemory bool   `yaml:"in_memory" split_words:"true"`
}

type AvatarConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" split_words:"true" validate:"gte=0"`
	MaxBytes int64         `yaml:"max_bytes" split_words:"true" validate:"gt=0"`
}

type IngestConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" split_words:"true" validate:"gt=0"`
}

type ExportConfig struct {
	Scale       int           `yaml:"scale" split_words:"true" validate:"gte=1,lte=4"`
	SettleDelay time.Duration `yaml:"settle_delay" split_words:"true" validate:"gte=0"`
}

type PickerConfig struct {
	PageSize int           `yaml:"page_size" split_words:"true" validate:"gte=1"`
	Debounce time.Duration `yaml:"debounce" split_words:"true" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "static",
		},
		Feed: FeedConfig{
			Host:      "https://public.api.bsky.app",
			PageSize:  20,
			UserAgent: "BlueskyPostGenerator/1.0",
		},
		Storage: StorageConfig{
			Path: "data/badger",
		},
		Avatar: AvatarConfig{
			CacheTTL: time.Hour,
			MaxBytes: 5 << 20,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 5 << 20,
		},
		Export: ExportConfig{
			Scale:       2,
			SettleDelay: 100 * time.Millisecond,
		},
		Picker: PickerConfig{
			PageSize: 5,
			Debounce: time.Second,
		},
		Location: "Local",
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file at path and SKYMOCK_* environment variables, in that
// order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if _, err := c.TimeLocation(); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	return nil
}

// TimeLocation resolves the configured display location.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" || c.Location == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Location)
}
