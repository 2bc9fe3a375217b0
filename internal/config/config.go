// Package config loads pneo's settings from config.toml, PNEO_* environment
// variables and built-in defaults, in decreasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/csheth/pneo/internal/library"
)

const envPrefix = "PNEO"

type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Arxiv   ArxivConfig   `mapstructure:"arxiv"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	Opener  string        `mapstructure:"opener"`
	Log     LogConfig     `mapstructure:"log"`
}

type SearchConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	PageSize          int           `mapstructure:"page_size"`
	Sort              string        `mapstructure:"sort"`
	Debounce          time.Duration `mapstructure:"debounce"`
	MinQueryLength    int           `mapstructure:"min_query_length"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type ArxivConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIInterval time.Duration `mapstructure:"api_interval"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// DatabasePath is the SQLite catalogue of downloaded preprints.
func (s StorageConfig) DatabasePath() string { return filepath.Join(s.DataDir, "pneo.db") }

// RecordsPath is the bbolt archive of search hits.
func (s StorageConfig) RecordsPath() string { return filepath.Join(s.DataDir, "records.db") }

func (s StorageConfig) PreprintDir() string { return filepath.Join(s.DataDir, "preprints") }

func (s StorageConfig) StagingDir() string { return filepath.Join(s.DataDir, "staging") }

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "pneo")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "pneo")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Endpoint:          "https://inspirehep.net/api/literature",
			PageSize:          50,
			Sort:              "mostrecent",
			Debounce:          250 * time.Millisecond,
			MinQueryLength:    3,
			RequestsPerSecond: 3,
		},
		Arxiv: ArxivConfig{
			Endpoint:    "http://export.arxiv.org/api/query",
			APIInterval: 3 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:   20 * time.Second,
			UserAgent: "pneo (https://github.com/csheth/pneo)",
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Opener:  library.DefaultOpener(),
		Log:     LogConfig{Level: "info"},
	}
}

// flatten lists every key with its default so that viper resolves each one
// against the environment individually.
func (c *Config) flatten() map[string]any {
	return map[string]any{
		"search.endpoint":            c.Search.Endpoint,
		"search.page_size":           c.Search.PageSize,
		"search.sort":                c.Search.Sort,
		"search.debounce":            c.Search.Debounce.String(),
		"search.min_query_length":    c.Search.MinQueryLength,
		"search.requests_per_second": c.Search.RequestsPerSecond,
		"arxiv.endpoint":             c.Arxiv.Endpoint,
		"arxiv.api_interval":         c.Arxiv.APIInterval.String(),
		"http.timeout":               c.HTTP.Timeout.String(),
		"http.user_agent":            c.HTTP.UserAgent,
		"storage.data_dir":           c.Storage.DataDir,
		"opener":                     c.Opener,
		"log.level":                  c.Log.Level,
		"log.file":                   c.Log.File,
	}
}

// DefaultPath is where Load looks for config.toml first.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pneo", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pneo", "config.toml")
}

// Load reads configPath, or searches the default locations when it is
// empty. A missing file is not an error; a malformed one is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range Default().flatten() {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(expandPath(configPath))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Search.Endpoint == "":
		return errors.New("config: search.endpoint must not be empty")
	case c.Search.PageSize <= 0:
		return fmt.Errorf("config: search.page_size must be positive, got %d", c.Search.PageSize)
	case c.Search.Debounce <= 0:
		return fmt.Errorf("config: search.debounce must be positive, got %s", c.Search.Debounce)
	case c.Search.MinQueryLength < 1:
		return fmt.Errorf("config: search.min_query_length must be at least 1, got %d", c.Search.MinQueryLength)
	case c.Storage.DataDir == "":
		return errors.New("config: storage.data_dir must not be empty")
	}
	return nil
}

// WriteDefault writes the default configuration to path as TOML. Existing
// files are left alone.
func WriteDefault(path string) error {
	path = expandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tree := map[string]any{}
	for key, value := range Default().flatten() {
		section, name, nested := strings.Cut(key, ".")
		if !nested {
			tree[key] = value
			continue
		}
		table, _ := tree[section].(map[string]any)
		if table == nil {
			table = map[string]any{}
			tree[section] = table
		}
		table[name] = value
	}

	data, err := toml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}
