package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for profilematch.
type Config struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Index     IndexConfig     `yaml:"index"`
	Match     MatchConfig     `yaml:"match"`
	Sync      SyncConfig      `yaml:"sync"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ExtractorConfig holds feature extractor configuration.
type ExtractorConfig struct {
	Provider       string `yaml:"provider"`    // "http", "mock"
	BaseURL        string `yaml:"base_url"`    // inference server endpoint
	Model          string `yaml:"model"`       // e.g. "mobilenet_v2"
	APIKeyEnv      string `yaml:"api_key_env"` // environment variable holding the API key (optional)
	Dimension      int    `yaml:"dimension"`
	InputSize      int    `yaml:"input_size"` // square input geometry in pixels
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IndexConfig holds corpus indexing configuration.
type IndexConfig struct {
	Includes   []string `yaml:"includes"`
	Excludes   []string `yaml:"excludes"`
	StorePath  string   `yaml:"store_path"`  // embedding store JSON file, relative to the root dir
	FlushEvery int      `yaml:"flush_every"` // new records between durable flushes
}

// MatchConfig holds similarity matching configuration.
type MatchConfig struct {
	TopK            int     `yaml:"top_k"`
	HighConfidence  float64 `yaml:"high_confidence"`   // presentation threshold for live comparison
	CropFraction    float64 `yaml:"crop_fraction"`     // central square fraction of the shorter frame dimension
	FrameIntervalMS int     `yaml:"frame_interval_ms"` // minimum delay between comparison passes
}

// SyncConfig holds exemplar store synchronization configuration.
type SyncConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	PollSeconds int    `yaml:"poll_seconds"`
	DBPath      string `yaml:"db_path"` // local exemplar cache, relative to the root dir
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // "prod", "dev", "local"
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			Provider:       "http",
			BaseURL:        "http://localhost:8500",
			Model:          "mobilenet_v2",
			APIKeyEnv:      "PROFILEMATCH_API_KEY",
			Dimension:      1024,
			InputSize:      224,
			TimeoutSeconds: 120,
		},
		Index: IndexConfig{
			Includes:   []string{"**/*.jpg", "**/*.jpeg", "**/*.png", "**/*.webp"},
			Excludes:   []string{"**/node_modules/**", "**/.git/**", "**/.profilematch/**"},
			StorePath:  "embeddings.json",
			FlushEvery: 20,
		},
		Match: MatchConfig{
			TopK:            5,
			HighConfidence:  0.85,
			CropFraction:    0.5,
			FrameIntervalMS: 250,
		},
		Sync: SyncConfig{
			Enabled:     false,
			APIKeyEnv:   "PROFILEMATCH_SYNC_KEY",
			PollSeconds: 5,
			DBPath:      ".profilematch/exemplars.db",
		},
		Logging: LoggingConfig{
			Env:   "dev",
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for profilematch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try profilematch.yaml in the directory
	path := filepath.Join(dir, "profilematch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .profilematch/config.yaml
	path = filepath.Join(dir, ".profilematch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the path to the embedding store for a root directory.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Index.StorePath) {
		return c.Index.StorePath
	}
	return filepath.Join(dir, c.Index.StorePath)
}

// ExemplarDBPath returns the path to the local exemplar database.
func (c *Config) ExemplarDBPath(dir string) string {
	if filepath.IsAbs(c.Sync.DBPath) {
		return c.Sync.DBPath
	}
	return filepath.Join(dir, c.Sync.DBPath)
}

// EnsureDataDir ensures the .profilematch directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".profilematch"), 0755)
}
