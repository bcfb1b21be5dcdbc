// Package config loads statusgen configuration: the main config file via
// viper, qualification rules from TOML, and source declarations from YAML.
// Credentials come from the environment only and are never written to disk.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete statusgen configuration
type Config struct {
	Version int           `json:"version" mapstructure:"version"`
	Window  WindowConfig  `json:"window" mapstructure:"window"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Fetch   FetchConfig   `json:"fetch" mapstructure:"fetch"`
	Report  ReportConfig  `json:"report" mapstructure:"report"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// RulesPath and SourcesPath point at the optional rules.toml and
	// sources.yaml files, relative to the config directory.
	RulesPath   string `json:"rulesPath" mapstructure:"rulesPath"`
	SourcesPath string `json:"sourcesPath" mapstructure:"sourcesPath"`
}

// WindowConfig contains the reporting window defaults
type WindowConfig struct {
	Days int `json:"days" mapstructure:"days"`
}

// CacheConfig contains response cache configuration
type CacheConfig struct {
	TTLSeconds           int    `json:"ttlSeconds" mapstructure:"ttlSeconds"`
	SweepIntervalSeconds int    `json:"sweepIntervalSeconds" mapstructure:"sweepIntervalSeconds"`
	Backend              string `json:"backend" mapstructure:"backend"` // "memory" or "sqlite"
	Path                 string `json:"path" mapstructure:"path"`
}

// FetchConfig contains outbound fetch tuning
type FetchConfig struct {
	HistoryWorkers int `json:"historyWorkers" mapstructure:"historyWorkers"`
	ChunkSize      int `json:"chunkSize" mapstructure:"chunkSize"`
	TimeoutSeconds int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// ReportConfig contains report assembly configuration
type ReportConfig struct {
	MaxSummarized int    `json:"maxSummarized" mapstructure:"maxSummarized"`
	Model         string `json:"model" mapstructure:"model"`
	Format        string `json:"format" mapstructure:"format"`
}

// ServerConfig contains the serve daemon configuration
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
	// TokenHash is a bcrypt hash of the API token; empty disables auth.
	TokenHash string `json:"tokenHash" mapstructure:"tokenHash"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Window:  WindowConfig{Days: 7},
		Cache: CacheConfig{
			TTLSeconds:           24 * 60 * 60,
			SweepIntervalSeconds: 2 * 60 * 60,
			Backend:              "memory",
			Path:                 ".statusgen/cache.db",
		},
		Fetch: FetchConfig{
			HistoryWorkers: 8,
			ChunkSize:      100,
			TimeoutSeconds: 30,
		},
		Report: ReportConfig{
			MaxSummarized: 50,
			Model:         "gpt-4o-mini",
			Format:        "md",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8390",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		RulesPath:   "rules.toml",
		SourcesPath: "sources.yaml",
	}
}

// LoadConfig reads config from <dir>/.statusgen/config.json, falling back to
// defaults when the file does not exist.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, ".statusgen"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
