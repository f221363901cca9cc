// Package config loads the configuration record consumed by the rest of
// the system. It is deliberately thin: Local_Jira treats configuration
// as an external collaborator and this package is the
// plumbing that produces the record, not policy the core depends on.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/s-d-m/local-jira/internal/model"
)

// DefaultConfigPath returns ~/.config/local-jira/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "local-jira", "config.yaml")
}

// defaultMaxAttachmentBytes bounds how large an attachment blob this
// cache will store locally. The remote tenant enforces no such limit,
// so attachments above this size stay metadata-only: a content fetch
// for one is rejected rather than filling the database unbounded.
const defaultMaxAttachmentBytes = 25 * 1024 * 1024

func defaultConfig() *model.Config {
	return &model.Config{
		DatabasePath:          filepath.Join(".", "local-jira.db"),
		SyncIntervalSeconds:   300,
		MaxConcurrentRequests: 4,
		MaxAttachmentBytes:    defaultMaxAttachmentBytes,
	}
}

// Load reads configuration from path using Viper. A missing file yields
// the defaults of defaultConfig rather than an error, matching the prior
// design's "no config yet" fallback.
func Load(path string) (*model.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("sync_interval_seconds", 300)
	v.SetDefault("max_concurrent_requests", 4)
	v.SetDefault("database_path", filepath.Join(".", "local-jira.db"))
	v.SetDefault("max_attachment_bytes", defaultMaxAttachmentBytes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.SyncIntervalSeconds <= 0 {
		cfg.SyncIntervalSeconds = 300
	}
	if cfg.MaxConcurrentRequests <= 0 {
		cfg.MaxConcurrentRequests = 4
	}
	if cfg.MaxAttachmentBytes <= 0 {
		cfg.MaxAttachmentBytes = defaultMaxAttachmentBytes
	}

	return cfg, nil
}
