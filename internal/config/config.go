package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the user-facing configuration, loaded from a TOML file.
type Config struct {
	PlayCommand           string `toml:"play_command"`
	DownloadPath          string `toml:"download_path"`
	DBPath                string `toml:"db_path"`
	SimultaneousDownloads int    `toml:"simultaneous_downloads"`
	MaxSyncWorkers        int    `toml:"max_sync_workers"`
	MaxDownloadRetries    int    `toml:"max_download_retries"`
	FeedTimeoutSeconds    int    `toml:"feed_timeout_seconds"`
}

// DefaultPath returns the default config file location under the
// OS config directory. Failure here is the one fatal startup error:
// without it we have nowhere to look for configuration at all.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not identify the default configuration directory: %w", err)
	}
	return filepath.Join(configDir, "shellcast", "config.toml"), nil
}

// Load reads the config file at path. A missing file is not an error;
// defaults are applied to any field left unset.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

func (c *Config) applyDefaults(configDir string) {
	if c.PlayCommand == "" {
		c.PlayCommand = "mpv %s"
	}
	if c.DownloadPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DownloadPath = filepath.Join(home, "Podcasts")
		} else {
			c.DownloadPath = "Podcasts"
		}
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(configDir, "shellcast.db")
	}
	if c.SimultaneousDownloads <= 0 {
		c.SimultaneousDownloads = 3
	}
	if c.MaxSyncWorkers <= 0 {
		c.MaxSyncWorkers = 8
	}
	if c.MaxDownloadRetries <= 0 {
		c.MaxDownloadRetries = 3
	}
	if c.FeedTimeoutSeconds <= 0 {
		c.FeedTimeoutSeconds = 30
	}
}
