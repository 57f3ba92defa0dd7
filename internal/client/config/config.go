// Package config holds the sync client configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/stlauncher/stsync/internal/utils"
)

// Method selects how a pull reconciles the local data directory
type Method string

const (
	MethodAuto            Method = "auto"             // bundle first, incremental on failure
	MethodAutoIncremental Method = "auto-incremental" // incremental first, bundle on failure
	MethodZip             Method = "zip"
	MethodIncremental     Method = "incremental"
)

var Methods = []Method{MethodAuto, MethodAutoIncremental, MethodZip, MethodIncremental}

// Retention decides what happens to a backup snapshot after a successful bundle sync
type Retention string

const (
	RetentionKeepForever     Retention = "keep-forever"
	RetentionKeepN           Retention = "keep-n"
	RetentionDeleteOnSuccess Retention = "delete-on-success"
)

var Retentions = []Retention{RetentionKeepForever, RetentionKeepN, RetentionDeleteOnSuccess}

const (
	DefaultTimeout    = 30 * time.Second
	DefaultBackupKeep = 3
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigDir  = filepath.Join(home, ".stsync")
	DefaultConfigPath = filepath.Join(DefaultConfigDir, "config.yaml")
	DefaultLogFile    = filepath.Join(DefaultConfigDir, "logs", "stsync.log")
)

type Config struct {
	ServerURL       string        `mapstructure:"server_url" yaml:"server_url"`
	DataDir         string        `mapstructure:"data_dir" yaml:"data_dir"`
	Method          Method        `mapstructure:"method" yaml:"method"`
	Backup          bool          `mapstructure:"backup" yaml:"backup"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	BackupRetention Retention     `mapstructure:"backup_retention" yaml:"backup_retention"`
	BackupKeep      int           `mapstructure:"backup_keep" yaml:"backup_keep"`
	Ignore          []string      `mapstructure:"ignore" yaml:"ignore,omitempty"`
}

// Validate normalises the configuration in place and reports the first invalid field
func (c *Config) Validate() error {
	serverURL, err := utils.NormalizeServerURL(c.ServerURL)
	if err != nil {
		return fmt.Errorf("client `server_url`: %w", err)
	}
	c.ServerURL = serverURL

	if c.DataDir == "" {
		detected, err := DetectDataDir(false)
		if err != nil {
			return fmt.Errorf("client `data_dir`: %w", err)
		}
		c.DataDir = detected
	}

	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("client `data_dir`: %w", err)
	}
	c.DataDir = dataDir

	if c.Method == "" {
		c.Method = MethodAuto
	}
	if !slices.Contains(Methods, c.Method) {
		return fmt.Errorf("client `method` must be one of %v, got %q", Methods, c.Method)
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.BackupRetention == "" {
		c.BackupRetention = RetentionKeepForever
	}
	if !slices.Contains(Retentions, c.BackupRetention) {
		return fmt.Errorf("client `backup_retention` must be one of %v, got %q", Retentions, c.BackupRetention)
	}

	if c.BackupRetention == RetentionKeepN {
		if c.BackupKeep == 0 {
			c.BackupKeep = DefaultBackupKeep
		}
		if c.BackupKeep < 1 {
			return fmt.Errorf("client `backup_keep` must be at least 1, got %d", c.BackupKeep)
		}
	}

	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server_url", c.ServerURL),
		slog.String("data_dir", c.DataDir),
		slog.String("method", string(c.Method)),
		slog.Bool("backup", c.Backup),
		slog.Duration("timeout", c.Timeout),
		slog.String("backup_retention", string(c.BackupRetention)),
		slog.Int("backup_keep", c.BackupKeep),
	)
}
