package server

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/stlauncher/stsync/internal/utils"
	"github.com/ulule/limiter/v3"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 9999
)

type Config struct {
	DataDir      string   `mapstructure:"data_dir" yaml:"data_dir"`
	Host         string   `mapstructure:"host" yaml:"host"`
	Port         int      `mapstructure:"port" yaml:"port"`
	RateLimit    string   `mapstructure:"rate_limit" yaml:"rate_limit"`         // e.g. "1000-M", empty disables
	AccessLogDir string   `mapstructure:"access_log_dir" yaml:"access_log_dir"` // per-device transfer logs, empty disables
	Ignore       []string `mapstructure:"ignore" yaml:"ignore,omitempty"`
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("server `data_dir` is required")
	}

	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("server `data_dir`: %w", err)
	}
	c.DataDir = dataDir

	if c.Host == "" {
		c.Host = DefaultHost
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server `port` must be between 0 and 65535, got %d", c.Port)
	}

	if c.AccessLogDir != "" {
		dir, err := utils.ResolvePath(c.AccessLogDir)
		if err != nil {
			return fmt.Errorf("server `access_log_dir`: %w", err)
		}
		c.AccessLogDir = dir
	}

	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			return fmt.Errorf("server `rate_limit` %q: %w", c.RateLimit, err)
		}
	}

	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("data_dir", c.DataDir),
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("rate_limit", c.RateLimit),
		slog.String("access_log_dir", c.AccessLogDir),
		slog.Any("ignore", c.Ignore),
	)
}
