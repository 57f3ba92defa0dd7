// Package discovery finds sync servers on the local network.
package discovery

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultPort        = 9999
	DefaultTimeout     = 800 * time.Millisecond
	DefaultConcurrency = 32
	DefaultRadius      = 10
	DefaultMaxHosts    = 64
)

type Config struct {
	Ports       []int         `mapstructure:"ports" yaml:"ports"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Radius      int           `mapstructure:"radius" yaml:"radius"`
	MaxHosts    int           `mapstructure:"max_hosts" yaml:"max_hosts"`
	FullScan    bool          `mapstructure:"full_scan" yaml:"full_scan"`
}

func (c *Config) Validate() error {
	if len(c.Ports) == 0 {
		c.Ports = []int{DefaultPort}
	}
	for _, port := range c.Ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("discovery `ports`: invalid port %d", port)
		}
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Radius < 0 {
		return fmt.Errorf("discovery `radius` must not be negative, got %d", c.Radius)
	}
	if c.Radius == 0 {
		c.Radius = DefaultRadius
	}
	if c.MaxHosts <= 0 {
		c.MaxHosts = DefaultMaxHosts
	}

	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("ports", c.Ports),
		slog.Duration("timeout", c.Timeout),
		slog.Int("concurrency", c.Concurrency),
		slog.Int("radius", c.Radius),
		slog.Int("max_hosts", c.MaxHosts),
		slog.Bool("full_scan", c.FullScan),
	)
}
