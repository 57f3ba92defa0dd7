package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/discovery"
	"github.com/stlauncher/stsync/internal/server"
)

// AppConfig is everything one invocation of the CLI is configured with
type AppConfig struct {
	Server    server.Config    `mapstructure:"server" yaml:"server"`
	Client    config.Config    `mapstructure:"client" yaml:"client"`
	Discovery discovery.Config `mapstructure:"discovery" yaml:"discovery"`
}

// cli owns the viper instance of this process; commands read their settings through it
type cli struct {
	v *viper.Viper
}

func newCLI() *cli {
	v := viper.New()
	setDefaults(v)
	return &cli{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.data_dir", "")
	v.SetDefault("server.host", server.DefaultHost)
	v.SetDefault("server.port", server.DefaultPort)
	v.SetDefault("server.rate_limit", "")
	v.SetDefault("server.access_log_dir", "")
	v.SetDefault("server.ignore", []string{})

	v.SetDefault("client.server_url", "")
	v.SetDefault("client.data_dir", "")
	v.SetDefault("client.method", string(config.MethodAuto))
	v.SetDefault("client.backup", true)
	v.SetDefault("client.timeout", config.DefaultTimeout)
	v.SetDefault("client.backup_retention", string(config.RetentionKeepForever))
	v.SetDefault("client.backup_keep", config.DefaultBackupKeep)
	v.SetDefault("client.ignore", []string{})

	v.SetDefault("discovery.ports", []int{discovery.DefaultPort})
	v.SetDefault("discovery.timeout", discovery.DefaultTimeout)
	v.SetDefault("discovery.concurrency", discovery.DefaultConcurrency)
	v.SetDefault("discovery.radius", discovery.DefaultRadius)
	v.SetDefault("discovery.max_hosts", discovery.DefaultMaxHosts)
	v.SetDefault("discovery.full_scan", false)
}

// loadConfig reads .env, the config file and STSYNC_* environment variables
func (c *cli) loadConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if flag := cmd.Flag("config"); flag != nil && flag.Changed {
		c.v.SetConfigFile(flag.Value.String())
	} else {
		c.v.AddConfigPath(config.DefaultConfigDir)
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
	}

	if err := c.v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", c.v.ConfigFileUsed(), err)
		}
	}

	c.v.SetEnvPrefix("STSYNC")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	return nil
}

// bindFlags maps command flags onto config keys. Only flags the user set take effect.
func (c *cli) bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := c.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// appConfig decodes the merged settings. Sections are validated by the commands that use them.
func (c *cli) appConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := c.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
