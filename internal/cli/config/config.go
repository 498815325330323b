// Package config loads mlsp's configuration file, merging user-defined
// server entries onto the canonical built-in table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/lspfacade/mlsp/internal/serverconfig"
)

// Config is mlsp's top-level configuration.
type Config struct {
	Servers        []serverconfig.Config `mapstructure:"servers"`
	RequestTimeout time.Duration         `mapstructure:"requestTimeout"`
	IdleTimeout    time.Duration         `mapstructure:"idleTimeout"`
	AutoStart      bool                  `mapstructure:"autoStart"`
	LogLevel       string                `mapstructure:"logLevel"`
}

// EnvPrefix is the prefix for every environment variable override, e.g.
// MLSP_REQUESTTIMEOUT, MLSP_LOGLEVEL.
const EnvPrefix = "MLSP"

// Load resolves and reads mlsp's config file, in order: the current working
// directory, the platform user config directory, then the user's home
// directory. The first "mlsp.yaml" or "mlsp.yml" found wins; if none exist,
// defaults apply. Environment variables prefixed with MLSP_ always
// override file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("requestTimeout", 30*time.Second)
	v.SetDefault("idleTimeout", 30*time.Minute)
	v.SetDefault("autoStart", true)
	v.SetDefault("logLevel", "info")

	v.SetConfigName("mlsp")
	v.SetConfigType("yaml")
	for _, dir := range searchPaths() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// searchPaths returns the lookup order: cwd, platform user config dir,
// then home directory.
func searchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "mlsp"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	return paths
}

// ResolvedServers merges the user's configured servers onto the built-in
// table, with user entries overriding built-ins that share an ID.
func (c *Config) ResolvedServers() []serverconfig.Config {
	return serverconfig.Merge(serverconfig.Builtins(), c.Servers)
}

func validate(cfg *Config) error {
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("requestTimeout must be positive, got: %s", cfg.RequestTimeout)
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("idleTimeout must be positive, got: %s", cfg.IdleTimeout)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logLevel must be one of debug, info, warn, error, got: %s", cfg.LogLevel)
	}
	for _, s := range cfg.Servers {
		if s.ID == "" {
			return fmt.Errorf("a server entry is missing its id")
		}
	}
	return nil
}
