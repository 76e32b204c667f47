package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all console configuration
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	State   StateConfig   `mapstructure:"state"`
	Logs    LogsConfig    `mapstructure:"logs"`
	SSH     SSHConfig     `mapstructure:"ssh"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BackendConfig holds backend connection configuration
type BackendConfig struct {
	URL       string  `mapstructure:"url"`
	APIPrefix string  `mapstructure:"api_prefix"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// StateConfig holds the shared local state database location
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// LogsConfig holds log viewer configuration
type LogsConfig struct {
	DefaultTail int  `mapstructure:"default_tail"`
	Color       bool `mapstructure:"color"`
}

// SSHConfig holds credentials for sftp dataset/cert sources
type SSHConfig struct {
	User           string `mapstructure:"user"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if !os.IsNotExist(err) {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.api_prefix", "/api")
	v.SetDefault("backend.rate_limit", 10.0)
	v.SetDefault("backend.rate_burst", 20)

	// State defaults
	v.SetDefault("state.path", defaultStatePath())

	// Log viewer defaults
	v.SetDefault("logs.default_tail", 100)
	v.SetDefault("logs.color", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func bindEnvVars(v *viper.Viper) {
	// Helper to bind and log errors (BindEnv errors are non-fatal but should be logged)
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("backend.url", "LMX_BACKEND_URL")
	bindEnv("backend.api_prefix", "LMX_API_PREFIX")
	bindEnv("state.path", "LMX_STATE_PATH")
	bindEnv("ssh.user", "LMX_SSH_USER")
	bindEnv("ssh.private_key_file", "LMX_SSH_KEY_FILE")
	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.lmxctl/state.db"
	}
	return filepath.Join(home, ".lmxctl", "state.db")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend URL must be set")
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("backend URL must start with http:// or https://")
	}
	if c.Logs.DefaultTail < 0 {
		return fmt.Errorf("logs.default_tail cannot be negative")
	}
	return nil
}
