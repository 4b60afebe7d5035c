package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tiliavir/shiftr/internal/timecalc"
)

// Config is the root configuration for shiftr, stored in
// ~/.shiftr/config.yaml. Every key can be overridden with a SHIFTR_
// environment variable, e.g. SHIFTR_LOG_LEVEL=debug.
type Config struct {
	// DataDir holds the bbolt database. Empty means ~/.shiftr.
	DataDir string `mapstructure:"data_dir"`
	// Timezone is the IANA zone that decides which day a shift counts for.
	// Empty means the local zone.
	Timezone string        `mapstructure:"timezone"`
	Log      LogConfig     `mapstructure:"log"`
	Publish  PublishConfig `mapstructure:"publish"`
	Server   ServerConfig  `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PublishConfig locates the chat API the roster is rendered into.
// An empty APIBase or BotToken logs rosters instead of publishing them.
type PublishConfig struct {
	APIBase  string        `mapstructure:"api_base"`
	BotToken string        `mapstructure:"bot_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Enabled reports whether rosters should go to the chat API.
func (p PublishConfig) Enabled() bool {
	return p.APIBase != "" && p.BotToken != ""
}

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultTimeout   = 10 * time.Second
	DefaultAddr      = "127.0.0.1:8080"
)

// configTemplate is the annotated config written on first run.
const configTemplate = `# shiftr configuration - ~/.shiftr/config.yaml
#
# All settings are optional. Environment variables override this file:
# SHIFTR_TIMEZONE, SHIFTR_LOG_LEVEL, SHIFTR_PUBLISH_BOT_TOKEN, ...

# Directory of the shift database. Empty = ~/.shiftr
data_dir: ""

# IANA time zone deciding which day a shift is counted for,
# e.g. "Europe/Berlin". Empty = local time.
timezone: ""

log:
  # debug, info, warn or error
  level: info
  # console or json
  format: console

# Chat API the live roster message is edited through.
# Leave api_base or bot_token empty to only log roster updates.
publish:
  api_base: ""
  bot_token: ""
  timeout: 10s

# Listen address of "shiftr serve".
server:
  addr: 127.0.0.1:8080
`

// FilePath returns the path to ~/.shiftr/config.yaml.
func FilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".shiftr", "config.yaml"), nil
}

// Load reads the config at path, or ~/.shiftr/config.yaml when path is
// empty. A missing default file is created from the annotated template.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "")
	v.SetDefault("timezone", "")
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("publish.api_base", "")
	v.SetDefault("publish.bot_token", "")
	v.SetDefault("publish.timeout", DefaultTimeout.String())
	v.SetDefault("server.addr", DefaultAddr)

	v.SetEnvPrefix("SHIFTR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		def, err := FilePath()
		if err != nil {
			return nil, err
		}
		if _, statErr := os.Stat(def); errors.Is(statErr, os.ErrNotExist) {
			if writeErr := writeDefault(def); writeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", def, writeErr)
			}
		}
		path = def
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := timecalc.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q: use console or json", c.Log.Format)
	}
	if c.Publish.Timeout <= 0 {
		return fmt.Errorf("publish.timeout must be positive")
	}
	return nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
