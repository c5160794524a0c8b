// Package config loads Affentanz configuration from file, .env and
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pepperonas/Affentanz/internal/db"
	"github.com/pepperonas/Affentanz/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// AFFENTANZ_PLAYBACK_ACTION_DELAY.
const EnvPrefix = "AFFENTANZ"

// Config is the complete application configuration.
type Config struct {
	Global    GlobalConfig    `mapstructure:"global"`
	Database  db.Config       `mapstructure:"database"`
	Logging   logging.Config  `mapstructure:"logging"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Workflows WorkflowsConfig `mapstructure:"workflows"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// GlobalConfig holds application directories.
type GlobalConfig struct {
	// DataDir holds the database and other state.
	DataDir string `mapstructure:"data_dir"`

	// ConfigDir holds config.yaml and user workflows.
	ConfigDir string `mapstructure:"config_dir"`
}

// PlaybackConfig controls the playback engine.
type PlaybackConfig struct {
	// ActionDelay is the pause between consecutive actions.
	ActionDelay time.Duration `mapstructure:"action_delay"`

	// Backend selects the desktop adapters: "robotgo" or "dry-run".
	Backend string `mapstructure:"backend"`
}

// OCRConfig controls text recognition for text conditions.
type OCRConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Language is a tesseract language list such as "eng" or "deu+eng".
	Language string `mapstructure:"language"`
}

// WorkflowsConfig controls where workflows live.
type WorkflowsConfig struct {
	// Dir is where new workflows are saved and searched first after the
	// project directory.
	Dir string `mapstructure:"dir"`

	// RecentLimit caps the recently opened workflows list.
	RecentLimit int `mapstructure:"recent_limit"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	// Addr enables the exporter when set, e.g. "127.0.0.1:9464".
	Addr string `mapstructure:"addr"`
}

// TUIConfig controls the run monitor.
type TUIConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Theme is "default" or "high-contrast".
	Theme string `mapstructure:"theme"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	configDir := DefaultConfigDir()
	dataDir := DefaultDataDir()
	return &Config{
		Global: GlobalConfig{
			DataDir:   dataDir,
			ConfigDir: configDir,
		},
		Database: db.Config{
			Path:        filepath.Join(dataDir, "affentanz.db"),
			BusyTimeout: 5 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
		Playback: PlaybackConfig{
			ActionDelay: 100 * time.Millisecond,
			Backend:     "robotgo",
		},
		OCR: OCRConfig{
			Enabled:  true,
			Language: "eng",
		},
		Workflows: WorkflowsConfig{
			Dir:         filepath.Join(configDir, "workflows"),
			RecentLimit: 10,
		},
		TUI: TUIConfig{
			RefreshInterval: 100 * time.Millisecond,
			Theme:           "default",
		},
	}
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/affentanz or
// ~/.config/affentanz.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "affentanz")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".affentanz")
	}
	return filepath.Join(home, ".config", "affentanz")
}

// DefaultDataDir returns $XDG_DATA_HOME/affentanz or
// ~/.local/share/affentanz.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "affentanz")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".affentanz")
	}
	return filepath.Join(home, ".local", "share", "affentanz")
}

// Load reads configuration. Sources, lowest precedence first: defaults,
// the config file, a .env file in the working directory, and AFFENTANZ_*
// environment variables. An empty path looks for config.yaml in the default
// config directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	logger := logging.Component("config")
	loadDotEnv(logger)

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(expandHome(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("config loaded")
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Playback.ActionDelay < 0 {
		errs = append(errs, fmt.Errorf("playback.action_delay must be >= 0, got %s", c.Playback.ActionDelay))
	}
	if strings.TrimSpace(c.Playback.Backend) == "" {
		errs = append(errs, errors.New("playback.backend is required"))
	}
	if c.Workflows.RecentLimit < 1 {
		errs = append(errs, fmt.Errorf("workflows.recent_limit must be >= 1, got %d", c.Workflows.RecentLimit))
	}
	if c.TUI.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("tui.refresh_interval must be > 0, got %s", c.TUI.RefreshInterval))
	}
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Global.DataDir = expandHome(c.Global.DataDir)
	c.Global.ConfigDir = expandHome(c.Global.ConfigDir)
	if c.Database.Path != ":memory:" {
		c.Database.Path = expandHome(c.Database.Path)
	}
	c.Workflows.Dir = expandHome(c.Workflows.Dir)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("global.data_dir", d.Global.DataDir)
	v.SetDefault("global.config_dir", d.Global.ConfigDir)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.busy_timeout", d.Database.BusyTimeout)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.enable_caller", d.Logging.EnableCaller)
	v.SetDefault("playback.action_delay", d.Playback.ActionDelay)
	v.SetDefault("playback.backend", d.Playback.Backend)
	v.SetDefault("ocr.enabled", d.OCR.Enabled)
	v.SetDefault("ocr.language", d.OCR.Language)
	v.SetDefault("workflows.dir", d.Workflows.Dir)
	v.SetDefault("workflows.recent_limit", d.Workflows.RecentLimit)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("tui.refresh_interval", d.TUI.RefreshInterval)
	v.SetDefault("tui.theme", d.TUI.Theme)
}

func loadDotEnv(logger zerolog.Logger) {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg("failed to load .env")
		return
	}
	logger.Debug().Msg("loaded environment from .env")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
