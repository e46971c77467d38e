// Package config loads client settings from defaults, an optional TOML file
// and CONVERSE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/backend"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CONVERSE_BASE_URL.
const EnvPrefix = "CONVERSE"

// Config holds the client settings.
type Config struct {
	BaseURL        string        `mapstructure:"base_url" toml:"base_url" validate:"required,url"`
	Mode           string        `mapstructure:"mode" toml:"mode" validate:"oneof=normal rag agent"`
	FlushThreshold int           `mapstructure:"flush_threshold" toml:"flush_threshold" validate:"gt=0"`
	FPS            int           `mapstructure:"fps" toml:"fps" validate:"min=1,max=240"`
	GraceDelay     time.Duration `mapstructure:"grace_delay" toml:"grace_delay" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" toml:"request_timeout" validate:"gte=0"`
	LogLevel       string        `mapstructure:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	LogFile        string        `mapstructure:"log_file" toml:"log_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:        backend.DefaultBaseURL,
		Mode:           string(converse.ModePlain),
		FlushThreshold: converse.DefaultFlushThreshold,
		FPS:            converse.DefaultFrameRate,
		GraceDelay:     converse.DefaultGraceDelay,
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFile:        filepath.Join(os.TempDir(), "converse.log"),
	}
}

// DefaultPath is where the config file lives when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "converse.toml"
	}
	return filepath.Join(dir, "converse", "config.toml")
}

// Load reads the config file at path and applies environment overrides.
// An empty path uses DefaultPath, where a missing file is not an error.
// A missing file at an explicit path is.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("flush_threshold", def.FlushThreshold)
	v.SetDefault("fps", def.FPS)
	v.SetDefault("grace_delay", def.GraceDelay)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	if err := converse.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ChatMode returns Mode as a converse.Mode.
func (c Config) ChatMode() converse.Mode {
	m, err := converse.ParseMode(c.Mode)
	if err != nil {
		return converse.ModePlain
	}
	return m
}

// Level returns LogLevel as a slog level.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Init writes the default settings to path as TOML. It refuses to
// overwrite an existing file.
func Init(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return f.Close()
}
