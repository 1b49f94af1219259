package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".dashboard"

// Global configuration structure.
type Global struct {
	// Data sources
	PopulationPath string `mapstructure:"population_path" yaml:"population_path"`
	WeatherPath    string `mapstructure:"weather_path" yaml:"weather_path"`
	// Parsing
	XLSXSheet          string `mapstructure:"xlsx_sheet" yaml:"xlsx_sheet"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	TopN       int    `mapstructure:"top_n" yaml:"top_n"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Global {
	return &Global{
		PopulationPath: "./data/pakistan_data.csv",
		WeatherPath:    "./data/pakistan_weather_data.csv",
		TopN:           10,
		ListenAddr:     "127.0.0.1:8080",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Thousands returns the configured thousands separator, or 0 for none.
func (c *Global) Thousands() rune {
	for _, r := range c.ThousandsSeparator {
		return r
	}
	return 0
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values mean info.
func (c *Global) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Validate checks values that would otherwise fail later with a less clear error.
func (c *Global) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("top_n must be >= 0, got %d", c.TopN)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if n := len([]rune(c.ThousandsSeparator)); n > 1 {
		return fmt.Errorf("thousands_separator must be a single character, got %q", c.ThousandsSeparator)
	}
	return nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dashboard/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, dirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("population_path", d.PopulationPath)
	v.SetDefault("weather_path", d.WeatherPath)
	v.SetDefault("xlsx_sheet", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("top_n", d.TopN)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
