// Package config provides configuration management for the harness tooling
// using Viper for loading from files, environment variables, and command-line
// flags.
//
// Configuration files are YAML (.harness.yml by default). Environment
// variables override file values with the HARNESS_ prefix, and flags bound by
// the cmd package override both.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/logging"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = ".harness.yml"

// Stabilization modes accepted in stabilize.mode.
const (
	ModePlain   = "plain"
	ModeVirtual = "virtual"
	ModeAsync   = "async"
)

type Config struct {
	Stabilize StabilizeConfig `mapstructure:"stabilize" yaml:"stabilize"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Bench     BenchConfig     `mapstructure:"bench" yaml:"bench"`
}

type StabilizeConfig struct {
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	FlushLimit   int           `mapstructure:"flush_limit" yaml:"flush_limit"`
	OutsideDelay time.Duration `mapstructure:"outside_delay" yaml:"outside_delay"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	Bin            string        `mapstructure:"bin" yaml:"bin"`
	ControlURL     string        `mapstructure:"control_url" yaml:"control_url"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
	Fixture string `mapstructure:"fixture" yaml:"fixture"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type BenchConfig struct {
	Runs    int `mapstructure:"runs" yaml:"runs"`
	Buttons int `mapstructure:"buttons" yaml:"buttons"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Stabilize: StabilizeConfig{
			Mode:         ModePlain,
			FlushLimit:   20,
			OutsideDelay: 10 * time.Millisecond,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 800,
			Timeout:        30 * time.Second,
		},
		Server: ServerConfig{
			Host:    "localhost",
			Port:    8090,
			Fixture: "sliders",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Backend: "slog",
		},
		Bench: BenchConfig{
			Runs:    5,
			Buttons: 100,
		},
	}
}

// SetDefaults registers every default on v so unset keys unmarshal to them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("stabilize.mode", d.Stabilize.Mode)
	v.SetDefault("stabilize.flush_limit", d.Stabilize.FlushLimit)
	v.SetDefault("stabilize.outside_delay", d.Stabilize.OutsideDelay)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("browser.control_url", d.Browser.ControlURL)
	v.SetDefault("browser.viewport_width", d.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", d.Browser.ViewportHeight)
	v.SetDefault("browser.timeout", d.Browser.Timeout)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.fixture", d.Server.Fixture)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.backend", d.Logging.Backend)
	v.SetDefault("bench.runs", d.Bench.Runs)
	v.SetDefault("bench.buttons", d.Bench.Buttons)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError("failed to decode configuration", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	switch c.Stabilize.Mode {
	case ModePlain, ModeVirtual, ModeAsync:
	default:
		return errors.NewConfigError(fmt.Sprintf("stabilize.mode %q must be one of plain, virtual, async", c.Stabilize.Mode), nil)
	}
	if c.Stabilize.FlushLimit < 1 {
		return errors.NewConfigError(fmt.Sprintf("stabilize.flush_limit %d must be positive", c.Stabilize.FlushLimit), nil)
	}
	if c.Stabilize.OutsideDelay < 0 {
		return errors.NewConfigError("stabilize.outside_delay must not be negative", nil)
	}

	// 0 lets the OS pick a port
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewConfigError(fmt.Sprintf("server.port %d is not in valid range 0-65535", c.Server.Port), nil)
	}
	if strings.ContainsAny(c.Server.Host, ";&|$`()<>\"'\\ ") {
		return errors.NewConfigError(fmt.Sprintf("server.host %q contains invalid characters", c.Server.Host), nil)
	}

	if c.Browser.ControlURL != "" {
		if err := validateControlURL(c.Browser.ControlURL); err != nil {
			return err
		}
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return errors.NewConfigError("browser viewport must not be negative", nil)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.NewConfigError("logging.level", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.NewConfigError(fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format), nil)
	}
	switch c.Logging.Backend {
	case "slog", "zap":
	default:
		return errors.NewConfigError(fmt.Sprintf("logging.backend %q must be slog or zap", c.Logging.Backend), nil)
	}

	if c.Bench.Runs < 1 || c.Bench.Buttons < 1 {
		return errors.NewConfigError("bench.runs and bench.buttons must be positive", nil)
	}

	return nil
}

// validateControlURL accepts a DevTools endpoint: ws or wss with a host,
// or the http address of a browser that serves /json/version.
func validateControlURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.NewConfigError("browser.control_url is not a URL", err)
	}
	switch parsed.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return errors.NewConfigError(fmt.Sprintf("browser.control_url scheme %q must be ws, wss, http or https", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return errors.NewConfigError("browser.control_url must have a host", nil)
	}
	if strings.ContainsAny(raw, " \n\r") {
		return errors.NewConfigError("browser.control_url contains whitespace", nil)
	}
	return nil
}

// LoggerConfig converts the logging section into a logging.LoggerConfig.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Logging.Level)
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Logging.Format
	lc.Backend = c.Logging.Backend
	return lc
}

// WriteFile marshals the configuration as YAML to path.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.NewConfigError("failed to encode configuration", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewConfigError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// Watch reloads the configuration whenever the file backing v changes.
// onChange receives the new configuration, or the error that rejected it.
func Watch(v *viper.Viper, onChange func(*Config, error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var config Config
		if err := v.Unmarshal(&config); err != nil {
			onChange(nil, errors.NewConfigError("failed to decode configuration", err))
			return
		}
		if err := config.Validate(); err != nil {
			onChange(nil, err)
			return
		}
		onChange(&config, nil)
	})
	v.WatchConfig()
}
