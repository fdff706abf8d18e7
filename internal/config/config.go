// Package config resolves the sandpile run configuration from defaults, an
// optional YAML file, command-line flags and the positional
// [width] [height] [period-ms] arguments, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ErrInvalidArgs marks malformed positional arguments.
var ErrInvalidArgs = errors.New("invalid arguments")

// UI names accepted by Config.UI.
const (
	UITerm     = "term"
	UIGUI      = "gui"
	UIHeadless = "headless"
)

// Config is the full run configuration.
type Config struct {
	// Width and Height are the grid dimensions in cells.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// PeriodMs is the initial tick period in milliseconds.
	PeriodMs int `yaml:"period_ms"`
	// Seed drives grain injection; 0 picks one from the clock.
	Seed int64 `yaml:"seed"`
	// UI selects the driver: "term", "gui" or "headless".
	UI string `yaml:"ui"`
	// Scale is the GUI tile size in pixels.
	Scale int `yaml:"scale"`

	Log      LogConfig      `yaml:"log"`
	Sinks    SinkConfig     `yaml:"sinks"`
	Headless HeadlessConfig `yaml:"headless"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File receives log output; empty means stderr for the headless driver
	// and nowhere for the screen drivers.
	File string `yaml:"file"`
}

// SinkConfig enables the optional cascade consumers.
type SinkConfig struct {
	EventLog string `yaml:"event_log"`
	IndexDB  string `yaml:"index_db"`
	Observe  string `yaml:"observe"`
	Audio    bool   `yaml:"audio"`
}

// HeadlessConfig tunes the headless driver.
type HeadlessConfig struct {
	// Ticks stops the run after this many ticks; 0 runs until interrupted.
	Ticks       uint64        `yaml:"ticks"`
	ReportEvery time.Duration `yaml:"report_every"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Width:    10,
		Height:   10,
		PeriodMs: 10,
		UI:       UITerm,
		Scale:    16,
		Log:      LogConfig{Level: "info"},
		Headless: HeadlessConfig{ReportEvery: 5 * time.Second},
	}
}

// Period returns the initial tick period.
func (c *Config) Period() time.Duration {
	return time.Duration(c.PeriodMs) * time.Millisecond
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&c.UI, "ui", c.UI, "display driver: term, gui or headless")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "injection seed (0 = from clock)")
	fs.IntVar(&c.Scale, "scale", c.Scale, "GUI tile size in pixels")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level: error, warn, info, debug, trace")
	fs.StringVar(&c.Log.File, "log-file", c.Log.File, "write logs to this file")
	fs.StringVar(&c.Sinks.EventLog, "event-log", c.Sinks.EventLog, "directory for compressed cascade logs")
	fs.StringVar(&c.Sinks.IndexDB, "index-db", c.Sinks.IndexDB, "sqlite file indexing closed cascades")
	fs.StringVar(&c.Sinks.Observe, "observe", c.Sinks.Observe, "serve the websocket observer on this address")
	fs.BoolVar(&c.Sinks.Audio, "audio", c.Sinks.Audio, "click on every closed cascade")
	fs.Uint64Var(&c.Headless.Ticks, "ticks", c.Headless.Ticks, "stop after this many ticks (0 = run forever)")
	fs.DurationVar(&c.Headless.ReportEvery, "report-every", c.Headless.ReportEvery, "headless status interval")
}

// LoadFile overlays the YAML file at path onto c after validating it.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := validateYAML(raw); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ApplyArgs parses the positional [width] [height] [period-ms] arguments.
// Missing trailing arguments keep their current values.
func (c *Config) ApplyArgs(args []string) error {
	if len(args) > 3 {
		return fmt.Errorf("%w: expected at most 3 arguments, got %d", ErrInvalidArgs, len(args))
	}
	if len(args) > 0 {
		v, err := parsePositive("width", args[0])
		if err != nil {
			return err
		}
		c.Width = v
	}
	if len(args) > 1 {
		v, err := parsePositive("height", args[1])
		if err != nil {
			return err
		}
		c.Height = v
	}
	if len(args) > 2 {
		v, err := strconv.Atoi(args[2])
		if err != nil || v < 0 {
			return fmt.Errorf("%w: period %q must be a non-negative integer", ErrInvalidArgs, args[2])
		}
		c.PeriodMs = v
	}
	return nil
}

// Resolve layers the config file, the explicitly set flags of fs and the
// positional args over c, then validates the result.
func (c *Config) Resolve(fs *pflag.FlagSet, path string, args []string) error {
	changed := map[string]string{}
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) { changed[f.Name] = f.Value.String() })
	}
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	if err := c.ApplyArgs(args); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks the resolved configuration and fills the clock seed.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidArgs, c.Width, c.Height)
	}
	if c.PeriodMs < 0 {
		return fmt.Errorf("%w: period must be non-negative, got %d", ErrInvalidArgs, c.PeriodMs)
	}
	switch c.UI {
	case UITerm, UIGUI, UIHeadless:
	default:
		return fmt.Errorf("unknown ui %q", c.UI)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %d", c.Scale)
	}
	if c.Headless.ReportEvery <= 0 {
		c.Headless.ReportEvery = 5 * time.Second
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return nil
}

func parsePositive(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s %q must be a positive integer", ErrInvalidArgs, name, raw)
	}
	return v, nil
}
