// Package config loads the YAML configuration file of the stencil command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/life"
	"github.com/exascience/stencil/partition"
	"github.com/exascience/stencil/transport"
)

// Config holds all settings of the stencil command. Command-line flags
// override the values of the file.
type Config struct {
	Transport TransportConfig `yaml:"transport"`

	// Life configures performance runs, LifeDemo configures demo runs.
	Life     LifeConfig `yaml:"life"`
	LifeDemo LifeConfig `yaml:"life_demo"`

	Logging LoggingConfig `yaml:"logging"`
}

// TransportConfig configures the transport solver.
type TransportConfig struct {
	A    float64 `yaml:"a"`
	TMax float64 `yaml:"t_max"`
	XMax float64 `yaml:"x_max"`
	K    int     `yaml:"k"`
	M    int     `yaml:"m"`

	Initial       transport.InitialCondition `yaml:"initial"`
	RightBoundary transport.RightBoundary    `yaml:"right_boundary"`

	Workers   int              `yaml:"workers"`
	Threads   int              `yaml:"threads"`
	Snapshots int              `yaml:"snapshots"`
	Remainder partition.Policy `yaml:"remainder"`
	MaxCells  int              `yaml:"max_cells"`

	Output  string `yaml:"output"`  // solution table
	Results string `yaml:"results"` // benchmark log, appended to
}

// LifeConfig configures a Game of Life run.
type LifeConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Steps  int `yaml:"steps"`

	Workers   int              `yaml:"workers"`
	Threads   int              `yaml:"threads"`
	Remainder partition.Policy `yaml:"remainder"`

	Pattern life.Pattern `yaml:"pattern"`
	Seed    uint64       `yaml:"seed"`

	SkipUnchanged bool          `yaml:"skip_unchanged"`
	DetectStable  bool          `yaml:"detect_stable"`
	Delay         time.Duration `yaml:"delay"`
	MaxCells      int           `yaml:"max_cells"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	t := transport.DefaultConfig()
	return &Config{
		Transport: TransportConfig{
			A:             t.Problem.A,
			TMax:          t.Problem.TMax,
			XMax:          t.Problem.XMax,
			K:             t.Problem.K,
			M:             t.Problem.M,
			Initial:       t.Problem.Initial,
			RightBoundary: t.Problem.RightBoundary,
			Workers:       t.Workers,
			Threads:       t.Threads,
			Snapshots:     t.Snapshots,
			Remainder:     t.Remainder,
			Output:        "transport_solution.csv",
			Results:       "benchmark_results.csv",
		},
		Life:     lifeConfig(life.DefaultConfig()),
		LifeDemo: lifeConfig(life.DemoConfig()),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func lifeConfig(cfg life.Config) LifeConfig {
	return LifeConfig{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Steps:         cfg.Steps,
		Workers:       cfg.Workers,
		Threads:       cfg.Threads,
		Remainder:     cfg.Remainder,
		Pattern:       cfg.Pattern,
		Seed:          cfg.Seed,
		SkipUnchanged: cfg.SkipUnchanged,
		DetectStable:  cfg.DetectStable,
		Delay:         cfg.Delay,
		MaxCells:      cfg.MaxCells,
	}
}

// Load reads the file at path over the defaults. Unknown keys are
// rejected. Read failures wrap stencil.ErrIO, malformed files wrap
// stencil.ErrInvalidConfiguration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config: %w", stencil.ErrIO, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse config %v: %w", stencil.ErrInvalidConfiguration, path, err)
	}
	return cfg, nil
}

// Save writes c to w as YAML.
func (c *Config) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("%w: failed to write config: %w", stencil.ErrIO, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: failed to write config: %w", stencil.ErrIO, err)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	t := c.Transport.Solver(nil)
	if err := t.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	l := c.Life.Solver(nil, false, nil)
	if err := l.Validate(); err != nil {
		return fmt.Errorf("life: %w", err)
	}
	l = c.LifeDemo.Solver(nil, true, nil)
	if err := l.Validate(); err != nil {
		return fmt.Errorf("life_demo: %w", err)
	}
	if _, err := c.Logging.zapConfig(false); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Solver returns the solver configuration of the section.
func (c TransportConfig) Solver(logger *zap.Logger) transport.Config {
	return transport.Config{
		Problem: transport.Problem{
			A:             c.A,
			TMax:          c.TMax,
			XMax:          c.XMax,
			K:             c.K,
			M:             c.M,
			Initial:       c.Initial,
			RightBoundary: c.RightBoundary,
		},
		Workers:   c.Workers,
		Threads:   c.Threads,
		Snapshots: c.Snapshots,
		Remainder: c.Remainder,
		MaxCells:  c.MaxCells,
		Logger:    logger,
	}
}

// Solver returns the solver configuration of the section. Demo runs render
// every generation to out.
func (c LifeConfig) Solver(logger *zap.Logger, demo bool, out io.Writer) life.Config {
	return life.Config{
		Width:         c.Width,
		Height:        c.Height,
		Steps:         c.Steps,
		Workers:       c.Workers,
		Threads:       c.Threads,
		Remainder:     c.Remainder,
		Pattern:       c.Pattern,
		Seed:          c.Seed,
		SkipUnchanged: c.SkipUnchanged,
		DetectStable:  c.DetectStable,
		Demo:          demo,
		Delay:         c.Delay,
		Output:        out,
		MaxCells:      c.MaxCells,
		Logger:        logger,
	}
}

func (c LoggingConfig) zapConfig(verbose bool) (zap.Config, error) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return config, fmt.Errorf("%w: %w", stencil.ErrInvalidConfiguration, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	switch c.Format {
	case "json", "":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return config, fmt.Errorf("%w: unknown log format %q", stencil.ErrInvalidConfiguration, c.Format)
	}
	return config, nil
}

// Logger builds the logger. Verbose selects the debug level regardless of
// the configured one.
func (c LoggingConfig) Logger(verbose bool) (*zap.Logger, error) {
	config, err := c.zapConfig(verbose)
	if err != nil {
		return nil, err
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
