package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/life"
	"github.com/exascience/stencil/partition"
	"github.com/exascience/stencil/transport"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stencil.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Transport.K)
	assert.Equal(t, 9, cfg.Transport.Snapshots)
	assert.Equal(t, 2000, cfg.Life.Width)
	assert.Equal(t, 40, cfg.LifeDemo.Width)
	assert.Equal(t, 200*time.Millisecond, cfg.LifeDemo.Delay)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
transport:
  k: 200
  initial: sine
  right_boundary: function
  remainder: last
  workers: 4
life:
  pattern: gun
  detect_stable: true
life_demo:
  delay: 50ms
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 200, cfg.Transport.K)
	assert.Equal(t, 1000, cfg.Transport.M)
	assert.Equal(t, transport.Sine, cfg.Transport.Initial)
	assert.Equal(t, transport.BoundaryFunction, cfg.Transport.RightBoundary)
	assert.Equal(t, partition.RemainderLast, cfg.Transport.Remainder)
	assert.Equal(t, life.Gun, cfg.Life.Pattern)
	assert.True(t, cfg.Life.DetectStable)
	assert.Equal(t, 50*time.Millisecond, cfg.LifeDemo.Delay)
	assert.Equal(t, "json", cfg.Logging.Format)

	solver := cfg.Transport.Solver(nil)
	assert.Equal(t, 4, solver.Workers)
	assert.Equal(t, 200, solver.Problem.K)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, stencil.ErrIO)

	_, err = Load(writeFile(t, "transport:\n  velocity: 3\n"))
	assert.ErrorIs(t, err, stencil.ErrInvalidConfiguration)

	_, err = Load(writeFile(t, "life:\n  pattern: spaceship\n"))
	assert.ErrorIs(t, err, stencil.ErrInvalidConfiguration)

	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(DefaultConfig(), cfg))
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"transport": func(c *Config) { c.Transport.Workers = 0 },
		"life":      func(c *Config) { c.Life.Height = 0 },
		"life_demo": func(c *Config) { c.LifeDemo.Pattern = life.Gun; c.LifeDemo.Height = 10 },
		"level":     func(c *Config) { c.Logging.Level = "loud" },
		"format":    func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), stencil.ErrInvalidConfiguration)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Life.Remainder = partition.RemainderLast
	var buf bytes.Buffer
	require.NoError(t, cfg.Save(&buf))
	assert.Contains(t, buf.String(), "right_boundary: zero-gradient")
	assert.Contains(t, buf.String(), "delay: 200ms")

	loaded, err := Load(writeFile(t, buf.String()))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(cfg, loaded))
}

func TestLogger(t *testing.T) {
	logger, err := LoggingConfig{Level: "warn", Format: "console"}.Logger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = LoggingConfig{Level: "warn", Format: "json"}.Logger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0))
}
