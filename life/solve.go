package life

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/comm"
	"github.com/exascience/stencil/halo"
	"github.com/exascience/stencil/layers"
	"github.com/exascience/stencil/partition"
)

// A Config describes a distributed run.
type Config struct {
	Width, Height int
	// Steps is the maximum number of generations.
	Steps int

	// Workers is the size of the comm world that Run creates. Each worker
	// owns a band of rows.
	Workers int
	// Threads is the number of threads per worker, 0 for
	// runtime.GOMAXPROCS(0).
	Threads   int
	Remainder partition.Policy

	Pattern Pattern
	Seed    uint64
	// Initial, if not nil, is used instead of Pattern.
	Initial *Grid

	// SkipUnchanged sends an "unchanged" marker instead of a boundary row
	// that did not change in the previous generation.
	SkipUnchanged bool
	// DetectStable stops all workers after the first generation in which
	// no cell changed.
	DetectStable bool

	// Demo gathers the grid after every generation and renders it to
	// Output, pausing Delay between frames.
	Demo   bool
	Delay  time.Duration
	Output io.Writer

	// MaxCells bounds every buffer request, 0 for stencil.DefaultMaxCells.
	MaxCells int
	Logger   *zap.Logger
}

// DefaultConfig returns the performance setup: a random 2000×2000 grid,
// 1000 generations, 4 threads.
func DefaultConfig() Config {
	return Config{
		Width:     2000,
		Height:    2000,
		Steps:     1000,
		Workers:   1,
		Threads:   4,
		Remainder: partition.RemainderFirst,
		Pattern:   Random,
		Seed:      1,
	}
}

// DemoConfig returns the demo setup: a random 40×20 grid rendered for 100
// generations.
func DemoConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 40, 20
	cfg.Steps = 100
	cfg.Demo = true
	cfg.Delay = 200 * time.Millisecond
	return cfg
}

// Validate checks cfg.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Width < 1 || cfg.Height < 1:
		return fmt.Errorf("%w: grid of %v×%v cells", stencil.ErrInvalidConfiguration, cfg.Width, cfg.Height)
	case cfg.Steps < 0:
		return fmt.Errorf("%w: %v steps", stencil.ErrInvalidConfiguration, cfg.Steps)
	case cfg.Workers < 1:
		return fmt.Errorf("%w: %v workers", stencil.ErrInvalidConfiguration, cfg.Workers)
	case cfg.Threads < 0:
		return fmt.Errorf("%w: %v threads", stencil.ErrInvalidConfiguration, cfg.Threads)
	case cfg.Delay < 0:
		return fmt.Errorf("%w: delay %v", stencil.ErrInvalidConfiguration, cfg.Delay)
	}
	if cfg.Initial != nil {
		if g := cfg.Initial; g.Width != cfg.Width || g.Height != cfg.Height || len(g.Cells) != g.Width*g.Height {
			return fmt.Errorf("%w: initial grid of %v×%v cells for a %v×%v run",
				stencil.ErrInvalidConfiguration, g.Width, g.Height, cfg.Width, cfg.Height)
		}
	} else if err := cfg.Pattern.Fits(cfg.Width, cfg.Height); err != nil {
		return err
	}
	if _, err := partition.Split(cfg.Height, cfg.Workers, cfg.Remainder); err != nil {
		return err
	}
	return stencil.CheckCells(cfg.Width*cfg.Height, cfg.MaxCells)
}

func (cfg *Config) logger() *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

func (cfg *Config) initialGrid() (Grid, error) {
	if cfg.Initial != nil {
		return cfg.Initial.Clone(), nil
	}
	g, err := NewGrid(cfg.Width, cfg.Height, cfg.MaxCells)
	if err != nil {
		return g, err
	}
	return g, cfg.Pattern.Fill(g, cfg.Seed)
}

// A Result holds the final grid gathered on rank 0.
type Result struct {
	Grid Grid
	// Steps is the number of generations computed.
	Steps int
	// Stable reports whether the run stopped because generation Steps
	// equals its predecessor.
	Stable bool
	// Elapsed is the longest wall-clock time of all workers.
	Elapsed        time.Duration
	CellsPerSecond float64
}

// Run validates cfg, creates a world of cfg.Workers workers, and calls
// Solve on each of them. It returns the result of rank 0.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var result *Result
	err := comm.Run(ctx, cfg.Workers, func(ctx context.Context, c *comm.Comm) error {
		r, err := Solve(ctx, c, cfg)
		if c.Rank() == 0 {
			result = r
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// cellLayout converts a layout of rows into a layout of cells.
func cellLayout(rows partition.Layout, width int) partition.Layout {
	ranges := make([]partition.Range, len(rows.Ranges))
	for i, r := range rows.Ranges {
		ranges[i] = partition.Range{Start: r.Start * width, Count: r.Count * width}
	}
	return partition.Layout{N: rows.N * width, Policy: rows.Policy, Ranges: ranges}
}

/*
Solve simulates this rank's band of rows, and gathers the final grid on
rank 0. Rank 0 builds the initial grid and scatters it. All ranks of c must
call Solve with the same configuration; the number of workers is c.Size(),
not cfg.Workers.

Ranks other than 0 return a nil result.
*/
func Solve(ctx context.Context, c *comm.Comm, cfg Config) (*Result, error) {
	start := time.Now()
	rows, err := partition.Split(cfg.Height, c.Size(), cfg.Remainder)
	if err != nil {
		return nil, err
	}
	cells := cellLayout(rows, cfg.Width)
	rank := c.Rank()
	own := rows.Ranges[rank]
	log := cfg.logger().With(zap.Int("rank", rank))
	log.Debug("rows partitioned", zap.Int("start", own.Start), zap.Int("count", own.Count))

	var global []bool
	if rank == 0 {
		g, err := cfg.initialGrid()
		if err != nil {
			return nil, err
		}
		global = g.Cells
	}
	local, err := comm.Scatterv(ctx, c, global, cells, 0)
	if err != nil {
		return nil, err
	}
	if err := stencil.CheckCells(2*len(local), cfg.MaxCells); err != nil {
		return nil, err
	}

	w := cfg.Width
	row := func(band []bool, y int) []bool { return band[y*w : (y+1)*w] }
	last := own.Count - 1
	threads := stencil.EffectiveThreads(cfg.Threads)
	forRange := rangeOr(threads)
	ring := layers.New(local, make([]bool, len(local)))

	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	show := func(generation int) error {
		band, err := comm.Gatherv(ctx, c, ring.Current(), cells, 0)
		if err != nil || rank != 0 {
			return err
		}
		if generation > 0 && cfg.Delay > 0 {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", stencil.ErrAborted, ctx.Err())
			}
		}
		return Render(out, Grid{Width: w, Height: cfg.Height, Cells: band}, generation)
	}
	if cfg.Demo {
		if err := show(0); err != nil {
			return nil, err
		}
	}

	var ghosts halo.RowGhosts
	var changes *halo.RowChanges
	computed, stable := 0, false
	for computed < cfg.Steps {
		curr, next := ring.Current(), ring.Next()
		if err := halo.ExchangeRows(ctx, c, &ghosts, row(curr, 0), row(curr, last), changes); err != nil {
			return nil, err
		}
		changed, err := forRange(0, own.Count, threads, func(low, high int) (bool, error) {
			changed := false
			for y := low; y < high; y++ {
				above, below := ghosts.Top, ghosts.Bottom
				if y > 0 {
					above = row(curr, y-1)
				}
				if y < last {
					below = row(curr, y+1)
				}
				if stepRow(row(next, y), above, row(curr, y), below) {
					changed = true
				}
			}
			return changed, nil
		})
		if err != nil {
			return nil, err
		}
		if cfg.SkipUnchanged {
			changes = &halo.RowChanges{
				Top:    !slices.Equal(row(next, 0), row(curr, 0)),
				Bottom: !slices.Equal(row(next, last), row(curr, last)),
			}
		}
		ring.Rotate()
		computed++

		if cfg.Demo {
			if err := show(computed); err != nil {
				return nil, err
			}
		}
		if cfg.DetectStable {
			if stable, err = c.AllreduceAnd(ctx, !changed); err != nil {
				return nil, err
			}
			if stable {
				log.Debug("grid is stable", zap.Int("generation", computed))
				break
			}
		}
	}

	final, err := comm.Gatherv(ctx, c, ring.Current(), cells, 0)
	if err != nil {
		return nil, err
	}
	elapsed, err := comm.Reduce(ctx, c, time.Since(start), func(x, y time.Duration) time.Duration {
		return max(x, y)
	}, 0)
	if err != nil || rank != 0 {
		return nil, err
	}
	result := &Result{
		Grid:    Grid{Width: w, Height: cfg.Height, Cells: final},
		Steps:   computed,
		Stable:  stable,
		Elapsed: elapsed,
	}
	if s := elapsed.Seconds(); s > 0 {
		result.CellsPerSecond = float64(w) * float64(cfg.Height) * float64(computed) / s
	}
	log.Info("life simulated",
		zap.Int("width", w),
		zap.Int("height", cfg.Height),
		zap.Int("workers", c.Size()),
		zap.Int("steps", computed),
		zap.Bool("stable", stable),
		zap.Duration("elapsed", elapsed),
		zap.Float64("cells_per_second", result.CellsPerSecond))
	return result, nil
}
