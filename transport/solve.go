package transport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/comm"
	"github.com/exascience/stencil/halo"
	"github.com/exascience/stencil/layers"
	"github.com/exascience/stencil/parallel"
	"github.com/exascience/stencil/partition"
	"github.com/exascience/stencil/sequential"
)

// A Config describes a distributed run.
type Config struct {
	Problem Problem

	// Workers is the size of the comm world that Run creates.
	Workers int
	// Threads is the number of threads per worker, 0 for
	// runtime.GOMAXPROCS(0).
	Threads int
	// Snapshots determines the snapshot interval max(1, K/Snapshots).
	// Layer 0 is always a snapshot.
	Snapshots int
	// Remainder selects which workers receive the points that do not
	// divide evenly.
	Remainder partition.Policy
	// MaxCells bounds every buffer request, 0 for stencil.DefaultMaxCells.
	MaxCells int

	Logger *zap.Logger
}

// DefaultConfig returns the default problem, solved by one worker with
// one thread, keeping 9 snapshot intervals.
func DefaultConfig() Config {
	return Config{
		Problem:   DefaultProblem(),
		Workers:   1,
		Threads:   1,
		Snapshots: 9,
		Remainder: partition.RemainderFirst,
	}
}

// Validate checks cfg, including the problem.
func (cfg *Config) Validate() error {
	if err := cfg.Problem.Validate(); err != nil {
		return err
	}
	switch {
	case cfg.Workers < 1:
		return fmt.Errorf("%w: %v workers", stencil.ErrInvalidConfiguration, cfg.Workers)
	case cfg.Threads < 0:
		return fmt.Errorf("%w: %v threads", stencil.ErrInvalidConfiguration, cfg.Threads)
	case cfg.Snapshots < 1:
		return fmt.Errorf("%w: %v snapshots", stencil.ErrInvalidConfiguration, cfg.Snapshots)
	}
	_, err := cfg.layout(cfg.Workers)
	return err
}

// Interval returns the number of layers between two snapshots.
func (cfg *Config) Interval() int {
	return max(1, cfg.Problem.K/cfg.Snapshots)
}

func (cfg *Config) layout(workers int) (partition.Layout, error) {
	layout, err := partition.Split(cfg.Problem.Points(), workers, cfg.Remainder)
	if err != nil {
		return layout, err
	}
	if cfg.Problem.RightBoundary == ZeroGradient {
		M := cfg.Problem.M
		if owner := layout.Owner(M); layout.Owner(M-1) != owner {
			return layout, fmt.Errorf("%w: zero-gradient boundary needs points %v and %v on one worker, but worker %v owns only %v",
				stencil.ErrInvalidConfiguration, M-1, M, owner, layout.Ranges[owner])
		}
	}
	return layout, nil
}

func (cfg *Config) logger() *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

// A Result holds the snapshots gathered on rank 0.
type Result struct {
	// Snapshots has one row per snapshot and one column per spatial point.
	Snapshots *mat.Dense
	// Layers holds the time layer of each row of Snapshots.
	Layers []int
	// H and Tau are the space and time steps.
	H, Tau float64

	Steps      int // K
	SpaceSteps int // M
	Workers    int
	// Elapsed is the longest wall-clock time of all workers.
	Elapsed time.Duration
}

// X returns the position of spatial point m.
func (r *Result) X(m int) float64 { return float64(m) * r.H }

/*
Run validates cfg, reports a stability warning through the logger, creates
a world of cfg.Workers workers, and calls Solve on each of them. It returns
the result of rank 0.

The first worker error aborts all other workers and is returned.
*/
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.logger()
	if w := cfg.Problem.CheckStability(); w != nil {
		log.Warn("solution may be unstable, consider reducing tau or increasing h", zap.Error(w))
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

/*
Solve computes this rank's part of the solution and gathers the snapshots
on rank 0. All ranks of c must call Solve with the same configuration; the
number of workers is c.Size(), not cfg.Workers.

Ranks other than 0 return a nil result.
*/
func Solve(ctx context.Context, c *comm.Comm, cfg Config) (*Result, error) {
	start := time.Now()
	if err := cfg.Problem.Validate(); err != nil {
		return nil, err
	}
	layout, err := cfg.layout(c.Size())
	if err != nil {
		return nil, err
	}
	rank := c.Rank()
	own := layout.Ranges[rank]
	log := cfg.logger().With(zap.Int("rank", rank))
	log.Debug("domain partitioned", zap.Int("start", own.Start), zap.Int("count", own.Count))

	if err := stencil.CheckCells(3*(own.Count+2), cfg.MaxCells); err != nil {
		return nil, err
	}
	threads := stencil.EffectiveThreads(cfg.Threads)
	forRange := parallel.Range
	if threads == 1 {
		forRange = sequential.Range
	}

	p := &cfg.Problem
	s := newScheme(p)
	ring := layers.Make(3, func() *halo.Line { return halo.NewLine(own) })

	var result *Result
	interval := cfg.Interval()
	if rank == 0 {
		rows := p.K/interval + 1
		if err := stencil.CheckCells(rows*p.Points(), cfg.MaxCells); err != nil {
			return nil, err
		}
		result = &Result{
			Snapshots:  mat.NewDense(rows, p.Points(), nil),
			Layers:     make([]int, 0, rows),
			H:          s.h,
			Tau:        s.tau,
			Steps:      p.K,
			SpaceSteps: p.M,
			Workers:    c.Size(),
		}
	}
	record := func(k int, l *halo.Line) error {
		if k%interval != 0 {
			return nil
		}
		global, err := comm.Gatherv(ctx, c, l.Owned(), layout, 0)
		if err != nil {
			return err
		}
		if result != nil {
			result.Snapshots.SetRow(len(result.Layers), global)
			result.Layers = append(result.Layers, k)
			log.Debug("snapshot gathered", zap.Int("layer", k))
		}
		return nil
	}
	boundaries := func(k int, l *halo.Line) {
		if own.Contains(0) {
			l.Set(0, s.edge(k))
		}
		if own.Contains(p.M) {
			l.Set(p.M, s.right(k, l.At(p.M-1)))
		}
	}
	exchange := func(k int, l *halo.Line) error {
		return halo.ExchangeLine(ctx, c, l, func() float64 { return s.edge(k) })
	}

	u0 := ring.Current()
	for m := own.Start; m < own.End(); m++ {
		u0.Set(m, s.initial(m))
	}
	boundaries(0, u0)
	if err := record(0, u0); err != nil {
		return nil, err
	}

	if err := exchange(0, u0); err != nil {
		return nil, err
	}
	u1 := ring.Next()
	if err := forRange(own.Start, own.End(), threads, func(low, high int) error {
		low, high = s.interior(low, high)
		for m := low; m < high; m++ {
			u1.Set(m, s.bootstrap(m, u0.At(m), u0.At(m-1), u0.At(m+1)))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	boundaries(1, u1)
	if err := record(1, u1); err != nil {
		return nil, err
	}
	ring.Rotate()

	for k := 1; k < p.K; k++ {
		prev, curr, next := ring.Previous(), ring.Current(), ring.Next()
		if err := exchange(k, curr); err != nil {
			return nil, err
		}
		if err := forRange(own.Start, own.End(), threads, func(low, high int) error {
			low, high = s.interior(low, high)
			for m := low; m < high; m++ {
				next.Set(m, s.cross(k, m, prev.At(m), curr.At(m-1), curr.At(m+1)))
			}
			return nil
		}); err != nil {
			return nil, err
		}
		boundaries(k+1, next)
		if err := record(k+1, next); err != nil {
			return nil, err
		}
		ring.Rotate()
	}

	elapsed, err := comm.Reduce(ctx, c, time.Since(start), func(x, y time.Duration) time.Duration {
		return max(x, y)
	}, 0)
	if err != nil {
		return nil, err
	}
	if result != nil {
		result.Elapsed = elapsed
		log.Info("transport solved",
			zap.Int("steps", p.K),
			zap.Int("space_steps", p.M),
			zap.Int("workers", c.Size()),
			zap.Int("snapshots", len(result.Layers)),
			zap.Duration("elapsed", elapsed))
	}
	return result, nil
}
