package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/config"
	"github.com/exascience/stencil/life"
	"github.com/exascience/stencil/partition"
)

func (a *app) lifeCmd() *cobra.Command {
	var (
		workers, threads      int
		width, height, steps  int
		pattern, remainder    string
		seed                  uint64
		delay                 time.Duration
		skipUnchanged, stable bool
	)
	cmd := &cobra.Command{
		Use:   "life [demo|perf] [threads]",
		Short: "Run Conway's Game of Life on a toroidal grid",
		Long: `Runs the Game of Life with the rows of the grid split into bands over a
ring of workers.

In demo mode a small grid is rendered after every generation. In perf mode,
the default, a large grid is simulated and only the final grid is gathered;
the elapsed time and the number of cells updated per second are reported.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 2 {
				return fmt.Errorf("%w: expected at most a mode and a thread count, got %v arguments",
					stencil.ErrInvalidConfiguration, len(args))
			}
			if len(args) > 0 && args[0] != "demo" && args[0] != "perf" {
				return fmt.Errorf("%w: unknown mode %q, expected demo or perf",
					stencil.ErrInvalidConfiguration, args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			demo := len(args) > 0 && args[0] == "demo"
			l := &a.cfg.Life
			if demo {
				l = &a.cfg.LifeDemo
			}
			if len(args) == 2 {
				if l.Threads, err = positiveArg(args, 1, "threads"); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("workers") {
				l.Workers = workers
			}
			if flags.Changed("threads") {
				l.Threads = threads
			}
			if flags.Changed("width") {
				l.Width = width
			}
			if flags.Changed("height") {
				l.Height = height
			}
			if flags.Changed("steps") {
				l.Steps = steps
			}
			if flags.Changed("seed") {
				l.Seed = seed
			}
			if flags.Changed("delay") {
				l.Delay = delay
			}
			if flags.Changed("skip-unchanged") {
				l.SkipUnchanged = skipUnchanged
			}
			if flags.Changed("detect-stable") {
				l.DetectStable = stable
			}
			if flags.Changed("pattern") {
				if l.Pattern, err = life.ParsePattern(pattern); err != nil {
					return err
				}
			}
			if flags.Changed("remainder") {
				if l.Remainder, err = partition.ParsePolicy(remainder); err != nil {
					return err
				}
			}
			return a.runLife(cmd, l, demo)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&workers, "workers", "p", 1, "Number of workers")
	flags.IntVarP(&threads, "threads", "t", 4, "Threads per worker, 0 for one per CPU")
	flags.IntVar(&width, "width", 2000, "Grid width")
	flags.IntVar(&height, "height", 2000, "Grid height")
	flags.IntVar(&steps, "steps", 1000, "Maximum number of generations")
	flags.StringVar(&pattern, "pattern", "random", "Initial pattern: random, glider, blinker or gun")
	flags.Uint64Var(&seed, "seed", 1, "Seed of the random pattern")
	flags.DurationVar(&delay, "delay", 200*time.Millisecond, "Pause between demo frames")
	flags.BoolVar(&skipUnchanged, "skip-unchanged", false, "Do not resend boundary rows that did not change")
	flags.BoolVar(&stable, "detect-stable", false, "Stop as soon as a generation equals its predecessor")
	flags.StringVar(&remainder, "remainder", "first", "Workers receiving the remainder rows: first or last")
	return cmd
}

func (a *app) runLife(cmd *cobra.Command, l *config.LifeConfig, demo bool) error {
	out := cmd.OutOrStdout()
	cfg := l.Solver(a.logger, demo, out)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("simulating life",
		zap.Bool("demo", demo),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("workers", cfg.Workers),
		zap.Int("threads", cfg.Threads),
		zap.Stringer("pattern", cfg.Pattern))
	res, err := life.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Elapsed time: %.4f seconds\n", res.Elapsed.Seconds())
	fmt.Fprintf(out, "Cells per second: %.0f\n", res.CellsPerSecond)
	if res.Stable {
		fmt.Fprintf(out, "Stable after %d generations\n", res.Steps)
	} else {
		fmt.Fprintf(out, "Generations: %d\n", res.Steps)
	}
	return nil
}
