package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/internal/benchlog"
	"github.com/exascience/stencil/partition"
	"github.com/exascience/stencil/transport"
)

func (a *app) transportCmd() *cobra.Command {
	var (
		workers, threads, snapshots int
		velocity, tMax, xMax        float64
		initial, rightBoundary      string
		remainder                   string
		output, results             string
		verify                      bool
	)
	cmd := &cobra.Command{
		Use:   "transport [K M]",
		Short: "Solve the transport equation u_t + a·u_x = f with the cross scheme",
		Long: `Solves the 1-D transport equation on K time steps and M space steps.

The M+1 spatial points are split over the workers, which exchange one ghost
cell with each neighbour per step. Snapshots of the solution are written as
a comma-separated table, and the run is appended to the benchmark results
as steps,space_steps,worker_count,elapsed_seconds.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("%w: expected no arguments or K and M, got %v arguments",
					stencil.ErrInvalidConfiguration, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			t := &a.cfg.Transport
			if len(args) == 2 {
				if t.K, err = positiveArg(args, 0, "K"); err != nil {
					return err
				}
				if t.M, err = positiveArg(args, 1, "M"); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("workers") {
				t.Workers = workers
			}
			if flags.Changed("threads") {
				t.Threads = threads
			}
			if flags.Changed("snapshots") {
				t.Snapshots = snapshots
			}
			if flags.Changed("a") {
				t.A = velocity
			}
			if flags.Changed("t-max") {
				t.TMax = tMax
			}
			if flags.Changed("x-max") {
				t.XMax = xMax
			}
			if flags.Changed("initial") {
				if t.Initial, err = transport.ParseInitialCondition(initial); err != nil {
					return err
				}
			}
			if flags.Changed("right-boundary") {
				if t.RightBoundary, err = transport.ParseRightBoundary(rightBoundary); err != nil {
					return err
				}
			}
			if flags.Changed("remainder") {
				if t.Remainder, err = partition.ParsePolicy(remainder); err != nil {
					return err
				}
			}
			if flags.Changed("output") {
				t.Output = output
			}
			if flags.Changed("results") {
				t.Results = results
			}
			return a.runTransport(cmd, verify)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&workers, "workers", "p", 1, "Number of workers")
	flags.IntVarP(&threads, "threads", "t", 1, "Threads per worker, 0 for one per CPU")
	flags.IntVar(&snapshots, "snapshots", 9, "Number of snapshot intervals")
	flags.Float64Var(&velocity, "a", 1, "Transport velocity")
	flags.Float64Var(&tMax, "t-max", 1, "End of the time interval")
	flags.Float64Var(&xMax, "x-max", 1, "End of the space interval")
	flags.StringVar(&initial, "initial", "gaussian", "Initial condition: gaussian or sine")
	flags.StringVar(&rightBoundary, "right-boundary", "zero-gradient", "Right boundary: zero-gradient or function")
	flags.StringVar(&remainder, "remainder", "first", "Workers receiving the remainder points: first or last")
	flags.StringVarP(&output, "output", "o", "transport_solution.csv", "Solution table")
	flags.StringVar(&results, "results", "benchmark_results.csv", "Benchmark log, empty to disable")
	flags.BoolVar(&verify, "verify", false, "Compare the snapshots with a sequential reference solution")
	return cmd
}

func (a *app) runTransport(cmd *cobra.Command, verify bool) error {
	t := &a.cfg.Transport
	cfg := t.Solver(a.logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("solving transport equation",
		zap.Int("steps", cfg.Problem.K),
		zap.Int("space_steps", cfg.Problem.M),
		zap.Int("workers", cfg.Workers),
		zap.Int("threads", cfg.Threads),
		zap.Stringer("remainder", cfg.Remainder),
		zap.Stringer("right_boundary", cfg.Problem.RightBoundary))
	res, err := transport.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if verify {
		ref, err := transport.Reference(&cfg.Problem)
		if err != nil {
			return err
		}
		a.logger.Info("verified against sequential reference", zap.Float64("max_abs_diff", res.Compare(ref)))
	}

	out := cmd.OutOrStdout()
	if err := transport.SaveCSV(t.Output, res); err != nil {
		return err
	}
	fmt.Fprintf(out, "Solution saved to %s\n", t.Output)
	fmt.Fprintf(out, "Total execution time: %.4f seconds\n", res.Elapsed.Seconds())

	rec := benchlog.Record{Steps: res.Steps, SpaceSteps: res.SpaceSteps, Workers: res.Workers, Elapsed: res.Elapsed}
	if err := benchlog.Write(out, rec); err != nil {
		return fmt.Errorf("%w: %w", stencil.ErrIO, err)
	}
	if t.Results != "" {
		return benchlog.Append(t.Results, rec)
	}
	return nil
}
