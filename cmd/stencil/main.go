// Command stencil runs the domain-decomposed stencil solvers.
//
//	stencil transport [K M]       cross scheme for the transport equation
//	stencil life [demo|perf] [T]  Game of Life on a toroidal grid
//	stencil config                print the effective configuration
//
// Configuration errors exit with status 2, all other failures with 1.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/config"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	// Global flags
	configPath string
	verbose    bool
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
	runID  string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "stencil",
		Short: "Domain-decomposed explicit stencil solvers",
		Long: `stencil splits a grid over a number of workers, which exchange ghost cells
with their neighbours every time step, and optionally split their own part
over threads.

Settings are read from the defaults, then from the --config file, then from
the command-line flags, each overriding the previous one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", stencil.ErrInvalidConfiguration, err)
	})

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(a.transportCmd())
	rootCmd.AddCommand(a.lifeCmd())
	rootCmd.AddCommand(a.configCmd())
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.DefaultConfig()
	}
	if cmd.Flags().Changed("log-format") {
		a.cfg.Logging.Format = a.logFormat
	}
	logger, err := a.cfg.Logging.Logger(a.verbose)
	if err != nil {
		return err
	}
	a.runID = uuid.NewString()
	a.logger = logger.With(zap.String("run", a.runID))
	return nil
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.cfg.Save(cmd.OutOrStdout())
		},
	}
}

// positiveArg parses a positional argument as a positive integer.
func positiveArg(args []string, i int, name string) (int, error) {
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q",
			stencil.ErrInvalidConfiguration, name, args[i])
	}
	return n, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)
	if errors.Is(err, stencil.ErrInvalidConfiguration) {
		if cmd == nil {
			cmd = rootCmd
		}
		fmt.Fprint(stderr, cmd.UsageString())
		return 2
	}
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
