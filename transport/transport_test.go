package transport_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/partition"
	"github.com/exascience/stencil/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// requireSnapshotsEqual asserts that every snapshot is bitwise equal to the
// corresponding layer of the reference history.
func requireSnapshotsEqual(t *testing.T, ref *mat.Dense, r *transport.Result) {
	t.Helper()
	for i, k := range r.Layers {
		require.Equalf(t, ref.RawRowView(k), r.Snapshots.RawRowView(i), "layer %v", k)
	}
}

func TestNinePointsFourWorkers(t *testing.T) {
	for _, policy := range []partition.Policy{partition.RemainderFirst, partition.RemainderLast} {
		for _, rb := range []transport.RightBoundary{transport.ZeroGradient, transport.BoundaryFunction} {
			for _, threads := range []int{1, 2} {
				cfg := transport.DefaultConfig()
				cfg.Problem.K = 2
				cfg.Problem.M = 8
				cfg.Problem.RightBoundary = rb
				cfg.Workers = 4
				cfg.Threads = threads
				cfg.Snapshots = 2
				cfg.Remainder = policy

				ref, err := transport.Reference(&cfg.Problem)
				require.NoError(t, err)
				r, err := transport.Run(context.Background(), cfg)
				require.NoError(t, err)
				assert.Equal(t, []int{0, 1, 2}, r.Layers)
				assert.Equal(t, 4, r.Workers)
				requireSnapshotsEqual(t, ref, r)
			}
		}
	}
}

func TestWorkersDoNotChangeResults(t *testing.T) {
	cfg := transport.DefaultConfig()
	cfg.Problem.K = 60
	cfg.Problem.M = 41
	cfg.Problem.A = 0.7
	cfg.Problem.Initial = transport.Sine
	cfg.Problem.Psi = func(t float64) float64 { return math.Sin(3 * t) }
	cfg.Problem.F = func(t, x float64) float64 { return t * x }
	cfg.Snapshots = 60

	ref, err := transport.Reference(&cfg.Problem)
	require.NoError(t, err)
	for _, workers := range []int{1, 2, 3, 5, 8, 13} {
		for _, threads := range []int{1, 3} {
			cfg.Workers = workers
			cfg.Threads = threads
			r, err := transport.Run(context.Background(), cfg)
			require.NoError(t, err, "workers=%v threads=%v", workers, threads)
			require.Len(t, r.Layers, 61)
			requireSnapshotsEqual(t, ref, r)
			assert.Zero(t, r.Compare(ref))
		}
	}
}

func TestReferenceBoundaries(t *testing.T) {
	p := transport.DefaultProblem()
	p.K, p.M = 20, 10
	p.Psi = func(t float64) float64 { return 1 + t }
	ref, err := transport.Reference(&p)
	require.NoError(t, err)
	for k := 0; k <= p.K; k++ {
		row := ref.RawRowView(k)
		assert.Equal(t, 1+float64(k)*p.Tau(), row[0])
		assert.Equal(t, row[p.M-1], row[p.M])
	}

	p.RightBoundary = transport.BoundaryFunction
	ref, err = transport.Reference(&p)
	require.NoError(t, err)
	for k := 0; k <= p.K; k++ {
		assert.Equal(t, 1+float64(k)*p.Tau(), ref.At(k, p.M))
	}
}

func TestPulseIsTransported(t *testing.T) {
	p := transport.DefaultProblem()
	p.K, p.M = 400, 200
	p.TMax = 0.25
	ref, err := transport.Reference(&p)
	require.NoError(t, err)
	// with a = 1 the pulse centre moves from x = 0.5 to x = 0.75
	final := ref.RawRowView(p.K)
	assert.InDelta(t, 150, floats.MaxIdx(final), 1)
	assert.InDelta(t, 1, final[150], 0.05)
}

func TestStabilityWarning(t *testing.T) {
	p := transport.DefaultProblem()
	assert.NoError(t, p.CheckStability())

	p.K, p.M = 10, 100
	err := p.CheckStability()
	var w *stencil.StabilityWarning
	require.True(t, errors.As(err, &w))
	assert.InDelta(t, 10, w.Courant, 1e-9)

	// advisory only
	cfg := transport.DefaultConfig()
	cfg.Problem = p
	cfg.Workers = 2
	_, err = transport.Run(context.Background(), cfg)
	assert.NoError(t, err)
}

func TestInvalidConfigurations(t *testing.T) {
	tests := map[string]func(*transport.Config){
		"no time steps":        func(cfg *transport.Config) { cfg.Problem.K = 0 },
		"no space steps":       func(cfg *transport.Config) { cfg.Problem.M = 0 },
		"no workers":           func(cfg *transport.Config) { cfg.Workers = 0 },
		"negative threads":     func(cfg *transport.Config) { cfg.Threads = -1 },
		"no snapshots":         func(cfg *transport.Config) { cfg.Snapshots = 0 },
		"more workers":         func(cfg *transport.Config) { cfg.Workers = 10 },
		"lonely right point":   func(cfg *transport.Config) { cfg.Workers = 9 },
		"unknown boundary":     func(cfg *transport.Config) { cfg.Problem.RightBoundary = 7 },
		"negative time bound":  func(cfg *transport.Config) { cfg.Problem.TMax = -1 },
		"infinite space bound": func(cfg *transport.Config) { cfg.Problem.XMax = math.Inf(1) },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := transport.DefaultConfig()
			cfg.Problem.K, cfg.Problem.M = 4, 8
			modify(&cfg)
			_, err := transport.Run(context.Background(), cfg)
			assert.ErrorIs(t, err, stencil.ErrInvalidConfiguration)
		})
	}

	// one point per worker is fine when the right boundary is a function
	cfg := transport.DefaultConfig()
	cfg.Problem.K, cfg.Problem.M = 4, 8
	cfg.Problem.RightBoundary = transport.BoundaryFunction
	cfg.Workers = 9
	_, err := transport.Run(context.Background(), cfg)
	assert.NoError(t, err)
}

func TestResourceExhaustion(t *testing.T) {
	cfg := transport.DefaultConfig()
	cfg.MaxCells = 100
	_, err := transport.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, stencil.ErrResourceExhaustion)
}

func TestCanceledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := transport.DefaultConfig()
	cfg.Workers = 3
	_, err := transport.Run(ctx, cfg)
	assert.ErrorIs(t, err, stencil.ErrAborted)
}

func TestWriteCSV(t *testing.T) {
	cfg := transport.DefaultConfig()
	cfg.Problem.K, cfg.Problem.M = 1, 2
	cfg.Snapshots = 1
	r, err := transport.Run(context.Background(), cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, transport.WriteCSV(&buf, r))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "x,t_0,t_1", lines[0])
	assert.Equal(t, "0.000000,0.000000,0.000000", lines[1])
	assert.Equal(t, fmt.Sprintf("0.500000,%f,%f", r.Snapshots.At(0, 1), r.Snapshots.At(1, 1)), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "1.000000,"))
}

func TestSaveCSV(t *testing.T) {
	cfg := transport.DefaultConfig()
	cfg.Problem.K, cfg.Problem.M = 3, 3
	r, err := transport.Run(context.Background(), cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, transport.SaveCSV(filepath.Join(dir, "solution.csv"), r))
	err = transport.SaveCSV(filepath.Join(dir, "missing", "solution.csv"), r)
	assert.ErrorIs(t, err, stencil.ErrIO)
}

func TestMaxAbsDiff(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	b := mat.NewDense(3, 2, []float64{1, 2.5, 3, 1, 5, 6})
	assert.Equal(t, 3.0, transport.MaxAbsDiff(a, b))
	assert.Panics(t, func() { transport.MaxAbsDiff(a, mat.NewDense(2, 3, nil)) })
}

func TestParseEnumerations(t *testing.T) {
	ic, err := transport.ParseInitialCondition("sine")
	require.NoError(t, err)
	assert.Equal(t, transport.Sine, ic)
	_, err = transport.ParseInitialCondition("square")
	assert.ErrorIs(t, err, stencil.ErrInvalidConfiguration)

	var rb transport.RightBoundary
	require.NoError(t, rb.UnmarshalText([]byte("function")))
	assert.Equal(t, transport.BoundaryFunction, rb)
	text, err := transport.ZeroGradient.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "zero-gradient", string(text))
}

func ExampleRun() {
	cfg := transport.DefaultConfig()
	cfg.Problem.K, cfg.Problem.M = 100, 100
	cfg.Snapshots = 4
	cfg.Workers = 3
	r, err := transport.Run(context.Background(), cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	rows, cols := r.Snapshots.Dims()
	fmt.Println(rows, cols, r.Layers)

	// Output:
	// 5 101 [0 25 50 75 100]
}
