package benchlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/stencil"
)

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark_results.csv")
	require.NoError(t, Append(path, Record{Steps: 1000, SpaceSteps: 500, Workers: 4, Elapsed: 1234567 * time.Microsecond}))
	require.NoError(t, Append(path, Record{Steps: 10, SpaceSteps: 10, Workers: 1, Elapsed: 70 * time.Microsecond}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1000,500,4,1.2346\n10,10,1,0.0001\n", string(data))

	err = Append(filepath.Join(t.TempDir(), "missing", "results.csv"), Record{})
	assert.ErrorIs(t, err, stencil.ErrIO)
}
