// Package benchlog appends benchmark records to a results log, one flat
// comma-separated line per run, so that batches of runs can be compared.
package benchlog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/exascience/stencil"
)

// A Record is one line of the results log:
// steps,space_steps,worker_count,elapsed_seconds.
type Record struct {
	Steps      int
	SpaceSteps int
	Workers    int
	Elapsed    time.Duration
}

func (r Record) String() string {
	return fmt.Sprintf("%d,%d,%d,%.4f", r.Steps, r.SpaceSteps, r.Workers, r.Elapsed.Seconds())
}

// Write writes r to w, followed by a newline.
func Write(w io.Writer, r Record) error {
	_, err := fmt.Fprintln(w, r)
	return err
}

// Append appends r to the log at path, creating it if necessary. Failures
// wrap stencil.ErrIO.
func Append(path string, r Record) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", stencil.ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %w", stencil.ErrIO, cerr)
		}
	}()
	if err = Write(f, r); err != nil {
		return fmt.Errorf("%w: appending to %v: %w", stencil.ErrIO, path, err)
	}
	return nil
}
