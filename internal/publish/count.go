package publish

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
)

// CountUnknown is the sentinel for counts that timed out, hit the cap, or
// failed outright. Rendered as "unknown"/"many" for the operator.
const CountUnknown int64 = -1

var errCapped = errors.New("count cap reached")

// walk is stubbed by tests to simulate a filesystem that never answers.
var walk = fastwalk.Walk

// CountEntries walks a mount and counts files and directories, bounded by a
// wall-clock timeout and an entry cap so an unresponsive filesystem can
// never stall the run. Either bound trips the sentinel.
//
// The deadline is enforced from outside the walk: a walker stuck in a
// syscall on a dead mount never reaches the callback, so waiting for it
// would block past the bound. When the deadline fires the walker goroutine
// is abandoned; it holds no resources the process outlives.
func CountEntries(ctx context.Context, root string, timeout time.Duration, limit int64) (files, dirs int64) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nf, nd atomic.Int64
	done := make(chan error, 1)
	go func() {
		conf := fastwalk.Config{NumWorkers: 2}
		done <- walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
			if cctx.Err() != nil {
				return cctx.Err()
			}
			if err != nil {
				return nil // unreadable entries don't abort the count
			}
			if path == root {
				return nil
			}
			if d.IsDir() {
				nd.Add(1)
			} else {
				nf.Add(1)
			}
			if nf.Load()+nd.Load() > limit {
				return errCapped
			}
			return nil
		})
	}()

	select {
	case <-cctx.Done():
		return CountUnknown, CountUnknown
	case err := <-done:
		if err != nil {
			return CountUnknown, CountUnknown
		}
		return nf.Load(), nd.Load()
	}
}
