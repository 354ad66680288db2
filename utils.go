package gpbench

import (
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// forceGC is the default settle hook. It returns once a full collection has
// completed so that reclamation from the previous step is not attributed to
// the next measurement.
func forceGC() {
	runtime.GC()
}

// minOf returns the smallest element of values and the index it was found
// at. It returns the zero value and -1 for an empty slice.
func minOf[T constraints.Integer | constraints.Float](values []T) (T, int) {
	var best T

	idx := -1

	for i, v := range values {
		if idx == -1 || v < best {
			best = v
			idx = i
		}
	}

	return best, idx
}

// durationMillis converts a duration to fractional milliseconds.
func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// measureExecutionTime runs f number times and measures the per-call wall
// clock time.
//
// Parameters:
// - f: The operation to measure
// - number: How many times f runs inside the sample (values < 1 mean 1)
// - pauseGC: Disable the garbage collector while the sample runs
//
// Returns:
// - time.Duration: Elapsed time divided by number
// - error: The first error returned by f, nil otherwise
//
// Important notes:
// - Time is measured with time.Now() and time.Since(), which use the
//   monotonic clock
// - The previous GC percentage is restored before returning
// - A failing call stops the sample immediately
func measureExecutionTime(f func() error, number int, pauseGC bool) (time.Duration, error) {
	if number < 1 {
		number = 1
	}

	if pauseGC {
		defer debug.SetGCPercent(debug.SetGCPercent(-1))
	}

	start := time.Now()

	for i := 0; i < number; i++ {
		if err := f(); err != nil {
			return 0, err
		}
	}

	return time.Since(start) / time.Duration(number), nil
}
