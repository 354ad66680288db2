package gpbench

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

//////
// Errors.
//////

var (
	// ErrDataset is returned when the input dataset is missing or malformed.
	ErrDataset = errors.New("invalid dataset")

	// ErrInvalidKernel is returned when a kernel expression cannot be built.
	ErrInvalidKernel = errors.New("invalid kernel")

	// ErrNotPositiveDefinite is returned when the covariance matrix cannot be
	// factorised even after adding jitter to its diagonal.
	ErrNotPositiveDefinite = errors.New("covariance matrix not positive definite")

	// ErrOutputDir is returned when the results directory does not exist.
	ErrOutputDir = errors.New("output directory does not exist")

	// ErrUnknownLabel is returned when a catalog lookup misses.
	ErrUnknownLabel = errors.New("unknown configuration label")
)

//////
// Types.
//////

// ProgressUpdate represents the current state of a benchmark run.
type ProgressUpdate struct {
	// Phase is "Measuring" while configurations are timed.
	Phase string

	// CurrentIteration is the 1-based position of the configuration that just
	// finished.
	CurrentIteration int

	// TotalIterations is the number of configurations in the catalog.
	TotalIterations int

	// Label is the configuration that just finished.
	Label string

	// LastExecutionTime is the minimum time of that configuration, in
	// milliseconds.
	LastExecutionTime float64

	// CurrentBestLabel is the fastest configuration seen so far.
	CurrentBestLabel string

	// CurrentBestTime is the minimum time of CurrentBestLabel, in
	// milliseconds.
	CurrentBestTime float64
}

// Config holds all configuration parameters for a benchmark run. It controls
// how many times each configuration is timed, the model noise, and how the
// process is settled before measurements.
//
// Fields explanation:
// - Repeat: Number of timing samples per configuration
// - Number: Number of recomputations inside one sample
// - Warmup: Untimed recomputations before the first sample
// - NoiseVariance: Observation noise of every regression model
// - Settle: Hook run before building a model and before every sample
// - PauseGC: Disable the garbage collector while a sample is timed
//
// Usage example:
//
//	config := DefaultConfig()
//
//	// Discard a cold-start call before sampling.
//	config.Warmup = 1
//
//	// Skip forced collections.
//	config.Settle = nil
//
// Note:
// - Create separate configs for separate runs.
type Config struct {
	// Repeat is the number of timing samples taken per configuration. The
	// reported score is the minimum over these samples.
	Repeat int

	// Number is how many times the recomputation runs inside one sample. The
	// sample is divided by Number so scores are always per call.
	Number int

	// Warmup is the number of untimed recomputations run after the model is
	// built and before the first sample.
	Warmup int

	// NoiseVariance is the Gaussian observation noise of each model.
	NoiseVariance float64

	// Settle is run before each model is built, after it is built, and
	// before every sample. If nil, nothing is run.
	Settle func()

	// PauseGC disables the garbage collector for the duration of each
	// sample.
	PauseGC bool

	// Logger receives structured progress logs. If nil, nothing is logged.
	Logger *log.Logger

	// ProgressChan is used to send progress updates during a run.
	// If nil, no updates will be sent.
	ProgressChan chan<- ProgressUpdate
}

// Result is the timing outcome of one catalog configuration.
type Result struct {
	// Label is the configuration label.
	Label string

	// Samples holds the per-call duration of every sample, in order.
	Samples []time.Duration

	// Min is the smallest of Samples.
	Min time.Duration
}

// Millis returns the minimum time in milliseconds.
func (r Result) Millis() float64 {
	return durationMillis(r.Min)
}
