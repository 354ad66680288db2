package gpbench

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration: 20 samples of one call
// each, no warm-up, noise variance e^0.3, and a forced collection as the
// settle hook.
func DefaultConfig() Config {
	return Config{
		Repeat:        20,
		Number:        1,
		Warmup:        0,
		NoiseVariance: math.Exp(DefaultLogHyper),
		Settle:        forceGC,
		PauseGC:       true,
		ProgressChan:  nil, // Default to no progress updates.
	}
}

// Run times ParametersChanged for every configuration in the catalog and
// returns one Result per configuration, in catalog order.
//
// Parameters:
// - ctx: Checked between configurations; a cancelled run returns ctx.Err()
// - config: Config controlling repetitions, noise and settling
// - ds: Dataset every model is fitted to
// - catalog: Configurations to time
//
// Returns:
// - []Result: Timings in catalog order
// - error: The first failure; no partial results are returned
//
// How it works, per configuration:
// 1. Settle, build the kernel and the model, settle again
// 2. Run config.Warmup untimed recomputations
// 3. Take config.Repeat samples, settling before each one
// 4. Keep the minimum sample as the score
//
// Important notes:
// - Configurations run one at a time; nothing is measured concurrently
// - Every configuration gets a freshly built kernel and model
func Run(ctx context.Context, config Config, ds *Dataset, catalog Catalog) ([]Result, error) {
	if config.Repeat < 1 {
		return nil, fmt.Errorf("repeat must be at least 1, got %d", config.Repeat)
	}

	logger := config.logger()
	settle := config.settle

	var (
		bestLabel string
		bestTime  = math.MaxFloat64
	)

	// Helper function to send progress updates.
	sendProgress := func(iteration int, label string, execTime float64) {
		if config.ProgressChan == nil {
			return
		}

		update := ProgressUpdate{
			Phase:             "Measuring",
			CurrentIteration:  iteration,
			TotalIterations:   len(catalog),
			Label:             label,
			LastExecutionTime: execTime,
			CurrentBestLabel:  bestLabel,
			CurrentBestTime:   bestTime,
		}

		select {
		case config.ProgressChan <- update:
		default:
			// Skip update if channel is full.
		}
	}

	results := make([]Result, 0, len(catalog))

	for i, entry := range catalog {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		settle()

		model, err := buildModel(ds, entry, config.NoiseVariance)
		if err != nil {
			return nil, err
		}

		settle()

		for w := 0; w < config.Warmup; w++ {
			if err := model.ParametersChanged(); err != nil {
				return nil, fmt.Errorf("%s: warm-up: %w", entry.Label, err)
			}
		}

		samples := make([]time.Duration, config.Repeat)

		for r := range samples {
			settle()

			samples[r], err = measureExecutionTime(model.ParametersChanged, config.Number, config.PauseGC)
			if err != nil {
				return nil, fmt.Errorf("%s: sample %d: %w", entry.Label, r+1, err)
			}
		}

		settle()

		best, _ := minOf(samples)
		result := Result{Label: entry.Label, Samples: samples, Min: best}
		results = append(results, result)

		if result.Millis() < bestTime {
			bestTime = result.Millis()
			bestLabel = entry.Label
		}

		logger.Debug("configuration measured",
			"label", entry.Label,
			"kernel", entry.Expr.String(),
			"min_ms", result.Millis(),
		)

		sendProgress(i+1, entry.Label, result.Millis())
	}

	return results, nil
}

// Inspect builds a fresh model for entry and runs ParametersChanged on it
// once, so its log-likelihood and gradient can be examined.
func Inspect(ds *Dataset, entry Entry, noiseVariance float64) (*GPRegression, error) {
	model, err := buildModel(ds, entry, noiseVariance)
	if err != nil {
		return nil, err
	}

	if err := model.ParametersChanged(); err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Label, err)
	}

	return model, nil
}

//////
// Internals.
//////

func buildModel(ds *Dataset, entry Entry, noiseVariance float64) (*GPRegression, error) {
	kern, err := Build(entry.Expr, ds.Dim())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Label, err)
	}

	model, err := NewGPRegression(ds.X, ds.Y, kern, noiseVariance)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Label, err)
	}

	return model, nil
}

func (c Config) settle() {
	if c.Settle != nil {
		c.Settle()
	}
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return log.New(io.Discard)
}
