package gpbench

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// syntheticDataset returns n rows of dim uniform inputs in [0, 2) and a
// smooth noisy target.
func syntheticDataset(n, dim int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))

	xs := make([]float64, n*dim)
	ys := make([]float64, n)

	for i := 0; i < n; i++ {
		var sum float64

		for d := 0; d < dim; d++ {
			v := 2 * rng.Float64()
			xs[i*dim+d] = v
			sum += v
		}

		ys[i] = sum/float64(dim) + 0.1*rng.NormFloat64()
	}

	return &Dataset{
		X: mat.NewDense(n, dim, xs),
		Y: mat.NewVecDense(n, ys),
	}
}

// quickConfig keeps tests fast while still exercising every step.
func quickConfig() Config {
	config := DefaultConfig()

	// Fewer samples than the default; tests only check the shape of results.
	config.Repeat = 3

	return config
}

func TestRun(t *testing.T) {
	ds := syntheticDataset(12, 10, 1)
	catalog := DefaultCatalog(10, DefaultLogHyper)

	results, err := Run(context.Background(), quickConfig(), ds, catalog)
	require.NoError(t, err)

	// One result per configuration, in catalog order.
	require.Len(t, results, len(catalog))

	for i, r := range results {
		assert.Equal(t, catalog[i].Label, r.Label)
		assert.Len(t, r.Samples, 3)

		// The score is the smallest sample.
		assert.GreaterOrEqual(t, r.Min.Nanoseconds(), int64(0))
		assert.GreaterOrEqual(t, r.Millis(), 0.0)

		for _, s := range r.Samples {
			assert.LessOrEqual(t, r.Min, s)
		}

		assert.Contains(t, r.Samples, r.Min)
	}
}

func TestRunChannel(t *testing.T) {
	ds := syntheticDataset(8, 4, 2)
	catalog := DefaultCatalog(4, DefaultLogHyper)

	config := quickConfig()

	// Create a bidirectional channel for progress updates
	progressChan := make(chan ProgressUpdate, len(catalog))

	// Assign the channel to config (will be automatically converted to send-only)
	config.ProgressChan = progressChan

	var counter int32

	done := make(chan struct{})

	// Start a goroutine to handle progress updates.
	go func() {
		defer close(done)

		for update := range progressChan {
			atomic.AddInt32(&counter, 1)
			assert.Equal(t, "Measuring", update.Phase)
			assert.Equal(t, len(catalog), update.TotalIterations)
			assert.LessOrEqual(t, update.CurrentBestTime, update.LastExecutionTime)
		}
	}()

	results, err := Run(context.Background(), config, ds, catalog)
	require.NoError(t, err)

	close(progressChan)
	<-done

	// Ensure events where emitted.
	assert.Equal(t, int32(len(catalog)), atomic.LoadInt32(&counter))
	assert.Len(t, results, len(catalog))
}

func TestRunSettleHook(t *testing.T) {
	ds := syntheticDataset(6, 3, 3)
	catalog := DefaultCatalog(3, DefaultLogHyper)

	config := quickConfig()
	config.Repeat = 2

	var calls int

	config.Settle = func() { calls++ }

	_, err := Run(context.Background(), config, ds, catalog)
	require.NoError(t, err)

	// Before and after the build, before each sample, and after sampling.
	assert.Equal(t, len(catalog)*(config.Repeat+3), calls)
}

func TestRunWarmupAndNumber(t *testing.T) {
	ds := syntheticDataset(6, 3, 4)
	catalog := DefaultCatalog(3, DefaultLogHyper)[:2]

	config := quickConfig()
	config.Warmup = 2
	config.Number = 3
	config.PauseGC = false

	results, err := Run(context.Background(), config, ds, catalog)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Run(ctx, quickConfig(), syntheticDataset(4, 3, 5), DefaultCatalog(3, DefaultLogHyper))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestRunInvalidConfiguration(t *testing.T) {
	ds := syntheticDataset(4, 3, 6)

	catalog := Catalog{
		{Label: "se", Expr: RBF(3, Hyperparameters{Variance: 1, Lengthscale: 1})},
		{Label: "bad", Expr: RBF(1, Hyperparameters{Variance: 1, Lengthscale: 1}, WithActiveDims(7))},
	}

	// No partial results on failure.
	results, err := Run(context.Background(), quickConfig(), ds, catalog)
	assert.ErrorIs(t, err, ErrInvalidKernel)
	assert.ErrorContains(t, err, "bad")
	assert.Nil(t, results)

	config := quickConfig()
	config.Repeat = 0

	_, err = Run(context.Background(), config, ds, catalog[:1])
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	ds := syntheticDataset(10, 10, 7)
	catalog := DefaultCatalog(10, DefaultLogHyper)

	entry, err := catalog.Lookup("se")
	require.NoError(t, err)

	model, err := Inspect(ds, entry, DefaultConfig().NoiseVariance)
	require.NoError(t, err)

	assert.Less(t, model.LogLikelihood(), 0.0)
	assert.Len(t, model.Gradient(), 3)
}

func BenchmarkParametersChanged(b *testing.B) {
	ds := syntheticDataset(200, 10, 8)

	for _, entry := range DefaultCatalog(10, DefaultLogHyper) {
		b.Run(entry.Label, func(b *testing.B) {
			model, err := buildModel(ds, entry, DefaultConfig().NoiseVariance)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := model.ParametersChanged(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
