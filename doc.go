// Package gpbench measures how long Gaussian Process regression models take
// to recompute their posterior after a parameter change, for a fixed catalog
// of kernel compositions.
//
// # Features
//
// The package includes the following key features:
//
//   - Kernel Expressions: Covariance functions are data. Base kernels
//     (squared exponential, exponential, rational quadratic) are combined
//     with Sum and Product into a tree and turned into an evaluable kernel
//     by Build
//   - Exact GP Regression: Cholesky based posterior, log marginal likelihood
//     and analytic gradients for every kernel parameter and the noise
//   - Active Dims: Any base kernel can be restricted to a subset of input
//     columns
//   - Fixed Parameters: Parameters can be marked as not optimisable
//   - Minimum-of-N Timing: Each configuration is sampled repeatedly and the
//     fastest sample is reported
//   - Settle Hook: A configurable step runs before every measurement to keep
//     memory reclamation out of the samples
//   - Progress Monitoring: Per-configuration updates via channels
//
// # Kernels
//
// The three base kernels are functions of the scaled distance
// r = ‖x - x'‖ / ℓ:
//
//	se     k = σ² exp(-r²/2)
//	mat12  k = σ² exp(-r)
//	rq     k = σ² (1 + r²/2)^(-α)
//
// Compose them as expressions:
//
//	h := Hyperparameters{Variance: 1, Lengthscale: 1, Power: 1}
//	expr := Product(Sum(RBF(10, h), Exponential(10, h)), RatQuad(10, h))
//	kern, err := Build(expr, 10)
//
// # Running a Benchmark
//
//	ds, err := LoadDataset("simdata.csv", 10)
//	if err != nil {
//	    return err
//	}
//
//	results, err := Run(ctx, DefaultConfig(), ds, DefaultCatalog(10, DefaultLogHyper))
//	if err != nil {
//	    return err
//	}
//
//	WriteReport(os.Stdout, results)
//	WriteCSV("bench_results/GPy.csv", results)
//
// # Configuration
//
// The Config struct allows customization of the measurement:
//
//	type Config struct {
//	    Repeat        int                   // Samples per configuration
//	    Number        int                   // Calls per sample
//	    Warmup        int                   // Untimed calls before sampling
//	    NoiseVariance float64               // Observation noise of each model
//	    Settle        func()                // Run before each measurement
//	    PauseGC       bool                  // Disable the GC while sampling
//	    Logger        *log.Logger           // Structured logs
//	    ProgressChan  chan<- ProgressUpdate // For progress monitoring
//	}
//
// # Thread Safety
//
// Run measures one configuration at a time on the calling goroutine. A
// GPRegression model guards its state with an RWMutex so accessors can be
// used from other goroutines while it recomputes.
package gpbench
