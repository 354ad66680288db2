package gpbench

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// maxJitterTries is how many times the diagonal is inflated before a
// factorisation is reported as failed.
const maxJitterTries = 5

// GPRegression implements a thread-safe exact Gaussian Process regression
// model with a zero mean and Gaussian observation noise.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - X: Observed input points, one per row
// - Y: Observed targets, one per row of X
// - kern: Covariance function
// - noise: Observation noise variance
//
// Thread safety:
// - All fields are protected by the RWMutex
// - Uses RLock for read operations (LogLikelihood, Gradient, Predict)
// - Uses Lock for write operations (ParametersChanged, SetParameterValues)
//
// Memory usage:
// - O(n²) for the factorised covariance matrix and dL/dK
// - n is the number of observations.
type GPRegression struct {
	// mu protects access to all fields
	mu sync.RWMutex

	X *mat.Dense
	Y *mat.VecDense

	kern  Kernel
	noise *Param

	// Posterior state refreshed by ParametersChanged. Replaced only when a
	// recomputation succeeds.
	chol   *mat.Cholesky
	alpha  *mat.VecDense
	logLik float64
}

//////
// Methods.
//////

// ParametersChanged recomputes everything that depends on the parameter
// values: the covariance matrix, its Cholesky factor, the log marginal
// likelihood and the gradient of every parameter. This is the dominant cost
// of fitting a model and is what the benchmark times.
//
// Mathematical details:
//
//	K     = k(X, X) + σₙ² I
//	α     = K⁻¹ y
//	log p = -½ yᵀα - ½ log|K| - n/2 log 2π
//	dL/dK = ½ (ααᵀ - K⁻¹)
//
// Important notes:
// - If K is not positive definite, jitter of increasing size is added to
//   the diagonal, up to maxJitterTries times
// - Fixed parameters still get a gradient; callers filter with
//   FreeGradient
// - On error the previous posterior is kept
//
// Thread safety:
// - Protected by write mutex (gp.mu)
// - Blocks readers while running.
func (gp *GPRegression) ParametersChanged() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.parametersChanged()
}

func (gp *GPRegression) parametersChanged() error {
	n := gp.Y.Len()

	K := gp.kern.K(gp.X)
	for i := 0; i < n; i++ {
		K.SetSym(i, i, K.At(i, i)+gp.noise.Value)
	}

	chol := new(mat.Cholesky)
	if err := jitchol(chol, K); err != nil {
		return err
	}

	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, gp.Y); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	dLdK := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(dLdK); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	var trace float64

	for i := 0; i < n; i++ {
		ai := alpha.AtVec(i)
		for j := i; j < n; j++ {
			dLdK.SetSym(i, j, 0.5*(ai*alpha.AtVec(j)-dLdK.At(i, j)))
		}

		trace += dLdK.At(i, i)
	}

	gp.chol = chol
	gp.alpha = alpha
	gp.logLik = -0.5*float64(n)*math.Log(2*math.Pi) - 0.5*chol.LogDet() - 0.5*mat.Dot(gp.Y, alpha)

	gp.kern.UpdateGradientsFull(dLdK, gp.X)
	gp.noise.Gradient = trace

	return nil
}

// LogLikelihood returns the log marginal likelihood computed by the last
// ParametersChanged.
func (gp *GPRegression) LogLikelihood() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.logLik
}

// Params returns the kernel parameters followed by the noise variance.
//
// Important notes:
// - The returned pointers are live; mutate them through
//   SetParameterValues so the posterior stays consistent.
func (gp *GPRegression) Params() []*Param {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.params()
}

func (gp *GPRegression) params() []*Param {
	return append(gp.kern.Params(), gp.noise)
}

// Gradient returns dL/dθ for every parameter in Params order, fixed ones
// included.
func (gp *GPRegression) Gradient() []float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	params := gp.params()

	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = p.Gradient
	}

	return out
}

// FreeGradient returns dL/dθ for the parameters that are not fixed, in
// Params order.
func (gp *GPRegression) FreeGradient() []float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	var out []float64

	for _, p := range gp.params() {
		if !p.Fixed {
			out = append(out, p.Gradient)
		}
	}

	return out
}

// SetParameterValues assigns values to every parameter in Params order and
// recomputes the posterior.
//
// Parameters:
// - values: One value per parameter, fixed ones included
//
// Returns:
// - error: If the length does not match, a value is not positive and
//   finite, or ParametersChanged fails
//
// Important notes:
// - On error the previous values and posterior are left in place.
func (gp *GPRegression) SetParameterValues(values []float64) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	params := gp.params()
	if len(values) != len(params) {
		return fmt.Errorf("expected %d parameter values, got %d", len(params), len(values))
	}

	for i, v := range values {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be positive and finite, got %v", params[i].Name, v)
		}
	}

	previous := make([]float64, len(params))

	for i, p := range params {
		previous[i] = p.Value
		p.Value = values[i]
	}

	if err := gp.parametersChanged(); err != nil {
		for i, p := range params {
			p.Value = previous[i]
		}

		return err
	}

	return nil
}

// Predict estimates the latent function mean and variance at x.
//
// Parameters:
// - x: Input point with as many columns as the training inputs
//
// Returns:
// - mean: Posterior mean of the latent function at x
// - variance: Posterior variance of the latent function at x (noise excluded)
//
// Both are NaN when len(x) differs from the number of training columns.
//
// Usage example:
//
//	mean, variance := gp.Predict(row)
//	fmt.Printf("%v ± %v\n", mean, math.Sqrt(variance))
func (gp *GPRegression) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if _, c := gp.X.Dims(); len(x) != c {
		return math.NaN(), math.NaN()
	}

	xs := mat.NewDense(1, len(x), append([]float64(nil), x...))
	kStar := mat.NewVecDense(gp.Y.Len(), gp.kern.Cross(gp.X, xs).RawMatrix().Data)

	// Cross allocates a fresh n×1 matrix, so its backing data is the column.
	mean = mat.Dot(kStar, gp.alpha)

	v := mat.NewVecDense(gp.Y.Len(), nil)
	if err := gp.chol.SolveVecTo(v, kStar); err != nil {
		return mean, math.NaN()
	}

	variance = gp.kern.Cross(xs, xs).At(0, 0) - mat.Dot(kStar, v)

	return mean, variance
}

// jitchol factorises K into chol, adding growing jitter to the diagonal
// when K is numerically not positive definite. The jitter starts at 1e-6
// times the mean diagonal and grows tenfold per try. A non-positive
// diagonal entry fails straight away.
func jitchol(chol *mat.Cholesky, K *mat.SymDense) error {
	if chol.Factorize(K) {
		return nil
	}

	n := K.SymmetricDim()

	var meanDiag float64

	for i := 0; i < n; i++ {
		d := K.At(i, i)
		if !(d > 0) {
			return fmt.Errorf("%w: diagonal entry %d is %v", ErrNotPositiveDefinite, i, d)
		}

		meanDiag += d
	}

	meanDiag /= float64(n)

	jitter := meanDiag * 1e-6
	jittered := mat.NewSymDense(n, nil)

	for try := 0; try < maxJitterTries; try++ {
		jittered.CopySym(K)

		for i := 0; i < n; i++ {
			jittered.SetSym(i, i, jittered.At(i, i)+jitter)
		}

		if chol.Factorize(jittered) {
			return nil
		}

		jitter *= 10
	}

	return fmt.Errorf("%w: jitter up to %g did not help", ErrNotPositiveDefinite, jitter/10)
}

//////
// Factory.
//////

// NewGPRegression creates a regression model and runs ParametersChanged once
// so that the posterior is ready.
//
// Parameters:
// - X: n×d input matrix
// - Y: n targets
// - kern: Kernel built for d input columns
// - noiseVariance: Observation noise variance (must be positive)
//
// Returns:
// - *GPRegression: Pointer to the fitted model
// - error: If shapes disagree, the noise is not positive, or the first
//   factorisation fails
//
// Best practices:
// - Create a new instance per kernel configuration
// - Don't share a built Kernel between models.
func NewGPRegression(X *mat.Dense, Y *mat.VecDense, kern Kernel, noiseVariance float64) (*GPRegression, error) {
	n, _ := X.Dims()
	if n == 0 || n != Y.Len() {
		return nil, fmt.Errorf("%w: %d inputs for %d targets", ErrDataset, n, Y.Len())
	}

	if !(noiseVariance > 0) || math.IsInf(noiseVariance, 0) {
		return nil, fmt.Errorf("noise variance must be positive and finite, got %v", noiseVariance)
	}

	gp := &GPRegression{
		X:     X,
		Y:     Y,
		kern:  kern,
		noise: &Param{Name: "Gaussian_noise.variance", Value: noiseVariance},
	}

	if err := gp.ParametersChanged(); err != nil {
		return nil, err
	}

	return gp, nil
}
