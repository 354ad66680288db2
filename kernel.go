package gpbench

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// Kind identifies a base covariance function.
type Kind int

const (
	// KindRBF is the squared exponential kernel, k = σ² exp(-r²/2).
	KindRBF Kind = iota + 1

	// KindExponential is the Matérn 1/2 kernel, k = σ² exp(-r).
	KindExponential

	// KindRatQuad is the rational quadratic kernel, k = σ² (1 + r²/2)^(-α).
	KindRatQuad
)

// String returns the short name used in catalog labels.
func (k Kind) String() string {
	switch k {
	case KindRBF:
		return "se"
	case KindExponential:
		return "mat12"
	case KindRatQuad:
		return "rq"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Op tags the variant held by an Expr.
type Op int

const (
	// OpLeaf is a base kernel.
	OpLeaf Op = iota

	// OpSum adds its children elementwise.
	OpSum

	// OpProduct multiplies its children elementwise.
	OpProduct
)

// Parameter names shared by every base kernel.
const (
	ParamVariance    = "variance"
	ParamLengthscale = "lengthscale"
	ParamPower       = "power"
)

// Hyperparameters are the initial values of a base kernel.
type Hyperparameters struct {
	Variance    float64
	Lengthscale float64

	// Power is only read by KindRatQuad.
	Power float64
}

// Expr is a kernel composition expressed as data. A leaf carries a base
// kernel with its hyperparameters; sums and products carry children.
//
// Expressions are values: building the same Expr twice yields kernels with
// identical parameters and no shared state.
type Expr struct {
	Op Op

	// Leaf fields.
	Kind       Kind
	InputDim   int
	Hyper      Hyperparameters
	ActiveDims []int
	Fixed      []string

	// Composite fields.
	Children []Expr
}

// LeafOption customises a base kernel expression.
type LeafOption func(*Expr)

// Param is a named model parameter together with its latest gradient.
type Param struct {
	Name     string
	Value    float64
	Fixed    bool
	Gradient float64
}

// Kernel is an evaluable covariance function built from an Expr.
type Kernel interface {
	// K returns the covariance of the rows of X with themselves.
	K(X *mat.Dense) *mat.SymDense

	// Cross returns the covariance between the rows of X1 and X2.
	Cross(X1, X2 *mat.Dense) *mat.Dense

	// UpdateGradientsFull stores dL/dθ = Σᵢⱼ dL/dKᵢⱼ · dKᵢⱼ/dθ into the
	// Gradient of every parameter.
	UpdateGradientsFull(dLdK *mat.SymDense, X *mat.Dense)

	// Params returns the parameters in depth-first order.
	Params() []*Param
}

//////
// Expression constructors.
//////

// Leaf returns a base kernel expression over inputDim input columns.
func Leaf(kind Kind, inputDim int, hyper Hyperparameters, opts ...LeafOption) Expr {
	e := Expr{
		Op:       OpLeaf,
		Kind:     kind,
		InputDim: inputDim,
		Hyper:    hyper,
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

// RBF returns a squared exponential kernel expression.
func RBF(inputDim int, hyper Hyperparameters, opts ...LeafOption) Expr {
	return Leaf(KindRBF, inputDim, hyper, opts...)
}

// Exponential returns a Matérn 1/2 kernel expression.
func Exponential(inputDim int, hyper Hyperparameters, opts ...LeafOption) Expr {
	return Leaf(KindExponential, inputDim, hyper, opts...)
}

// RatQuad returns a rational quadratic kernel expression.
func RatQuad(inputDim int, hyper Hyperparameters, opts ...LeafOption) Expr {
	return Leaf(KindRatQuad, inputDim, hyper, opts...)
}

// Sum returns the elementwise sum of children.
func Sum(children ...Expr) Expr {
	return Expr{Op: OpSum, Children: children}
}

// Product returns the elementwise product of children.
func Product(children ...Expr) Expr {
	return Expr{Op: OpProduct, Children: children}
}

// WithActiveDims restricts a base kernel to the given input columns. Without
// it a kernel reads columns [0, inputDim).
func WithActiveDims(dims ...int) LeafOption {
	return func(e *Expr) {
		e.ActiveDims = append([]int(nil), dims...)
	}
}

// WithFixed marks the named parameters as not optimisable.
func WithFixed(names ...string) LeafOption {
	return func(e *Expr) {
		e.Fixed = append(e.Fixed, names...)
	}
}

// String renders the composition using the short kernel names, e.g.
// "(se+mat12)*rq".
func (e Expr) String() string {
	switch e.Op {
	case OpLeaf:
		return e.Kind.String()
	case OpSum:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}

		return strings.Join(parts, "+")
	case OpProduct:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			if c.Op == OpSum {
				parts[i] = "(" + c.String() + ")"
			} else {
				parts[i] = c.String()
			}
		}

		return strings.Join(parts, "*")
	default:
		return fmt.Sprintf("op(%d)", int(e.Op))
	}
}

//////
// Builder.
//////

// Build turns an expression into an evaluable kernel for data with dim input
// columns.
//
// Parameters:
// - e: Kernel expression
// - dim: Number of input columns of the data the kernel will be applied to
//
// Returns:
// - Kernel: A fresh kernel with its own parameters
// - error: ErrInvalidKernel if the expression is malformed
//
// Usage example:
//
//	h := Hyperparameters{Variance: 1, Lengthscale: 1, Power: 1}
//	k, err := Build(Product(Sum(RBF(10, h), Exponential(10, h)), RatQuad(10, h)), 10)
//
// Validation:
// - Active dims must lie in [0, dim), be unique, and number InputDim
// - Variance, lengthscale and (for RatQuad) power must be finite and > 0
// - Fixed names must be parameters of the leaf
// - Sums and products need at least one child
func Build(e Expr, dim int) (Kernel, error) {
	return build(e, dim, "")
}

func build(e Expr, dim int, prefix string) (Kernel, error) {
	switch e.Op {
	case OpLeaf:
		s, err := buildLeaf(e, dim, prefix)
		if err != nil {
			return nil, err
		}

		return s, nil
	case OpSum, OpProduct:
		if len(e.Children) == 0 {
			return nil, fmt.Errorf("%w: empty %s", ErrInvalidKernel, opName(e.Op))
		}

		children := make([]Kernel, len(e.Children))

		for i, c := range e.Children {
			k, err := build(c, dim, fmt.Sprintf("%s%s[%d].", prefix, opName(e.Op), i))
			if err != nil {
				return nil, err
			}

			children[i] = k
		}

		if e.Op == OpSum {
			return &sumKernel{parts: children}, nil
		}

		return &productKernel{parts: children}, nil
	default:
		return nil, fmt.Errorf("%w: unknown op %d", ErrInvalidKernel, int(e.Op))
	}
}

func opName(op Op) string {
	if op == OpSum {
		return "sum"
	}

	return "prod"
}

func buildLeaf(e Expr, dim int, prefix string) (*stationary, error) {
	switch e.Kind {
	case KindRBF, KindExponential, KindRatQuad:
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidKernel, int(e.Kind))
	}

	if e.InputDim < 1 {
		return nil, fmt.Errorf("%w: %s input dim %d", ErrInvalidKernel, e.Kind, e.InputDim)
	}

	active := e.ActiveDims
	if len(active) == 0 {
		active = make([]int, e.InputDim)
		for i := range active {
			active[i] = i
		}
	}

	if len(active) != e.InputDim {
		return nil, fmt.Errorf("%w: %s has input dim %d but %d active dims",
			ErrInvalidKernel, e.Kind, e.InputDim, len(active))
	}

	seen := make(map[int]bool, len(active))

	for _, d := range active {
		if d < 0 || d >= dim {
			return nil, fmt.Errorf("%w: %s active dim %d outside [0, %d)", ErrInvalidKernel, e.Kind, d, dim)
		}

		if seen[d] {
			return nil, fmt.Errorf("%w: %s active dim %d repeated", ErrInvalidKernel, e.Kind, d)
		}

		seen[d] = true
	}

	name := prefix + e.Kind.String() + "."

	s := &stationary{
		kind:        e.Kind,
		activeDims:  append([]int(nil), active...),
		variance:    &Param{Name: name + ParamVariance, Value: e.Hyper.Variance},
		lengthscale: &Param{Name: name + ParamLengthscale, Value: e.Hyper.Lengthscale},
	}
	if e.Kind == KindRatQuad {
		s.power = &Param{Name: name + ParamPower, Value: e.Hyper.Power}
	}

	for _, p := range s.Params() {
		if !(p.Value > 0) || math.IsInf(p.Value, 0) {
			return nil, fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidKernel, p.Name, p.Value)
		}
	}

	for _, f := range e.Fixed {
		p := s.param(f)
		if p == nil {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrInvalidKernel, e.Kind, f)
		}

		p.Fixed = true
	}

	return s, nil
}

//////
// Base kernels.
//////

// stationary evaluates a base kernel as a function of the scaled distance
// r = ‖x - x'‖ / ℓ over its active dims.
type stationary struct {
	kind        Kind
	activeDims  []int
	variance    *Param
	lengthscale *Param
	power       *Param
}

func (s *stationary) param(name string) *Param {
	switch name {
	case ParamVariance:
		return s.variance
	case ParamLengthscale:
		return s.lengthscale
	case ParamPower:
		return s.power
	}

	return nil
}

// Params returns variance, lengthscale and, for RatQuad, power.
func (s *stationary) Params() []*Param {
	if s.power != nil {
		return []*Param{s.variance, s.lengthscale, s.power}
	}

	return []*Param{s.variance, s.lengthscale}
}

func (s *stationary) r(a, b []float64) float64 {
	var sum float64

	for _, d := range s.activeDims {
		diff := a[d] - b[d]
		sum += diff * diff
	}

	return math.Sqrt(sum) / s.lengthscale.Value
}

func (s *stationary) kOfR(r float64) float64 {
	v := s.variance.Value

	switch s.kind {
	case KindExponential:
		return v * math.Exp(-r)
	case KindRatQuad:
		return v * math.Exp(-s.power.Value*math.Log1p(r*r/2))
	default:
		return v * math.Exp(-r*r/2)
	}
}

// dKdr returns the derivative of kOfR with respect to r.
func (s *stationary) dKdr(r, k float64) float64 {
	switch s.kind {
	case KindExponential:
		return -k
	case KindRatQuad:
		return -s.power.Value * r * k / (1 + r*r/2)
	default:
		return -r * k
	}
}

// K returns the covariance of the rows of X.
func (s *stationary) K(X *mat.Dense) *mat.SymDense {
	n, _ := X.Dims()
	out := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		xi := X.RawRowView(i)
		for j := i; j < n; j++ {
			out.SetSym(i, j, s.kOfR(s.r(xi, X.RawRowView(j))))
		}
	}

	return out
}

// Cross returns the covariance between the rows of X1 and X2.
func (s *stationary) Cross(X1, X2 *mat.Dense) *mat.Dense {
	n1, _ := X1.Dims()
	n2, _ := X2.Dims()
	out := mat.NewDense(n1, n2, nil)

	for i := 0; i < n1; i++ {
		xi := X1.RawRowView(i)
		for j := 0; j < n2; j++ {
			out.Set(i, j, s.kOfR(s.r(xi, X2.RawRowView(j))))
		}
	}

	return out
}

// UpdateGradientsFull computes gradients for every parameter, fixed ones
// included.
func (s *stationary) UpdateGradientsFull(dLdK *mat.SymDense, X *mat.Dense) {
	n, _ := X.Dims()
	v := s.variance.Value
	l := s.lengthscale.Value

	var dVar, dLen, dPow float64

	for i := 0; i < n; i++ {
		xi := X.RawRowView(i)
		for j := i; j < n; j++ {
			w := dLdK.At(i, j)
			if i != j {
				w *= 2
			}

			r := s.r(xi, X.RawRowView(j))
			k := s.kOfR(r)

			dVar += w * k / v
			dLen += w * s.dKdr(r, k) * (-r / l)

			if s.power != nil {
				dPow += w * (-k * math.Log1p(r*r/2))
			}
		}
	}

	s.variance.Gradient = dVar
	s.lengthscale.Gradient = dLen

	if s.power != nil {
		s.power.Gradient = dPow
	}
}

//////
// Compositions.
//////

type sumKernel struct {
	parts []Kernel
}

func (k *sumKernel) K(X *mat.Dense) *mat.SymDense {
	out := k.parts[0].K(X)
	for _, p := range k.parts[1:] {
		out.AddSym(out, p.K(X))
	}

	return out
}

func (k *sumKernel) Cross(X1, X2 *mat.Dense) *mat.Dense {
	out := k.parts[0].Cross(X1, X2)
	for _, p := range k.parts[1:] {
		out.Add(out, p.Cross(X1, X2))
	}

	return out
}

func (k *sumKernel) UpdateGradientsFull(dLdK *mat.SymDense, X *mat.Dense) {
	for _, p := range k.parts {
		p.UpdateGradientsFull(dLdK, X)
	}
}

func (k *sumKernel) Params() []*Param {
	return concatParams(k.parts)
}

type productKernel struct {
	parts []Kernel
}

func (k *productKernel) K(X *mat.Dense) *mat.SymDense {
	out := k.parts[0].K(X)
	for _, p := range k.parts[1:] {
		mulElemSym(out, p.K(X))
	}

	return out
}

func (k *productKernel) Cross(X1, X2 *mat.Dense) *mat.Dense {
	out := k.parts[0].Cross(X1, X2)
	for _, p := range k.parts[1:] {
		out.MulElem(out, p.Cross(X1, X2))
	}

	return out
}

// UpdateGradientsFull hands each factor dL/dK scaled by the product of the
// other factors.
func (k *productKernel) UpdateGradientsFull(dLdK *mat.SymDense, X *mat.Dense) {
	ks := make([]*mat.SymDense, len(k.parts))
	for i, p := range k.parts {
		ks[i] = p.K(X)
	}

	for i, p := range k.parts {
		scaled := mat.NewSymDense(dLdK.SymmetricDim(), nil)
		scaled.CopySym(dLdK)

		for j, other := range ks {
			if j != i {
				mulElemSym(scaled, other)
			}
		}

		p.UpdateGradientsFull(scaled, X)
	}
}

func (k *productKernel) Params() []*Param {
	return concatParams(k.parts)
}

func concatParams(parts []Kernel) []*Param {
	var out []*Param
	for _, p := range parts {
		out = append(out, p.Params()...)
	}

	return out
}

// mulElemSym sets dst to the elementwise product of dst and b.
func mulElemSym(dst, b *mat.SymDense) {
	n := dst.SymmetricDim()

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, dst.At(i, j)*b.At(i, j))
		}
	}
}
