package gpbench

import (
	"fmt"
	"math"
)

// DefaultLogHyper is the log of every initial hyperparameter and of the
// model noise variance.
const DefaultLogHyper = 0.3

// LabelFixedSE labels the configuration whose variance is fixed.
const LabelFixedSE = "fix(se, σ)"

// Entry is a named kernel configuration.
type Entry struct {
	Label string
	Expr  Expr
}

// Catalog is an ordered list of configurations. Order is the reporting
// order.
type Catalog []Entry

// Labels returns the labels in catalog order.
func (c Catalog) Labels() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.Label
	}

	return out
}

// Lookup returns the entry with the given label.
func (c Catalog) Lookup(label string) (Entry, error) {
	for _, e := range c {
		if e.Label == label {
			return e, nil
		}
	}

	return Entry{}, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}

// DefaultCatalog returns the benchmark configurations for data with dim
// input columns.
//
// Parameters:
// - dim: Number of input columns; every entry builds only when dim >= 2
// - logHyper: Log of every initial variance, lengthscale and power
//
// Returns:
// - Catalog: Twelve entries in reporting order
//
// Configurations, in order:
//
//	se, mat12, rq                        base kernels over all dims
//	se+rq, se+mat12, se*rq, se*mat12     pairwise compositions
//	se+mat12+rq, (se+mat12)*rq           three-way compositions
//	mask(se, [1])                        se on the first column only
//	mask(se, [1])+mask(rq, [2:10])       se on column 1, rq on the rest
//	fix(se, σ)                           se over 2 dims, variance fixed
func DefaultCatalog(dim int, logHyper float64) Catalog {
	v := math.Exp(logHyper)
	h := Hyperparameters{Variance: v, Lengthscale: v, Power: v}

	se := func() Expr { return RBF(dim, h) }
	mat12 := func() Expr { return Exponential(dim, h) }
	rq := func() Expr { return RatQuad(dim, h) }

	rest := make([]int, 0, dim)
	for d := 1; d < dim; d++ {
		rest = append(rest, d)
	}

	return Catalog{
		{Label: "se", Expr: se()},
		{Label: "mat12", Expr: mat12()},
		{Label: "rq", Expr: rq()},
		{Label: "se+rq", Expr: Sum(se(), rq())},
		{Label: "se+mat12", Expr: Sum(se(), mat12())},
		{Label: "se*rq", Expr: Product(se(), rq())},
		{Label: "se*mat12", Expr: Product(se(), mat12())},
		{Label: "se+mat12+rq", Expr: Sum(se(), mat12(), rq())},
		{Label: "(se+mat12)*rq", Expr: Product(Sum(se(), mat12()), rq())},
		{Label: "mask(se, [1])", Expr: RBF(1, h, WithActiveDims(0))},
		{Label: fmt.Sprintf("mask(se, [1])+mask(rq, [2:%d])", dim), Expr: Sum(
			RBF(1, h, WithActiveDims(0)),
			RatQuad(dim-1, h, WithActiveDims(rest...)),
		)},
		{Label: LabelFixedSE, Expr: RBF(2, h, WithFixed(ParamVariance))},
	}
}
