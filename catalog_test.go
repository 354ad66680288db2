package gpbench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLabels(t *testing.T) {
	catalog := DefaultCatalog(10, DefaultLogHyper)

	assert.Equal(t, []string{
		"se",
		"mat12",
		"rq",
		"se+rq",
		"se+mat12",
		"se*rq",
		"se*mat12",
		"se+mat12+rq",
		"(se+mat12)*rq",
		"mask(se, [1])",
		"mask(se, [1])+mask(rq, [2:10])",
		"fix(se, σ)",
	}, catalog.Labels())

	// Every configuration builds for ten input columns.
	for _, e := range catalog {
		_, err := Build(e.Expr, 10)
		assert.NoError(t, err, e.Label)
	}
}

func TestDefaultCatalogDeterministic(t *testing.T) {
	want := math.Exp(0.3)

	for _, label := range DefaultCatalog(10, DefaultLogHyper).Labels() {
		a, err := DefaultCatalog(10, DefaultLogHyper).Lookup(label)
		require.NoError(t, err)

		b, err := DefaultCatalog(10, DefaultLogHyper).Lookup(label)
		require.NoError(t, err)

		ka, err := Build(a.Expr, 10)
		require.NoError(t, err)

		kb, err := Build(b.Expr, 10)
		require.NoError(t, err)

		pa, pb := ka.Params(), kb.Params()
		require.Len(t, pb, len(pa))

		for i := range pa {
			assert.Equal(t, pa[i].Name, pb[i].Name)
			assert.Equal(t, pa[i].Value, pb[i].Value)
			assert.InDelta(t, want, pa[i].Value, 1e-15)

			// Built kernels never share parameters.
			assert.NotSame(t, pa[i], pb[i])
		}
	}
}

func TestFixedVarianceConfiguration(t *testing.T) {
	entry, err := DefaultCatalog(10, DefaultLogHyper).Lookup(LabelFixedSE)
	require.NoError(t, err)

	k, err := Build(entry.Expr, 10)
	require.NoError(t, err)

	params := k.Params()
	require.Len(t, params, 2)

	assert.Equal(t, "se.variance", params[0].Name)
	assert.True(t, params[0].Fixed)

	assert.Equal(t, "se.lengthscale", params[1].Name)
	assert.False(t, params[1].Fixed)
}

func TestCatalogLookupUnknown(t *testing.T) {
	_, err := DefaultCatalog(10, DefaultLogHyper).Lookup("se+se")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}
