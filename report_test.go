package gpbench

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	results := []Result{
		{Label: "se", Min: 1234 * time.Microsecond},
		{Label: "fix(se, σ)", Min: 56780 * time.Microsecond},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, results))

	assert.Equal(t,
		"                            se:  1.2\n"+
			"                    fix(se, σ): 56.8\n",
		buf.String())
}

func TestEncodeCSV(t *testing.T) {
	results := []Result{
		{Label: "mask(se, [1])", Min: 1500 * time.Microsecond},
		{Label: `odd"label`, Min: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, results))

	assert.Equal(t, "\"mask(se, [1])\",1.500000\n\"odd\"\"label\",0.000000\n", buf.String())
}

func TestWriteCSVMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench_results", "GPy.csv")

	err := WriteCSV(path, []Result{{Label: "se"}})
	assert.ErrorIs(t, err, ErrOutputDir)

	// A file where the directory should be.
	file := filepath.Join(t.TempDir(), "bench_results")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err = WriteCSV(filepath.Join(file, "GPy.csv"), []Result{{Label: "se"}})
	assert.ErrorIs(t, err, ErrOutputDir)
}

func TestWriteInspection(t *testing.T) {
	ds := syntheticDataset(5, 2, 21)

	entry, err := DefaultCatalog(2, DefaultLogHyper).Lookup(LabelFixedSE)
	require.NoError(t, err)

	model, err := Inspect(ds, entry, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteInspection(&buf, entry.Label, model))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "fix(se, σ) log-likelihood: "))
	assert.Contains(t, lines[1], "se.variance")
	assert.Contains(t, lines[1], "(fixed)")
	assert.NotContains(t, lines[2], "(fixed)")
	assert.Contains(t, lines[3], "Gaussian_noise.variance")
}

// TestEndToEnd writes a 10+1 column dataset, runs the full catalog and checks
// the persisted rows.
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "simdata.csv")
	outDir := filepath.Join(dir, "bench_results")
	outPath := filepath.Join(outDir, "GPy.csv")

	require.NoError(t, os.Mkdir(outDir, 0o755))

	rng := rand.New(rand.NewSource(31))

	var sb strings.Builder

	sb.WriteString("x0,x1,x2,x3,x4,x5,x6,x7,x8,x9,y\n")

	for i := 0; i < 15; i++ {
		for d := 0; d < 11; d++ {
			if d > 0 {
				sb.WriteString(",")
			}

			fmt.Fprintf(&sb, "%.6f", rng.NormFloat64())
		}

		sb.WriteString("\n")
	}

	require.NoError(t, os.WriteFile(dataPath, []byte(sb.String()), 0o600))

	ds, err := LoadDataset(dataPath, 10)
	require.NoError(t, err)

	catalog := DefaultCatalog(10, DefaultLogHyper)

	results, err := Run(context.Background(), quickConfig(), ds, catalog)
	require.NoError(t, err)

	var report bytes.Buffer
	require.NoError(t, WriteReport(&report, results))
	require.NoError(t, WriteCSV(outPath, results))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 12)

	row := regexp.MustCompile(`^"(.+)",(\d+\.\d{6})$`)

	for i, line := range lines {
		m := row.FindStringSubmatch(line)
		require.NotNil(t, m, line)
		assert.Equal(t, catalog[i].Label, m[1])
	}

	assert.Len(t, strings.Split(strings.TrimSuffix(report.String(), "\n"), "\n"), 12)
}
