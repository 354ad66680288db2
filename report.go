package gpbench

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteReport prints one line per result, the label right-aligned in 30
// columns followed by the minimum time in milliseconds with one decimal.
func WriteReport(w io.Writer, results []Result) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%30s: %4.1f\n", r.Label, r.Millis()); err != nil {
			return err
		}
	}

	return nil
}

// EncodeCSV writes one `"label",milliseconds` row per result, without a
// header.
//
// Parameters:
// - w: Destination of the rows
// - results: Timings, written in order
//
// Returns:
// - error: The first write or flush failure
//
// Important notes:
// - Labels are always quoted, and quotes inside them are doubled
// - Milliseconds use %f, six decimals.
func EncodeCSV(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)

	for _, r := range results {
		label := strings.ReplaceAll(r.Label, `"`, `""`)
		if _, err := fmt.Fprintf(bw, "\"%s\",%f\n", label, r.Millis()); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteCSV writes EncodeCSV output to path, replacing any existing file.
//
// Parameters:
// - path: Output file
// - results: Timings, written in order
//
// Returns:
// - error: ErrOutputDir if the parent directory is missing or not a
//   directory, otherwise any create, write or close failure
//
// Important notes:
// - The parent directory is never created.
func WriteCSV(path string, results []Result) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOutputDir, dir)
		}

		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDir, dir)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := EncodeCSV(f, results); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// WriteInspection prints the log-likelihood of model followed by the name,
// value and gradient of each parameter. Fixed parameters are marked.
func WriteInspection(w io.Writer, label string, model *GPRegression) error {
	if _, err := fmt.Fprintf(w, "%s log-likelihood: %.6f\n", label, model.LogLikelihood()); err != nil {
		return err
	}

	params := model.Params()
	grad := model.Gradient()

	for i, p := range params {
		mark := ""
		if p.Fixed {
			mark = " (fixed)"
		}

		if _, err := fmt.Fprintf(w, "  %-40s %12.6f  grad %12.6f%s\n", p.Name, p.Value, grad[i], mark); err != nil {
			return err
		}
	}

	return nil
}
