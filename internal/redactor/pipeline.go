package redactor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"csv-pii-redactor/internal/table"
)

// processedMarker tags output file names so a redacted file is never
// re-processed when it lands back in a watched location.
const processedMarker = "_processed_"

// ErrSkipped reports why an input file was not processed. Skips are expected
// operational outcomes, not failures.
type ErrSkipped struct {
	Path   string
	Reason string
}

func (e *ErrSkipped) Error() string {
	return fmt.Sprintf("skipped %s: %s", e.Path, e.Reason)
}

// ProcessFile reads the CSV at inPath, redacts it, and writes the result to
// outDir (or next to the input when outDir is empty) as
// <base>_processed_<UTC timestamp>.csv. It returns the output path.
//
// Non-CSV files and files already carrying the processed marker return an
// *ErrSkipped.
func (r *Redactor) ProcessFile(ctx context.Context, inPath, outDir string) (string, error) {
	base := filepath.Base(inPath)
	if !strings.HasSuffix(strings.ToLower(base), ".csv") {
		return "", &ErrSkipped{Path: inPath, Reason: "not a CSV file"}
	}
	if strings.Contains(base, processedMarker) {
		return "", &ErrSkipped{Path: inPath, Reason: "already processed"}
	}

	t, err := table.ReadFile(inPath)
	if err != nil {
		return "", err
	}
	r.log.Infof("file_loaded", "%s: %d rows", base, t.NumRows())

	redacted := r.Redact(ctx, t)

	if outDir == "" {
		outDir = filepath.Dir(inPath)
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	timestamp := time.Now().UTC().Format("20060102_150405")
	outPath := filepath.Join(outDir, fmt.Sprintf("%s%s%s.csv", stem, processedMarker, timestamp))

	if err := redacted.WriteFile(outPath); err != nil {
		return "", err
	}
	r.log.Infof("file_written", "%s", outPath)
	return outPath, nil
}
