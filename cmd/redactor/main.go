// Command redactor masks PII in CSV files before they leave a storage
// boundary.
//
// Structured columns (emails, phones, addresses, ...) are masked
// deterministically from their header names; designated free-text columns are
// scrubbed by the inference service, failing open to the original text when
// the service is unavailable; every other column is swept for SSN-shaped
// substrings.
//
// A separate discovery flow classifies which headers carry which PII
// category, using only the header row.
//
// Usage:
//
//	redactor redact -in data.csv [-out outdir]
//	redactor discover -in data.csv
//
// Configuration comes from redactor-config.json and environment variables
// (see internal/config); a .env file in the working directory is honored.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"csv-pii-redactor/internal/config"
	"csv-pii-redactor/internal/discovery"
	"csv-pii-redactor/internal/llm"
	"csv-pii-redactor/internal/logger"
	"csv-pii-redactor/internal/metrics"
	"csv-pii-redactor/internal/redactor"
	"csv-pii-redactor/internal/table"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	os.Exit(run(cfg, os.Args[1:]))
}

func run(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		printUsage()
		return 2
	}

	log := logger.New("MAIN", cfg.LogLevel)
	met := metrics.New()
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	ctx := context.Background()

	switch args[0] {
	case "redact":
		return runRedact(ctx, cfg, args[1:], timeout, log, met)
	case "discover":
		return runDiscover(ctx, cfg, args[1:], timeout, log, met)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 2
	}
}

func runRedact(ctx context.Context, cfg *config.Config, args []string, timeout time.Duration, log *logger.Logger, met *metrics.Metrics) int {
	fs := flag.NewFlagSet("redact", flag.ContinueOnError)
	in := fs.String("in", "", "input CSV file")
	out := fs.String("out", cfg.OutputDir, "output directory (default: input file's directory)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "redact: -in is required")
		return 2
	}

	client := llm.New(cfg.InferenceEndpoint, cfg.ModelID, cfg.MaxTokens, timeout, logger.New("LLM", cfg.LogLevel), met)
	r := redactor.New(client, cfg.FreeTextColumns, logger.New("REDACTOR", cfg.LogLevel), met)

	outPath, err := r.ProcessFile(ctx, *in, *out)
	var skip *redactor.ErrSkipped
	switch {
	case errors.As(err, &skip):
		log.Infof("skip", "%v", skip)
		return 0
	case err != nil:
		log.Errorf("redact", "%v", err)
		return 1
	}

	fmt.Printf("redacted: %s\n", outPath)
	printSummary(met)
	return 0
}

func runDiscover(ctx context.Context, cfg *config.Config, args []string, timeout time.Duration, log *logger.Logger, met *metrics.Metrics) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	in := fs.String("in", "", "input CSV file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "discover: -in is required")
		return 2
	}

	t, err := table.ReadFile(*in)
	if err != nil {
		log.Errorf("discover", "%v", err)
		return 1
	}

	cache, err := discovery.NewCache(cfg.SchemaCachePath)
	if err != nil {
		log.Errorf("discover", "open schema cache: %v", err)
		return 1
	}
	defer cache.Close() //nolint:errcheck // best-effort close on exit

	client := llm.New(cfg.InferenceEndpoint, cfg.ModelID, cfg.MaxTokens, timeout, logger.New("LLM", cfg.LogLevel), met)
	d := discovery.New(client, cfg.DiscoveryModelID, cache, cfg.PromptTemplateFile, logger.New("DISCOVERY", cfg.LogLevel), met)

	schema, err := d.Discover(ctx, t.Headers)
	if err != nil {
		var ce *discovery.CallError
		if errors.As(err, &ce) && ce.Raw != "" {
			log.Errorf("discover", "%v (raw response: %.200s)", err, ce.Raw)
		} else {
			log.Errorf("discover", "%v", err)
		}
		return 1
	}

	report, err := json.MarshalIndent(map[string]discovery.SchemaMap{"pii_columns": schema}, "", "  ")
	if err != nil {
		log.Errorf("discover", "encode schema: %v", err)
		return 1
	}
	fmt.Println(string(report))
	return 0
}

func printSummary(met *metrics.Metrics) {
	snap := met.Snapshot()
	fmt.Printf("cells examined: %d, inference calls: %d (%d failed open)\n",
		snap.Cells.Examined, snap.Inference.Calls, snap.Inference.Failures)
	for cat, n := range snap.Cells.Masked {
		fmt.Printf("  %-12s %d\n", cat, n)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage:
  redactor redact  -in data.csv [-out outdir]   mask PII in a CSV file
  redactor discover -in data.csv                classify headers by PII category
`)
}
