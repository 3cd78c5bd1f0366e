package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"csv-pii-redactor/internal/config"
)

// captureStdout redirects os.Stdout to a pipe for the duration of fn,
// then returns everything written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	fn()

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("pipe write close: %v", closeErr)
	}
	os.Stdout = old

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	return string(out)
}

// loadTestConfig builds a quiet config pointed at the given inference
// endpoint, with a short timeout so unreachable-endpoint tests stay fast.
func loadTestConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	return &config.Config{
		InferenceEndpoint: endpoint,
		ModelID:           "test-model",
		DiscoveryModelID:  "test-discovery-model",
		MaxTokens:         256,
		RequestTimeoutSec: 1,
		LogLevel:          "error",
		FreeTextColumns:   []string{"notes", "comments"},
	}
}

func writeCSV(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_NoArgs(t *testing.T) {
	if code := run(loadTestConfig(t, ""), nil); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if code := run(loadTestConfig(t, ""), []string{"frobnicate"}); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunRedact_MissingIn(t *testing.T) {
	if code := run(loadTestConfig(t, ""), []string{"redact"}); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunRedact_EndToEnd(t *testing.T) {
	// Unreachable inference endpoint: the notes column fails open, the
	// structured columns are still masked, and the run succeeds.
	in := writeCSV(t, "email,notes\nalice@example.com,met with Bob\n")

	out := captureStdout(t, func() {
		code := run(loadTestConfig(t, "http://127.0.0.1:1"), []string{"redact", "-in", in})
		if code != 0 {
			t.Errorf("exit code = %d, want 0", code)
		}
	})
	if !strings.Contains(out, "redacted:") {
		t.Errorf("missing output path line: %q", out)
	}

	outPath := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "redacted:"))
	data, err := os.ReadFile(outPath) // #nosec G304 -- path produced by this test
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "a***@example.com") {
		t.Errorf("email not masked: %q", got)
	}
	if !strings.Contains(got, "met with Bob") {
		t.Errorf("notes should fail open unchanged: %q", got)
	}
}

func TestRunRedact_SkipNonCSV(t *testing.T) {
	if code := run(loadTestConfig(t, ""), []string{"redact", "-in", "not-a-table.txt"}); code != 0 {
		t.Errorf("skips should exit 0, got %d", code)
	}
}

func TestRunDiscover_PrintsSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte( //nolint:errcheck
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":"{\"pii_columns\":{\"EMAIL\":[\"email\"]}}"}}` + "\n"))
	}))
	defer srv.Close()

	in := writeCSV(t, "email,order_id\na@b.com,1\n")

	out := captureStdout(t, func() {
		code := run(loadTestConfig(t, srv.URL), []string{"discover", "-in", in})
		if code != 0 {
			t.Errorf("exit code = %d, want 0", code)
		}
	})

	var report map[string]map[string][]string
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if cols := report["pii_columns"]["EMAIL"]; len(cols) != 1 || cols[0] != "email" {
		t.Errorf("EMAIL columns: %v", cols)
	}
}

func TestRunDiscover_UnreachableEndpointFails(t *testing.T) {
	in := writeCSV(t, "a,b\n1,2\n")
	if code := run(loadTestConfig(t, "http://127.0.0.1:1"), []string{"discover", "-in", in}); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
