package redactor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"csv-pii-redactor/internal/masker"
	"csv-pii-redactor/internal/metrics"
	"csv-pii-redactor/internal/table"
)

// stubRedactor is a TextRedactor test double. With fail=true it mimics the
// fail-open client: the input comes back unchanged.
type stubRedactor struct {
	fail  bool
	calls int
}

func (s *stubRedactor) RedactText(_ context.Context, text string) string {
	s.calls++
	if s.fail {
		return text
	}
	return "[MODEL REDACTED]"
}

func newTestRedactor(stub *stubRedactor) *Redactor {
	return New(stub, []string{"notes", "comments"}, nil, metrics.New())
}

func TestRedact_EndToEnd(t *testing.T) {
	stub := &stubRedactor{}
	r := newTestRedactor(stub)

	in := &table.Table{
		Headers: []string{"email", "password", "notes"},
		Rows:    [][]string{{"a@b.com", "secret", "call 123-45-6789"}},
	}
	out := r.Redact(context.Background(), in)

	want := []string{"a***@b.com", "[REDACTED]", "[MODEL REDACTED]"}
	for i, w := range want {
		if out.Rows[0][i] != w {
			t.Errorf("cell %d: got %q, want %q", i, out.Rows[0][i], w)
		}
	}
	if stub.calls != 1 {
		t.Errorf("model called %d times, want 1", stub.calls)
	}
}

func TestRedact_FailOpenNotesUnchanged(t *testing.T) {
	stub := &stubRedactor{fail: true}
	r := newTestRedactor(stub)

	in := &table.Table{
		Headers: []string{"email", "password", "notes"},
		Rows:    [][]string{{"a@b.com", "secret", "call 123-45-6789"}},
	}
	out := r.Redact(context.Background(), in)

	if out.Rows[0][2] != "call 123-45-6789" {
		t.Errorf("notes cell should be unchanged when the model fails, got %q", out.Rows[0][2])
	}
	// Structured columns are still masked deterministically.
	if out.Rows[0][0] != "a***@b.com" || out.Rows[0][1] != "[REDACTED]" {
		t.Errorf("structured cells wrong: %v", out.Rows[0])
	}
}

func TestRedact_ShapePreserved(t *testing.T) {
	r := newTestRedactor(&stubRedactor{})
	in := &table.Table{
		Headers: []string{"first_name", "dob", "order_id", "phone"},
		Rows: [][]string{
			{"Alice", "1990-05-01", "A-100", "555-867-5309"},
			{"Bob", "bad date", "A-101", "12"},
			{"", "", "", ""},
		},
	}
	out := r.Redact(context.Background(), in)

	if out.NumRows() != in.NumRows() || out.NumCols() != in.NumCols() {
		t.Fatalf("shape changed: %dx%d -> %dx%d",
			in.NumRows(), in.NumCols(), out.NumRows(), out.NumCols())
	}
	for i, h := range in.Headers {
		if out.Headers[i] != h {
			t.Errorf("header %d changed: %q -> %q", i, h, out.Headers[i])
		}
	}
}

func TestRedact_InputNotMutated(t *testing.T) {
	r := newTestRedactor(&stubRedactor{})
	in := &table.Table{
		Headers: []string{"email"},
		Rows:    [][]string{{"a@b.com"}},
	}
	_ = r.Redact(context.Background(), in)
	if in.Rows[0][0] != "a@b.com" {
		t.Errorf("input table was mutated: %q", in.Rows[0][0])
	}
}

func TestRedact_StructuredColumns(t *testing.T) {
	r := newTestRedactor(&stubRedactor{})
	in := &table.Table{
		Headers: []string{"last_name", "address", "ip_address", "credit_card_number"},
		Rows:    [][]string{{"Smith", "1 Main St, Springfield", "203.0.113.9", "4111-1111-1111-1111"}},
	}
	out := r.Redact(context.Background(), in)

	want := []string{"S***", "***, Springfield", "***.***.113.9", "**** **** **** 1111"}
	for i, w := range want {
		if out.Rows[0][i] != w {
			t.Errorf("cell %d: got %q, want %q", i, out.Rows[0][i], w)
		}
	}
}

func TestRedact_HeaderCaseInsensitive(t *testing.T) {
	r := newTestRedactor(&stubRedactor{})
	in := &table.Table{
		Headers: []string{"EMAIL", "Password", " dob "},
		Rows:    [][]string{{"a@b.com", "hunter2", "1990-01-02"}},
	}
	out := r.Redact(context.Background(), in)

	want := []string{"a***@b.com", "[REDACTED]", "****-01-02"}
	for i, w := range want {
		if out.Rows[0][i] != w {
			t.Errorf("cell %d: got %q, want %q", i, out.Rows[0][i], w)
		}
	}
	// Header row itself is preserved verbatim.
	if out.Headers[0] != "EMAIL" {
		t.Errorf("header changed: %q", out.Headers[0])
	}
}

func TestRedact_UnknownColumnGetsPatternPath(t *testing.T) {
	stub := &stubRedactor{}
	r := newTestRedactor(stub)
	in := &table.Table{
		Headers: []string{"description"},
		Rows:    [][]string{{"ssn on file: 123-45-6789"}},
	}
	out := r.Redact(context.Background(), in)

	if !strings.Contains(out.Rows[0][0], masker.RedactedSSN) {
		t.Errorf("SSN not scrubbed on default path: %q", out.Rows[0][0])
	}
	if stub.calls != 0 {
		t.Errorf("default path must not call the model, got %d calls", stub.calls)
	}
}

func TestRedact_CommentsColumnUsesModel(t *testing.T) {
	stub := &stubRedactor{}
	r := newTestRedactor(stub)
	in := &table.Table{
		Headers: []string{"comments"},
		Rows:    [][]string{{"met with John"}, {"follow up"}},
	}
	out := r.Redact(context.Background(), in)

	if stub.calls != 2 {
		t.Errorf("model called %d times, want 2", stub.calls)
	}
	if out.Rows[0][0] != "[MODEL REDACTED]" {
		t.Errorf("comments cell: %q", out.Rows[0][0])
	}
}

func TestRedact_ZeroRowTable(t *testing.T) {
	r := newTestRedactor(&stubRedactor{})
	in := &table.Table{Headers: []string{"email", "notes"}}
	out := r.Redact(context.Background(), in)
	if out.NumRows() != 0 || out.NumCols() != 2 {
		t.Errorf("shape: %dx%d", out.NumRows(), out.NumCols())
	}
}

func TestErrSkippedMessage(t *testing.T) {
	var skip *ErrSkipped
	err := error(&ErrSkipped{Path: "x.txt", Reason: "not a CSV file"})
	if !errors.As(err, &skip) {
		t.Fatal("errors.As failed for *ErrSkipped")
	}
	if !strings.Contains(err.Error(), "x.txt") {
		t.Errorf("message: %q", err.Error())
	}
}
