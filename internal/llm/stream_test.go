package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"csv-pii-redactor/internal/metrics"
)

func newStreamClient() (*Client, *metrics.Metrics) {
	met := metrics.New()
	return New("http://localhost:0", "m", 64, time.Second, nil, met), met
}

func TestCollectStream_TextDeltas(t *testing.T) {
	c, _ := newStreamClient()
	input := `{"type":"content_block_delta","delta":{"type":"text","text":"ab"}}` + "\n" +
		`{"type":"other"}` + "\n" +
		`{"type":"content_block_delta","delta":{"type":"text","text":"cd"}}` + "\n"

	got, err := c.collectStream(strings.NewReader(input))
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if got != "abcd" {
		t.Errorf("assembled = %q, want %q", got, "abcd")
	}
}

func TestCollectStream_MalformedFragmentSkipped(t *testing.T) {
	c, met := newStreamClient()
	input := `{"type":"content_block_delta","delta":{"type":"text","text":"keep"}}` + "\n" +
		`{{{not json` + "\n" +
		`{"type":"content_block_delta","delta":{"type":"text","text":"-me"}}` + "\n"

	got, err := c.collectStream(strings.NewReader(input))
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if got != "keep-me" {
		t.Errorf("malformed fragment lost accumulated text: %q", got)
	}
	if met.Snapshot().Discovery.FragmentsSkipped != 1 {
		t.Errorf("FragmentsSkipped = %d, want 1", met.Snapshot().Discovery.FragmentsSkipped)
	}
}

func TestCollectStream_SSEPrefixStripped(t *testing.T) {
	c, _ := newStreamClient()
	input := "data: " + `{"type":"content_block_delta","delta":{"type":"text","text":"hi"}}` + "\n\n"

	got, err := c.collectStream(strings.NewReader(input))
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if got != "hi" {
		t.Errorf("assembled = %q, want %q", got, "hi")
	}
}

func TestCollectStream_NonDeltaEventsIgnored(t *testing.T) {
	c, _ := newStreamClient()
	input := `{"type":"message_start"}` + "\n" +
		`{"type":"content_block_stop"}` + "\n" +
		`{"type":"ping"}` + "\n"

	got, err := c.collectStream(strings.NewReader(input))
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty accumulator, got %q", got)
	}
}

func TestCollectStream_EmptyStream(t *testing.T) {
	c, _ := newStreamClient()
	got, err := c.collectStream(strings.NewReader(""))
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

// brokenReader yields some data and then a read error.
type brokenReader struct {
	data string
	done bool
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("connection reset")
	}
	r.done = true
	n := copy(p, r.data)
	return n, nil
}

func TestCollectStream_ReadError_KeepsAccumulated(t *testing.T) {
	c, _ := newStreamClient()
	r := &brokenReader{data: `{"type":"content_block_delta","delta":{"type":"text","text":"partial"}}` + "\n"}

	got, err := c.collectStream(r)
	if err == nil {
		t.Fatal("expected stream-level error")
	}
	if got != "partial" {
		t.Errorf("accumulated text lost on stream error: %q", got)
	}
}

var _ io.Reader = (*brokenReader)(nil)
