// Package llm wraps the inference service used for model-assisted redaction.
//
// Two call shapes exist:
//   - RedactText: synchronous completion used to scrub free-text cells.
//     Deliberately fail-open: any transport or service error is logged and
//     the original text is returned unchanged, so an unavailable model never
//     fails or drops a redaction pass.
//   - StreamComplete: streaming completion used by schema discovery. The
//     response arrives as newline-delimited event envelopes which are folded
//     into one text; errors here are returned to the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"csv-pii-redactor/internal/logger"
	"csv-pii-redactor/internal/metrics"
)

// maxResponseBytes bounds how much of an inference response is read.
const maxResponseBytes = 10 << 20 // 10 MB

// redactPromptTemplate embeds the target text in the masking instruction.
const redactPromptTemplate = `Redact all personally identifiable information (PII) such as names, SSNs, phone numbers, emails, credit card numbers, etc. from this text:

Text: """%s"""

Redacted Text:`

// Client is a synchronous inference service client.
type Client struct {
	invokeURL string
	model     string
	maxTokens int
	http      *http.Client
	log       *logger.Logger
	met       *metrics.Metrics
}

// New creates a Client for the inference service at endpoint. model is used
// for RedactText calls; StreamComplete takes its model per call. A nil log
// gets a default error-level logger, a nil met disables metrics.
func New(endpoint, model string, maxTokens int, timeout time.Duration, log *logger.Logger, met *metrics.Metrics) *Client {
	if log == nil {
		log = logger.New("LLM", "error")
	}

	tr := &http.Transport{
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Warnf("transport_setup", "http2 configure failed, using HTTP/1.1: %v", err)
	}

	return &Client{
		invokeURL: strings.TrimSuffix(endpoint, "/") + "/invoke",
		model:     model,
		maxTokens: maxTokens,
		http:      &http.Client{Transport: tr, Timeout: timeout},
		log:       log,
		met:       met,
	}
}

// invokeRequest is the wire request for both call shapes.
type invokeRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens_to_sample"`
	Temperature   float64  `json:"temperature"`
	StopSequences []string `json:"stop_sequences,omitempty"`
	Stream        bool     `json:"stream,omitempty"`
}

// invokeResponse is the non-streaming wire response.
type invokeResponse struct {
	Completion string `json:"completion"`
}

// RedactText asks the model to scrub PII from one free-text value and returns
// the redacted rendering, trimmed of surrounding whitespace.
//
// Blank input returns unchanged without a network call. On ANY failure the
// original text is returned unchanged: structured columns are already covered
// deterministically, so pipeline availability wins over best-effort free-text
// coverage.
func (c *Client) RedactText(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	c.met.RecordLLMCall()

	completion, err := c.complete(ctx, invokeRequest{
		Model:         c.model,
		Prompt:        fmt.Sprintf(redactPromptTemplate, text),
		MaxTokens:     c.maxTokens,
		Temperature:   0,
		StopSequences: []string{"\n\n"},
	})
	if err != nil {
		c.met.RecordLLMFailure()
		c.log.Warnf("redact_text", "inference failed, returning original text: %v", err)
		return text
	}
	return strings.TrimSpace(completion)
}

// complete performs one blocking completion call.
func (c *Client) complete(ctx context.Context, reqBody invokeRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on HTTP response body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var ir invokeResponse
	if err := json.Unmarshal(data, &ir); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return ir.Completion, nil
}

// StreamComplete performs one streaming completion call and folds the event
// stream into the full response text. The returned string holds whatever text
// was accumulated, even when err is non-nil.
func (c *Client) StreamComplete(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	body, err := json.Marshal(invokeRequest{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on HTTP response body

	return c.collectStream(resp.Body)
}

// post sends one JSON request to the invoke endpoint and checks the status.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req) // #nosec G704 -- URL from trusted config, not user input
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", c.invokeURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck // best-effort close before status error
		return nil, fmt.Errorf("invoke %s: unexpected status %d", c.invokeURL, resp.StatusCode)
	}
	return resp, nil
}
