// Package discovery infers which columns of a tabular dataset carry which
// PII category, from the column headers alone. The classification itself is
// delegated to the inference service: a prompt listing the headers is
// streamed back as text and reduced to a structured schema map with a fixed
// fallback when the model's output cannot be parsed.
//
// Discovery is decoupled from the masking pass: its result is consumed by
// upstream reporting tooling, not by the dispatcher.
package discovery

import (
	"context"
	"crypto/md5" // #nosec G501 -- md5 fingerprints header sets for cache keys, not cryptographic security
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"csv-pii-redactor/internal/llm"
	"csv-pii-redactor/internal/logger"
	"csv-pii-redactor/internal/metrics"
)

// StreamCompleter is the streaming inference call discovery depends on.
// *llm.Client satisfies it.
type StreamCompleter interface {
	StreamComplete(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// SchemaMap maps a PII category name to the column headers judged to belong
// to it.
type SchemaMap map[string][]string

// DefaultSchema returns the fixed fallback used when the model's output
// yields no parseable schema. It deliberately covers only NAME, DOB, PHONE
// and EMAIL, not the full masking category set.
func DefaultSchema() SchemaMap {
	return SchemaMap{
		"NAME":  {},
		"DOB":   {},
		"PHONE": {},
		"EMAIL": {},
	}
}

// CallError is a terminal discovery failure. Raw holds whatever response
// text was accumulated before the failure, possibly none.
type CallError struct {
	Raw string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("discovery call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ErrEmptyResponse reports a stream that completed without producing any text.
var ErrEmptyResponse = errors.New("empty response from inference stream")

// discoveryTemperature is low but nonzero: header classification benefits
// from slight sampling freedom, unlike the deterministic masking call.
const discoveryTemperature = 0.1

// headersSlot is the substitution marker in the prompt template.
const headersSlot = "{headers}"

const defaultPromptTemplate = `Analyze the following CSV column headers and identify which columns contain PII (personally identifiable information).

Headers: {headers}

Return ONLY a JSON object of this exact form, listing the matching header names per category:
{"pii_columns": {"NAME": [], "DOB": [], "PHONE": [], "EMAIL": []}}

Return ONLY the JSON object, no explanation.`

// schemaResponse is the document shape the model is asked to return.
type schemaResponse struct {
	PIIColumns SchemaMap `json:"pii_columns"`
}

// Discoverer runs the header-only PII schema discovery flow.
type Discoverer struct {
	llm      StreamCompleter
	model    string
	cache    SchemaCache
	template string
	log      *logger.Logger
	met      *metrics.Metrics
}

// New creates a Discoverer. promptFile optionally names a template file with
// a {headers} slot; when empty or unreadable the built-in template is used.
// A nil cache disables caching, a nil log gets a default error-level logger,
// a nil met disables metrics.
func New(sc StreamCompleter, model string, cache SchemaCache, promptFile string, log *logger.Logger, met *metrics.Metrics) *Discoverer {
	if log == nil {
		log = logger.New("DISCOVERY", "error")
	}

	template := defaultPromptTemplate
	if promptFile != "" {
		data, err := os.ReadFile(promptFile) // #nosec G304 -- path comes from operator config
		if err != nil {
			log.Warnf("prompt_template", "could not read %s, using built-in template: %v", promptFile, err)
		} else {
			template = string(data)
		}
	}

	return &Discoverer{llm: sc, model: model, cache: cache, template: template, log: log, met: met}
}

// Discover classifies the given column headers into PII categories.
//
// Transport failures and empty streams return a *CallError carrying the raw
// accumulated text. Unparsable model output is NOT an error: the fixed
// default schema is returned, so callers always get a structurally valid
// result from a completed call.
func (d *Discoverer) Discover(ctx context.Context, headers []string) (SchemaMap, error) {
	d.met.RecordDiscoveryCall()

	fp := fingerprint(headers)
	if d.cache != nil {
		if data, ok := d.cache.Get(fp); ok {
			var cached SchemaMap
			if err := json.Unmarshal(data, &cached); err == nil {
				d.met.RecordSchemaCacheHit()
				d.log.Debugf("cache_hit", "schema for %d headers served from cache", len(headers))
				return cached, nil
			}
			d.log.Warnf("cache_decode", "discarding corrupt cache entry %s", fp)
		}
		d.met.RecordSchemaCacheMiss()
	}

	prompt := strings.ReplaceAll(d.template, headersSlot, strings.Join(headers, ", "))

	raw, err := d.llm.StreamComplete(ctx, d.model, prompt, discoveryTemperature)
	if err != nil {
		return nil, &CallError{Raw: raw, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &CallError{Raw: raw, Err: ErrEmptyResponse}
	}

	schema, outcome := d.parseSchema(raw)
	d.log.Infof("discover_done", "%d headers classified (%s)", len(headers), outcome)

	if d.cache != nil && outcome != llm.OutcomeDefaulted {
		if data, err := json.Marshal(schema); err == nil {
			d.cache.Set(fp, data)
		}
	}
	return schema, nil
}

// parseSchema reduces the raw response text to a SchemaMap. A result that
// parses but does not carry a pii_columns object counts as defaulted too.
func (d *Discoverer) parseSchema(raw string) (SchemaMap, llm.Outcome) {
	doc, outcome := llm.ExtractJSON(raw)
	if outcome != llm.OutcomeDefaulted {
		var resp schemaResponse
		if err := json.Unmarshal([]byte(doc), &resp); err != nil || resp.PIIColumns == nil {
			outcome = llm.OutcomeDefaulted
		} else {
			return resp.PIIColumns, outcome
		}
	}

	d.met.RecordDiscoveryFallback()
	d.log.Warnf("schema_fallback", "no parseable schema in model output, using default: %.120s", raw)
	return DefaultSchema(), llm.OutcomeDefaulted
}

// fingerprint derives the cache key for an ordered header list.
func fingerprint(headers []string) string {
	h := md5.Sum([]byte(strings.Join(headers, "\x1f"))) // #nosec G401 -- cache key, not crypto
	return fmt.Sprintf("%x", h)
}
