// Package metrics provides lightweight counters for one redaction engine run.
//
// Counters use sync/atomic so the cell-processing loop incurs no mutex
// contention. All methods are safe on a nil *Metrics, so components can be
// wired without metrics in tests.
package metrics

import (
	"sync/atomic"
	"time"
)

// knownCategories lists all PII category strings the dispatcher can produce.
// Used to pre-populate the per-category counter map in New() so Snapshot()
// can iterate a fixed set without racing on map writes.
var knownCategories = []string{
	"NAME", "EMAIL", "PHONE", "ADDRESS", "DOB",
	"IP_ADDRESS", "CREDIT_CARD", "PASSWORD", "SSN_IN_TEXT", "GENERIC_TEXT",
}

// Metrics holds all runtime counters for the engine.
// The per-category map is written only in New(); use New(), not the zero value.
type Metrics struct {
	// Cell counters
	CellsExamined atomic.Int64
	cellsMasked   map[string]*atomic.Int64 // per PII category

	// Inference counters
	LLMCalls    atomic.Int64 // mask-assist completions attempted
	LLMFailures atomic.Int64 // mask-assist calls that failed open

	// Discovery counters
	DiscoveryCalls     atomic.Int64
	DiscoveryFallbacks atomic.Int64 // unparsable model output, default schema used
	FragmentsSkipped   atomic.Int64 // malformed stream fragments dropped

	// Schema cache counters
	SchemaCacheHits   atomic.Int64
	SchemaCacheMisses atomic.Int64

	startTime time.Time
}

// New returns a Metrics with the start time recorded and the per-category
// counter map pre-populated for all known PII categories.
func New() *Metrics {
	m := &Metrics{
		startTime:   time.Now(),
		cellsMasked: make(map[string]*atomic.Int64, len(knownCategories)),
	}
	for _, c := range knownCategories {
		m.cellsMasked[c] = new(atomic.Int64)
	}
	return m
}

// RecordCell counts one examined cell. No-op on a nil receiver.
func (m *Metrics) RecordCell() {
	if m == nil {
		return
	}
	m.CellsExamined.Add(1)
}

// RecordMasked increments the masked-cell counter for the given category.
// Unknown categories and nil receivers are silently ignored.
func (m *Metrics) RecordMasked(category string) {
	if m == nil {
		return
	}
	if c, ok := m.cellsMasked[category]; ok {
		c.Add(1)
	}
}

// RecordLLMCall counts one mask-assist inference call.
func (m *Metrics) RecordLLMCall() {
	if m == nil {
		return
	}
	m.LLMCalls.Add(1)
}

// RecordLLMFailure counts one mask-assist call that failed open.
func (m *Metrics) RecordLLMFailure() {
	if m == nil {
		return
	}
	m.LLMFailures.Add(1)
}

// RecordDiscoveryCall counts one schema discovery invocation.
func (m *Metrics) RecordDiscoveryCall() {
	if m == nil {
		return
	}
	m.DiscoveryCalls.Add(1)
}

// RecordDiscoveryFallback counts one discovery result replaced by the
// default schema.
func (m *Metrics) RecordDiscoveryFallback() {
	if m == nil {
		return
	}
	m.DiscoveryFallbacks.Add(1)
}

// RecordFragmentSkipped counts one malformed stream fragment that was dropped.
func (m *Metrics) RecordFragmentSkipped() {
	if m == nil {
		return
	}
	m.FragmentsSkipped.Add(1)
}

// RecordSchemaCacheHit counts one discovery served from the schema cache.
func (m *Metrics) RecordSchemaCacheHit() {
	if m == nil {
		return
	}
	m.SchemaCacheHits.Add(1)
}

// RecordSchemaCacheMiss counts one discovery that had to call the model.
func (m *Metrics) RecordSchemaCacheMiss() {
	if m == nil {
		return
	}
	m.SchemaCacheMisses.Add(1)
}

// Snapshot returns a point-in-time copy of all metrics, safe for JSON encoding.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	masked := make(map[string]int64, len(m.cellsMasked))
	for c, n := range m.cellsMasked {
		if v := n.Load(); v > 0 {
			masked[c] = v
		}
	}
	return Snapshot{
		Cells: CellSnapshot{
			Examined: m.CellsExamined.Load(),
			Masked:   masked,
		},
		Inference: InferenceSnapshot{
			Calls:    m.LLMCalls.Load(),
			Failures: m.LLMFailures.Load(),
		},
		Discovery: DiscoverySnapshot{
			Calls:            m.DiscoveryCalls.Load(),
			Fallbacks:        m.DiscoveryFallbacks.Load(),
			FragmentsSkipped: m.FragmentsSkipped.Load(),
			CacheHits:        m.SchemaCacheHits.Load(),
			CacheMisses:      m.SchemaCacheMisses.Load(),
		},
		UptimeSecs: time.Since(m.startTime).Seconds(),
	}
}

// --- JSON-serialisable snapshot types ---

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Cells      CellSnapshot      `json:"cells"`
	Inference  InferenceSnapshot `json:"inference"`
	Discovery  DiscoverySnapshot `json:"discovery"`
	UptimeSecs float64           `json:"uptimeSeconds"`
}

// CellSnapshot summarizes the per-cell redaction work.
type CellSnapshot struct {
	Examined int64            `json:"examined"`
	Masked   map[string]int64 `json:"maskedByCategory"`
}

// InferenceSnapshot summarizes mask-assist model calls.
type InferenceSnapshot struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures"`
}

// DiscoverySnapshot summarizes schema discovery activity.
type DiscoverySnapshot struct {
	Calls            int64 `json:"calls"`
	Fallbacks        int64 `json:"fallbacks"`
	FragmentsSkipped int64 `json:"fragmentsSkipped"`
	CacheHits        int64 `json:"cacheHits"`
	CacheMisses      int64 `json:"cacheMisses"`
}
