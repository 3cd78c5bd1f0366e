package llm

import (
	"encoding/json"
	"strings"
)

// Outcome classifies how a JSON document was obtained from raw model output.
//
// Model output is not guaranteed well-formed JSON: it may be wrapped in
// prose or code fences, or carry escaped quoting. Extraction therefore runs
// in stages, and the outcome tells the caller which stage produced the
// result so the fallback path stays independently testable.
type Outcome int

const (
	// OutcomeParsed means the raw text parsed directly.
	OutcomeParsed Outcome = iota
	// OutcomeRecovered means parsing succeeded only after slicing the text
	// between its first '{' and last '}' and normalizing escapes.
	OutcomeRecovered
	// OutcomeDefaulted means no JSON could be extracted; the caller must
	// substitute its fixed default. This is not an error.
	OutcomeDefaulted
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeRecovered:
		return "recovered"
	default:
		return "defaulted"
	}
}

// ExtractJSON pulls a JSON document out of raw model output.
//
// Stage 1: trim and parse the whole text. Stage 2: slice from the first '{'
// to the last '}' inclusive, turn escaped quotes and escaped newlines into
// their literal forms, and parse that. If both fail the outcome is
// OutcomeDefaulted and the returned document is empty.
func ExtractJSON(raw string) (string, Outcome) {
	s := strings.TrimSpace(raw)
	if s != "" && json.Valid([]byte(s)) {
		return s, OutcomeParsed
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		candidate := s[start : end+1]
		candidate = strings.ReplaceAll(candidate, `\"`, `"`)
		candidate = strings.ReplaceAll(candidate, `\n`, "\n")
		if json.Valid([]byte(candidate)) {
			return candidate, OutcomeRecovered
		}
	}
	return "", OutcomeDefaulted
}
