// Package masker provides the deterministic masking strategies applied to
// structured PII columns, plus the pattern-based scrubber for SSNs embedded
// in free text.
//
// Every masker is a pure string → string function. Malformed input never
// produces an error: a masker either passes the value through unchanged
// (when the value does not look like its category at all, e.g. an email
// without an '@') or returns a category-specific placeholder.
package masker

import (
	"regexp"
	"strings"
	"time"
)

// Category classifies the kind of PII a masking strategy targets.
type Category string

// Supported PII categories.
const (
	CategoryName       Category = "NAME"
	CategoryEmail      Category = "EMAIL"
	CategoryPhone      Category = "PHONE"
	CategoryAddress    Category = "ADDRESS"
	CategoryDOB        Category = "DOB"
	CategoryIPAddress  Category = "IP_ADDRESS"
	CategoryCreditCard Category = "CREDIT_CARD"
	CategoryPassword   Category = "PASSWORD"
	CategorySSNInText  Category = "SSN_IN_TEXT"
	CategoryFreeText   Category = "GENERIC_TEXT"
)

// Redaction placeholders returned when a value cannot be partially masked.
const (
	RedactedPlaceholder = "[REDACTED]"
	RedactedAddress     = "[REDACTED ADDRESS]"
	RedactedDOB         = "[REDACTED DOB]"
	RedactedIP          = "[REDACTED IP]"
	RedactedCC          = "[REDACTED CC]"
	RedactedSSN         = "[REDACTED SSN]"
)

// maskToken is appended after the retained leading character of names and
// email local parts.
const maskToken = "***"

var (
	nonDigit = regexp.MustCompile(`\D`)
	ssnShape = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// dobLayouts are tried in order by MaskDOB. US month-first forms come before
// day-first so ambiguous slash dates resolve the same way on every run.
var dobLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// MaskEmail keeps the first character of the local part and the full domain:
// "alice@example.com" → "a***@example.com". Values without an '@' or with an
// empty local part are not emails and pass through unchanged.
func MaskEmail(v string) string {
	local, domain, ok := strings.Cut(v, "@")
	if !ok || local == "" {
		return v
	}
	return string([]rune(local)[0]) + maskToken + "@" + domain
}

// MaskPhone keeps only the last four digits: "+1 (555) 867-5309" →
// "***-***-5309". Values with fewer than four digits yield [REDACTED].
func MaskPhone(v string) string {
	digits := nonDigit.ReplaceAllString(v, "")
	if len(digits) < 4 {
		return RedactedPlaceholder
	}
	return "***-***-" + digits[len(digits)-4:]
}

// MaskAddress hides the street line and keeps the rest: "1 Main St, Springfield,
// IL" → "***, Springfield, IL". Single-segment addresses have nothing safe to
// keep and yield [REDACTED ADDRESS].
func MaskAddress(v string) string {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return RedactedAddress
	}
	return "***, " + strings.TrimSpace(strings.Join(parts[1:], ","))
}

// MaskDOB hides the birth year while keeping month and day: "1987-03-14" →
// "****-03-14". Unparseable dates yield [REDACTED DOB].
func MaskDOB(v string) string {
	s := strings.TrimSpace(v)
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("****-01-02")
		}
	}
	return RedactedDOB
}

// MaskIP hides the first two octets of a dotted-quad address: "203.0.113.9" →
// "***.***.113.9". Anything without exactly four dot segments yields
// [REDACTED IP].
func MaskIP(v string) string {
	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return RedactedIP
	}
	return "***.***." + parts[2] + "." + parts[3]
}

// MaskCreditCard keeps the last four digits behind a fixed PAN-shaped mask:
// "4111-1111-1111-1111" → "**** **** **** 1111". Fewer than four digits
// yields [REDACTED CC].
func MaskCreditCard(v string) string {
	digits := nonDigit.ReplaceAllString(v, "")
	if len(digits) < 4 {
		return RedactedCC
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

// MaskName keeps the first character: "Alice" → "A***". The empty string
// passes through unchanged.
func MaskName(v string) string {
	if v == "" {
		return v
	}
	return string([]rune(v)[0]) + maskToken
}

// MaskPassword always returns the [REDACTED] placeholder.
func MaskPassword(string) string {
	return RedactedPlaceholder
}

// RedactSSN replaces every SSN-shaped substring (ddd-dd-dddd, word-bounded)
// with [REDACTED SSN]. Applying it to its own output is a no-op, so
// re-running a redaction pass is safe.
func RedactSSN(v string) string {
	return ssnShape.ReplaceAllString(v, RedactedSSN)
}
