// Package redactor classifies CSV columns by header name and routes every
// cell through the matching masking strategy.
//
// Classification is a fixed lookup, not a hierarchy: the lowercased header
// either names a structured PII column (dedicated field masker), a free-text
// column (model-assisted redaction), or falls through to the SSN pattern
// scrubber. Columns are independent; a pass never changes the table's shape.
package redactor

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"csv-pii-redactor/internal/logger"
	"csv-pii-redactor/internal/masker"
	"csv-pii-redactor/internal/metrics"
	"csv-pii-redactor/internal/table"
)

// TextRedactor scrubs PII from one free-text value. Implementations must be
// fail-open: on any internal failure they return the input unchanged.
type TextRedactor interface {
	RedactText(ctx context.Context, text string) string
}

// rule pairs a masking strategy with its PII category.
type rule struct {
	category masker.Category
	apply    func(string) string
}

// columnRules maps lowercased structured column names to their strategy.
var columnRules = map[string]rule{
	"password":           {masker.CategoryPassword, masker.MaskPassword},
	"first_name":         {masker.CategoryName, masker.MaskName},
	"last_name":          {masker.CategoryName, masker.MaskName},
	"email":              {masker.CategoryEmail, masker.MaskEmail},
	"phone":              {masker.CategoryPhone, masker.MaskPhone},
	"address":            {masker.CategoryAddress, masker.MaskAddress},
	"dob":                {masker.CategoryDOB, masker.MaskDOB},
	"ip_address":         {masker.CategoryIPAddress, masker.MaskIP},
	"credit_card_number": {masker.CategoryCreditCard, masker.MaskCreditCard},
}

// Redactor applies the column classification and masking pass.
type Redactor struct {
	text     TextRedactor
	freeText map[string]bool
	log      *logger.Logger
	met      *metrics.Metrics
}

// New creates a Redactor. freeTextColumns names the columns (lowercase)
// routed through the model-assisted text path; a nil log gets a default
// error-level logger, a nil met disables metrics.
func New(text TextRedactor, freeTextColumns []string, log *logger.Logger, met *metrics.Metrics) *Redactor {
	if log == nil {
		log = logger.New("REDACTOR", "error")
	}
	ft := make(map[string]bool, len(freeTextColumns))
	for _, c := range freeTextColumns {
		ft[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return &Redactor{text: text, freeText: ft, log: log, met: met}
}

// Redact returns a redacted copy of t with identical shape: same column
// order, same row count, header row unchanged. The input table is not
// modified.
func (r *Redactor) Redact(ctx context.Context, t *table.Table) *table.Table {
	passID := uuid.NewString()[:8]
	r.log.Infof("pass_start", "[%s] redacting %d rows x %d columns", passID, t.NumRows(), t.NumCols())

	out := &table.Table{
		Headers: slices.Clone(t.Headers),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i := range t.Rows {
		out.Rows[i] = make([]string, len(t.Rows[i]))
	}

	for col, header := range t.Headers {
		name := strings.ToLower(strings.TrimSpace(header))

		switch {
		case columnRules[name].apply != nil:
			fr := columnRules[name]
			for row := range t.Rows {
				out.Rows[row][col] = fr.apply(t.Rows[row][col])
				r.met.RecordCell()
				r.met.RecordMasked(string(fr.category))
			}
			r.log.Debugf("column_masked", "[%s] column %q masked as %s", passID, header, fr.category)

		case r.freeText[name]:
			for row := range t.Rows {
				out.Rows[row][col] = r.text.RedactText(ctx, t.Rows[row][col])
				r.met.RecordCell()
				r.met.RecordMasked(string(masker.CategoryFreeText))
			}
			r.log.Debugf("column_masked", "[%s] column %q routed through model redaction", passID, header)

		default:
			for row := range t.Rows {
				out.Rows[row][col] = masker.RedactSSN(t.Rows[row][col])
				r.met.RecordCell()
				r.met.RecordMasked(string(masker.CategorySSNInText))
			}
		}
	}

	r.log.Infof("pass_done", "[%s] redaction complete", passID)
	return out
}
