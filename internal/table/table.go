// Package table holds the in-memory representation of one CSV dataset:
// an ordered header row plus rows of string cells. Redaction operates on a
// Table and always produces an identically shaped Table.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Table is one parsed CSV file. All rows have exactly len(Headers) cells;
// ReadCSV enforces this and redaction preserves it.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NumRows returns the number of data rows (the header is not counted).
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Headers) }

// ReadCSV parses comma-separated data whose first record is the header row.
// A file with no records at all is an error; a header-only file yields a
// Table with zero rows.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}
	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes the table back out as comma-separated data, header first,
// in the original column order.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile reads and parses the CSV file at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator CLI input
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return ReadCSV(f)
}

// WriteFile writes the table to the CSV file at path, creating or truncating it.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path) // #nosec G304 -- path is derived from operator CLI input
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}
