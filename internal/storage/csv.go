package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an in-memory tabular object: a header plus rows keyed by column
// name. Cells absent from a row encode as empty strings.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// ReadTable parses a whole CSV object.
func ReadTable(data []byte) (Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("parse csv: missing header row")
	}

	t := Table{Header: records[0]}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Encode renders the table back to CSV bytes in header order.
func (t Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	line := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, col := range t.Header {
			line[i] = row[col]
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Column collects one column's values in row order.
func (t Table) Column(name string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[name])
	}
	return out
}
