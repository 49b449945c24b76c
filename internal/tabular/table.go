// Package tabular defines the row-oriented backend the event store runs on.
//
// A Table behaves like a single worksheet: row 1 is the header, data rows
// follow, and rows are addressed by their 1-based position.
package tabular

import (
	"context"
)

// Table is a row-oriented store holding a header row followed by data rows.
type Table interface {
	// Values returns every row, header first. Rows may be shorter than the header.
	Values(ctx context.Context) ([][]string, error)
	// Column returns the cells of the column at index (0-based), header included.
	Column(ctx context.Context, index int) ([]string, error)
	// Append adds a row after the last data row.
	Append(ctx context.Context, row []string) error
	// Update overwrites the row at the 1-based position n.
	Update(ctx context.Context, n int, row []string) error
	// Delete removes the row at the 1-based position n; later rows shift up.
	Delete(ctx context.Context, n int) error
}

// Records maps each data row onto the header. Cells beyond the header are
// dropped and missing cells are absent from the map.
func Records(values [][]string) []map[string]string {
	if len(values) < 2 {
		return nil
	}
	header := values[0]
	records := make([]map[string]string, 0, len(values)-1)
	for _, row := range values[1:] {
		if isBlank(row) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			rec[name] = row[i]
		}
		records = append(records, rec)
	}
	return records
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
