// Package importer tokenizes bank export files and parses rows into
// transactions using a resolved column mapping.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadRows tokenizes a delimited file into a 2-D cell table. Ragged rows are
// kept as-is; downstream code tolerates missing cells.
func ReadRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return rows, nil
}
