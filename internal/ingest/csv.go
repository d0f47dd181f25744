package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/steelworks/lotline/internal/model"
)

// ReadCSV tokenizes CSV input into header-keyed rows.
//
// Ragged rows are tolerated: short rows simply omit the trailing fields
// and long rows drop cells past the last header. A UTF-8 byte order mark
// on the first header is stripped, since exports from spreadsheet tools
// routinely carry one.
func ReadCSV(r io.Reader) ([]model.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	table, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(table) > 0 && len(table[0]) > 0 {
		table[0][0] = strings.TrimPrefix(table[0][0], "\uFEFF")
	}

	return tableRows(table), nil
}
