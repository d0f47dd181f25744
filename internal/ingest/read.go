// Package ingest reads source files into header-keyed rows.
//
// Readers only tokenize: cells stay raw strings exactly as they appear in
// the file, and all cleaning and coercion happens downstream during
// reconciliation. The first row of every table is the header row; data
// rows are keyed by the trimmed header names.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/steelworks/lotline/internal/model"
)

// ReadSource reads the spec's file into rows ready for reconciliation.
func ReadSource(spec model.SourceSpec) ([]model.Row, error) {
	switch spec.Format {
	case model.FormatCSV:
		f, err := os.Open(spec.Location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", spec.Location, err)
		}
		defer f.Close()

		rows, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", spec.Location, err)
		}
		return rows, nil

	case model.FormatXLSX:
		return ReadXLSX(spec.Location, spec.Sheet)

	default:
		return nil, fmt.Errorf("unsupported format %q for %s", spec.Format, spec.Name)
	}
}

// tableRows keys data rows by the header row. Blank header cells are
// skipped, cells past the last header are dropped, and rows with no
// non-blank cell are omitted entirely.
func tableRows(table [][]string) []model.Row {
	if len(table) == 0 {
		return []model.Row{}
	}

	headers := table[0]
	rows := make([]model.Row, 0, len(table)-1)

	for _, cells := range table[1:] {
		row := model.Row{}
		blank := true
		for i, cell := range cells {
			if i >= len(headers) {
				break
			}
			h := strings.TrimSpace(headers[i])
			if h == "" {
				continue
			}
			row[h] = cell
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	return rows
}
