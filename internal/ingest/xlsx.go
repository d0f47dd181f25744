package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/steelworks/lotline/internal/model"
)

// ReadXLSX reads one worksheet of a workbook into header-keyed rows.
// An empty sheet name selects the workbook's first sheet.
//
// Cells come back as the displayed strings, so dates keep whatever format
// the sheet shows and the usual date normalization applies downstream.
func ReadXLSX(path, sheet string) ([]model.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	table, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet %q: %w", path, sheet, err)
	}

	return tableRows(table), nil
}
