// Package spreadsheet reads and writes the .xlsx files used for inventory import and
// export.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned for workbooks without any worksheet
var ErrNoSheet = errors.New("spreadsheet: workbook has no sheets")

// Row is one data row keyed by normalized header
type Row map[string]string

// Sheet is the first worksheet of a workbook
type Sheet struct {
	Headers []string
	Rows    []Row
}

// NormalizeHeader trims, lower-cases and joins words with underscores
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), "_")
}

// Parse reads the first worksheet. The first row is the header; fully blank rows are
// skipped and short rows are padded with empty cells.
func Parse(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read rows: %w", err)
	}

	sheet := &Sheet{}
	if len(rows) == 0 {
		return sheet, nil
	}

	for _, h := range rows[0] {
		sheet.Headers = append(sheet.Headers, NormalizeHeader(h))
	}

	for _, cells := range rows[1:] {
		row := make(Row, len(sheet.Headers))
		blank := true
		for i, h := range sheet.Headers {
			if h == "" {
				continue
			}
			var v string
			if i < len(cells) {
				v = strings.TrimSpace(cells[i])
			}
			if v != "" {
				blank = false
			}
			row[h] = v
		}
		if !blank {
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet, nil
}

// Missing returns the required columns absent from the header row
func (s *Sheet) Missing(required ...string) []string {
	have := make(map[string]bool, len(s.Headers))
	for _, h := range s.Headers {
		have[h] = true
	}
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// Rename maps alias headers onto their canonical names in the header row and in every
// row. An alias is ignored when its canonical column is already present.
func (s *Sheet) Rename(aliases map[string]string) {
	present := make(map[string]bool, len(s.Headers))
	for _, h := range s.Headers {
		present[h] = true
	}
	for i, h := range s.Headers {
		canonical, ok := aliases[h]
		if !ok || present[canonical] {
			continue
		}
		present[canonical] = true
		s.Headers[i] = canonical
		for _, row := range s.Rows {
			row[canonical] = row[h]
			delete(row, h)
		}
	}
}

// Write renders a single-sheet workbook with a header row followed by rows
func Write(sheetName string, headers []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if sheetName != "" && sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return nil, fmt.Errorf("spreadsheet: rename sheet: %w", err)
		}
	} else {
		sheetName = defaultSheet
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("spreadsheet: write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("spreadsheet: write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("spreadsheet: encode: %w", err)
	}
	return buf.Bytes(), nil
}
