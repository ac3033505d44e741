package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrFormat marks a structurally unusable upload (wrong file type, no
// worksheet, no rows). Row-level problems never produce it.
var ErrFormat = errors.New("format error")

// RawRow is one data line of the uploaded spreadsheet, keyed by canonical
// field. Index is 1-based and excludes the header row.
type RawRow struct {
	Index  int
	Values map[Field]string
}

// Get returns the trimmed cell value for a field, or "" when absent
func (r RawRow) Get(f Field) string {
	return r.Values[f]
}

// ParseOutput carries the ordered data rows plus the count of non-data
// (instruction/blank) rows that were dropped before validation.
type ParseOutput struct {
	Rows        []RawRow
	SkippedRows int
}

// Parse decodes an uploaded workbook into ordered raw rows. Header matching is
// synonym-based and case-insensitive so minor header drift doesn't break
// ingestion. Rows carrying no name, no price and no category reference are
// classified as instruction/blank rows and counted as skipped.
func Parse(r io.Reader) (*ParseOutput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", ErrFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheets found", ErrFormat)
	}

	sheetName := sheets[0]
	// Prefer the "Products" sheet emitted by our templates
	for _, name := range sheets {
		if strings.EqualFold(name, "Products") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet: %v", ErrFormat, err)
	}
	if len(excelRows) == 0 {
		return nil, fmt.Errorf("%w: worksheet is empty", ErrFormat)
	}

	columns := resolveColumns(excelRows[0])

	out := &ParseOutput{Rows: make([]RawRow, 0, len(excelRows)-1)}
	for i, cells := range excelRows[1:] {
		row := RawRow{
			Index:  i + 1,
			Values: make(map[Field]string, len(columns)),
		}
		for col, value := range cells {
			if field, ok := columns[col]; ok {
				row.Values[field] = strings.TrimSpace(value)
			}
		}

		if isInstructionRow(row) {
			out.SkippedRows++
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// isInstructionRow reports whether a row carries none of the fields that make
// it a product line. Such rows (blank lines, free-text guidance left in the
// sheet) never reach the validator or the staging store.
func isInstructionRow(row RawRow) bool {
	return row.Get(FieldName) == "" &&
		row.Get(FieldPrice) == "" &&
		row.Get(FieldCategoryID) == "" &&
		row.Get(FieldCategoryName) == ""
}

// SplitImageCell splits a delimited image URL cell. Both comma and pipe are
// accepted; empty fragments are dropped.
func SplitImageCell(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	cell = strings.ReplaceAll(cell, "|", ",")
	parts := strings.Split(cell, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}
