package ingest

import (
	"io"

	"finstmt/pkg/domain"

	"github.com/xuri/excelize/v2"
)

// Sheet names recognized in uploaded workbooks.
const (
	SheetBalance = "財務報表"
	SheetIncome  = "損益表"
)

// sheetTypes pairs each recognized sheet with its record type, in the order
// sheets are processed.
var sheetTypes = []struct {
	Name string
	Type domain.RecordType
}{
	{SheetBalance, domain.BalanceSheet},
	{SheetIncome, domain.IncomeStatement},
}

// ParsedSheet is the outcome of reading one recognized sheet: the raw rows
// ready for reconciliation plus header cells that matched no schema field.
type ParsedSheet struct {
	Name     string
	Type     domain.RecordType
	Rows     []domain.RawRow
	Warnings []string
}

// ParseWorkbook reads an xlsx stream and extracts the recognized sheets.
// Row 1 carries human labels, row 2 field codes, data starts at row 3.
// A workbook with neither recognized sheet is rejected outright; a sheet
// with no data rows parses to an empty row set, which is not an error.
func ParseWorkbook(r io.Reader) ([]ParsedSheet, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.Validationf("cannot read workbook: %v", err)
	}
	defer func() { _ = book.Close() }()

	var sheets []ParsedSheet
	for _, st := range sheetTypes {
		rows, err := book.GetRows(st.Name)
		if err != nil {
			continue // sheet absent
		}
		sheets = append(sheets, parseSheet(st.Name, st.Type, rows))
	}
	if len(sheets) == 0 {
		return nil, domain.Validationf("workbook contains neither %q nor %q sheet", SheetBalance, SheetIncome)
	}
	return sheets, nil
}

func parseSheet(name string, rt domain.RecordType, rows [][]string) ParsedSheet {
	sheet := ParsedSheet{Name: name, Type: rt}
	if len(rows) < 2 {
		sheet.Warnings = append(sheet.Warnings, "missing header rows")
		return sheet
	}
	mapping := mapColumns(rt, rows[0], rows[1])
	sheet.Warnings = mapping.warnings
	for _, cells := range rows[2:] {
		raw := mapping.rowToRaw(cells)
		if len(raw) == 0 {
			continue // fully blank row
		}
		sheet.Rows = append(sheet.Rows, raw)
	}
	return sheet
}
