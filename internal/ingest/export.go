package ingest

import (
	"bytes"
	"fmt"

	"finstmt/pkg/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var million = decimal.NewFromInt(1_000_000)

// ToMillions rescales a figure to units of one million, two decimal places.
func ToMillions(d decimal.Decimal) decimal.Decimal {
	return d.Div(million).Round(2)
}

// ExportOptions controls workbook generation.
type ExportOptions struct {
	// InMillions rescales every numeric figure via ToMillions.
	InMillions bool
}

// BuildWorkbook renders record sets into the same sheet layout the import
// path consumes: labels on row 1, field codes on row 2, data from row 3.
// Sheets with no records are still emitted with their headers so the output
// round-trips through ParseWorkbook.
func BuildWorkbook(records map[domain.RecordType][]domain.Record, opts ExportOptions) ([]byte, error) {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	for i, st := range sheetTypes {
		if i == 0 {
			if err := book.SetSheetName(book.GetSheetName(0), st.Name); err != nil {
				return nil, err
			}
		} else if _, err := book.NewSheet(st.Name); err != nil {
			return nil, err
		}
		if err := writeSheet(book, st.Name, st.Type, records[st.Type], opts); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(book *excelize.File, name string, rt domain.RecordType, records []domain.Record, opts ExportOptions) error {
	schema := domain.Schema(rt)
	labels := make([]any, len(schema))
	codes := make([]any, len(schema))
	for i, col := range schema {
		labels[i] = col.Label
		codes[i] = col.Code
	}
	if err := setRow(book, name, 1, labels); err != nil {
		return err
	}
	if err := setRow(book, name, 2, codes); err != nil {
		return err
	}

	domain.SortRecords(records)
	for n, rec := range records {
		cells := make([]any, len(schema))
		for i, col := range schema {
			cells[i] = cellValue(rec, col, opts)
		}
		if err := setRow(book, name, n+3, cells); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(rec domain.Record, col domain.Column, opts ExportOptions) any {
	switch col.Kind {
	case domain.KindYear:
		return rec.FiscalYear
	case domain.KindTaxID:
		return rec.TaxID
	case domain.KindText:
		switch col.Code {
		case domain.FieldCompanyName:
			return deref(rec.Fields.CompanyName)
		case domain.FieldAccountItem:
			return deref(rec.Fields.AccountItem)
		}
		return ""
	default:
		d, ok := rec.Fields.Figures[col.Code]
		if !ok {
			return ""
		}
		if opts.InMillions {
			d = ToMillions(d)
		}
		f, _ := d.Float64()
		return f
	}
}

func setRow(book *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := book.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
