package sqldb

import (
	"database/sql"

	"finstmt/pkg/domain"

	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one schema-ordered row into a Record. NULL figures stay
// absent from the figure map; numeric values are parsed from their driver
// string form to avoid float round-trips.
func scanRecord(rt domain.RecordType, row scanner) (domain.Record, error) {
	cols := domain.Schema(rt)
	dests := make([]any, len(cols))
	var year sql.NullInt64
	var taxID sql.NullString
	texts := make([]sql.NullString, len(cols))
	nums := make([]sql.NullString, len(cols))

	for i, col := range cols {
		switch col.Kind {
		case domain.KindYear:
			dests[i] = &year
		case domain.KindTaxID:
			dests[i] = &taxID
		case domain.KindText:
			dests[i] = &texts[i]
		default:
			dests[i] = &nums[i]
		}
	}
	if err := row.Scan(dests...); err != nil {
		return domain.Record{}, err
	}

	rec := domain.Record{FiscalYear: int(year.Int64), TaxID: taxID.String}
	for i, col := range cols {
		switch col.Kind {
		case domain.KindText:
			if !texts[i].Valid || texts[i].String == "" {
				continue
			}
			v := texts[i].String
			switch col.Code {
			case domain.FieldCompanyName:
				rec.CompanyName = &v
			case domain.FieldAccountItem:
				rec.AccountItem = &v
			}
		case domain.KindNumber:
			if !nums[i].Valid {
				continue
			}
			d, err := decimal.NewFromString(nums[i].String)
			if err != nil {
				return domain.Record{}, domain.QueryFailed("decode "+col.Code, err)
			}
			if rec.Figures == nil {
				rec.Figures = make(map[string]decimal.Decimal)
			}
			rec.Figures[col.Code] = d
		}
	}
	return rec, nil
}
