package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RecordType selects one of the two supported record shapes.
type RecordType string

const (
	// BalanceSheet is a balance-sheet snapshot (financial_basics).
	BalanceSheet RecordType = "balance_sheet"
	// IncomeStatement is an income-statement snapshot (pl_income_basics).
	IncomeStatement RecordType = "income_statement"
)

// ParseRecordType resolves user-facing names and table names to a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "balance_sheet", "balance-sheet", "financial_basics", "financial-basics":
		return BalanceSheet, nil
	case "income_statement", "income-statement", "pl_income_basics", "pl-income":
		return IncomeStatement, nil
	}
	return "", Validationf("unknown record type %q", s)
}

// Table returns the logical table / collection name for the record type.
func (rt RecordType) Table() string {
	if rt == IncomeStatement {
		return "pl_income_basics"
	}
	return "financial_basics"
}

// Fields holds the non-key portion of a record. A nil pointer or an absent
// figure entry means the field was not supplied (NULL), which upserts must
// leave untouched on existing rows.
type Fields struct {
	CompanyName *string
	AccountItem *string
	Figures     map[string]decimal.Decimal
}

// Record is one company's statement snapshot for one fiscal year. The pair
// (FiscalYear, TaxID) uniquely identifies at most one record per record type.
type Record struct {
	FiscalYear int
	TaxID      string
	Fields
}

// Figure returns a named figure and whether it is present.
func (r *Record) Figure(code string) (decimal.Decimal, bool) {
	v, ok := r.Figures[code]
	return v, ok
}

// Clone returns a deep copy, so stored records never alias caller maps.
func (r Record) Clone() Record {
	out := r
	if r.CompanyName != nil {
		v := *r.CompanyName
		out.CompanyName = &v
	}
	if r.AccountItem != nil {
		v := *r.AccountItem
		out.AccountItem = &v
	}
	if r.Figures != nil {
		out.Figures = make(map[string]decimal.Decimal, len(r.Figures))
		for k, v := range r.Figures {
			out.Figures[k] = v
		}
	}
	return out
}

// Merge overlays supplied fields from p onto a copy of r. Key fields are not
// part of Fields and therefore can never change through a merge.
func (r Record) Merge(p Fields) Record {
	out := r.Clone()
	if p.CompanyName != nil {
		v := *p.CompanyName
		out.CompanyName = &v
	}
	if p.AccountItem != nil {
		v := *p.AccountItem
		out.AccountItem = &v
	}
	if len(p.Figures) > 0 && out.Figures == nil {
		out.Figures = make(map[string]decimal.Decimal, len(p.Figures))
	}
	for k, v := range p.Figures {
		out.Figures[k] = v
	}
	return out
}

// Company identifies a reporting entity. Records reference companies by tax
// id; there is no foreign-key enforcement in this layer.
type Company struct {
	ID    int64  `json:"id"`
	TaxID string `json:"taxId"`
	Name  string `json:"name"`
}

// RowError reports why one batch row was skipped. Row numbers are 1-based
// over the input slice.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BatchResult accounts for every row of a batch: inserted + updated + skipped
// always equals the input length, and errors carries one entry per skip.
type BatchResult struct {
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// RawRow is an untyped row as it arrives from a spreadsheet or a JSON body.
type RawRow = map[string]any

// Fiscal year bounds and tax id shape shared by every validation path.
const (
	MinFiscalYear = 1900
	MaxFiscalYear = 2100
)

var taxIDPattern = regexp.MustCompile(`^\d{8}$`)

// ValidateYear checks the fiscal-year range.
func ValidateYear(year int) error {
	if year < MinFiscalYear || year > MaxFiscalYear {
		return Validationf("fiscal_year %d out of range [%d, %d]", year, MinFiscalYear, MaxFiscalYear)
	}
	return nil
}

// ValidateTaxID checks the 8-digit tax id shape after trimming.
func ValidateTaxID(taxID string) error {
	if !taxIDPattern.MatchString(strings.TrimSpace(taxID)) {
		return Validationf("tax_id %q must be exactly 8 digits", taxID)
	}
	return nil
}

// CoerceYear parses any reasonable year representation to an int.
func CoerceYear(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, Validationf("missing required field fiscal_year")
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, Validationf("fiscal_year %q is not an integer", t.String())
		}
		return int(n), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, Validationf("missing required field fiscal_year")
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, Validationf("fiscal_year %q is not an integer", s)
		}
		return n, nil
	default:
		return 0, Validationf("fiscal_year has unsupported type %T", v)
	}
}

// CoerceTaxID renders any scalar tax id to its trimmed string form. Numeric
// inputs are formatted without an exponent so spreadsheet cells survive.
func CoerceTaxID(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", Validationf("missing required field tax_id")
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return "", Validationf("missing required field tax_id")
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", Validationf("tax_id has unsupported type %T", v)
	}
}

// CoerceFigure converts a raw cell to a decimal. The second return is false
// when the cell is empty, which callers treat as NULL rather than zero.
func CoerceFigure(code string, v any) (decimal.Decimal, bool, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case decimal.Decimal:
		return t, true, nil
	case float64:
		return decimal.NewFromFloat(t), true, nil
	case int:
		return decimal.NewFromInt(int64(t)), true, nil
	case int64:
		return decimal.NewFromInt(t), true, nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Decimal{}, false, Validationf("%s: %q is not numeric", code, t.String())
		}
		return d, true, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" || s == "-" {
			return decimal.Decimal{}, false, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false, Validationf("%s: %q is not numeric", code, s)
		}
		return d, true, nil
	default:
		return decimal.Decimal{}, false, Validationf("%s has unsupported type %T", code, v)
	}
}

// NormalizeRecord validates and cleans one raw row into a Record:
// required-key check, format validation, unknown-field filtering against the
// record type's schema, and key normalization. Unknown keys are dropped
// silently; bad values surface as validation errors.
func NormalizeRecord(rt RecordType, row RawRow) (Record, error) {
	yearRaw, yearOK := row[FieldFiscalYear]
	taxRaw, taxOK := row[FieldTaxID]
	if !yearOK || !taxOK || yearRaw == nil || taxRaw == nil || taxRaw == "" {
		return Record{}, Validationf("missing required field fiscal_year or tax_id")
	}

	year, err := CoerceYear(yearRaw)
	if err != nil {
		return Record{}, err
	}
	if err := ValidateYear(year); err != nil {
		return Record{}, err
	}
	taxID, err := CoerceTaxID(taxRaw)
	if err != nil {
		return Record{}, err
	}
	taxID = strings.TrimSpace(taxID)
	if err := ValidateTaxID(taxID); err != nil {
		return Record{}, err
	}

	rec := Record{FiscalYear: year, TaxID: taxID}
	fields, err := NormalizeFields(rt, row)
	if err != nil {
		return Record{}, err
	}
	rec.Fields = fields
	return rec, nil
}

// NormalizeFields filters and coerces the non-key portion of a raw row.
func NormalizeFields(rt RecordType, row RawRow) (Fields, error) {
	idx := SchemaIndex(rt)
	var f Fields
	for key, raw := range row {
		col, ok := idx[key]
		if !ok || IsKeyField(key) {
			continue // spreadsheet drift: extra columns are dropped silently
		}
		switch col.Kind {
		case KindText:
			s, ok := textValue(raw)
			if !ok {
				continue
			}
			switch key {
			case FieldCompanyName:
				f.CompanyName = &s
			case FieldAccountItem:
				f.AccountItem = &s
			}
		case KindNumber:
			d, present, err := CoerceFigure(key, raw)
			if err != nil {
				return Fields{}, err
			}
			if !present {
				continue
			}
			if f.Figures == nil {
				f.Figures = make(map[string]decimal.Decimal)
			}
			f.Figures[key] = d
		}
	}
	return f, nil
}

func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	default:
		return fmt.Sprintf("%v", t), true
	}
}
