package sqldb

import (
	"fmt"
	"strings"

	"finstmt/pkg/domain"
)

// dialect selects engine-specific DDL details. Statement synthesis itself is
// shared: both engines accept $N placeholders and ON CONFLICT ... RETURNING.
type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

// columnType maps a schema column to its storage-native scalar type. The
// mapping is keyed by the column definition, never by a runtime value, so a
// null or string-typed numeric input still lands in the right column type.
func columnType(col domain.Column) string {
	switch col.Kind {
	case domain.KindYear:
		return "INTEGER"
	case domain.KindTaxID:
		return "VARCHAR(8)"
	case domain.KindNumber:
		return "NUMERIC(18,2)"
	default:
		return "TEXT"
	}
}

// createTableDDL synthesizes the record table for rt, with the composite-key
// uniqueness constraint every adapter relies on for conflict resolution.
func createTableDDL(rt domain.RecordType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", rt.Table())
	for _, col := range domain.Schema(rt) {
		fmt.Fprintf(&b, "\t%s %s,\n", col.Code, columnType(col))
	}
	fmt.Fprintf(&b, "\tUNIQUE (%s, %s)\n)", domain.FieldFiscalYear, domain.FieldTaxID)
	return b.String()
}

func createCompaniesDDL(d dialect) string {
	id := "id BIGSERIAL PRIMARY KEY"
	if d == dialectSQLite {
		id = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS companies (
	%s,
	tax_id VARCHAR(8) UNIQUE,
	company_name TEXT NOT NULL
)`, id)
}

// statement accumulates a parameterized query with ordinal placeholders.
type statement struct {
	sql  strings.Builder
	args []any
}

func (st *statement) bind(v any) string {
	st.args = append(st.args, v)
	return fmt.Sprintf("$%d", len(st.args))
}

// presentColumns returns the schema columns the record actually supplies, in
// schema order. Consulting the static schema rather than raw input keys is the
// defense against field-name injection.
func presentColumns(rt domain.RecordType, rec domain.Record) []domain.Column {
	var cols []domain.Column
	for _, col := range domain.Schema(rt) {
		if _, ok := fieldValue(col, rec); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// fieldValue extracts the bound value for one schema column of a record.
func fieldValue(col domain.Column, rec domain.Record) (any, bool) {
	switch col.Code {
	case domain.FieldFiscalYear:
		return rec.FiscalYear, true
	case domain.FieldTaxID:
		return rec.TaxID, true
	case domain.FieldCompanyName:
		if rec.CompanyName == nil {
			return nil, false
		}
		return *rec.CompanyName, true
	case domain.FieldAccountItem:
		if rec.AccountItem == nil {
			return nil, false
		}
		return *rec.AccountItem, true
	default:
		d, ok := rec.Figures[col.Code]
		if !ok {
			return nil, false
		}
		// Bind decimals as their exact string form; NUMERIC columns parse it.
		return d.String(), true
	}
}

// buildUpsert synthesizes the conditional statement: insert the supplied
// columns, and on a composite-key conflict overwrite only the supplied
// non-key fields, returning the resulting row. When no non-key fields are
// supplied the conflict clause degrades to DO NOTHING and the caller
// re-reads the untouched row.
func buildUpsert(rt domain.RecordType, rec domain.Record) (query string, args []any, hasSet bool) {
	cols := presentColumns(rt, rec)
	st := &statement{}

	names := make([]string, 0, len(cols))
	params := make([]string, 0, len(cols))
	var sets []string
	for _, col := range cols {
		v, _ := fieldValue(col, rec)
		names = append(names, col.Code)
		params = append(params, st.bind(v))
		if !domain.IsKeyField(col.Code) {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col.Code, col.Code))
		}
	}

	fmt.Fprintf(&st.sql, "INSERT INTO %s (%s) VALUES (%s)\nON CONFLICT (%s, %s) ",
		rt.Table(), strings.Join(names, ", "), strings.Join(params, ", "),
		domain.FieldFiscalYear, domain.FieldTaxID)
	if len(sets) > 0 {
		fmt.Fprintf(&st.sql, "DO UPDATE SET %s", strings.Join(sets, ", "))
	} else {
		st.sql.WriteString("DO NOTHING")
	}
	st.sql.WriteString("\nRETURNING " + selectList(rt))
	return st.sql.String(), st.args, len(sets) > 0
}

// buildUpdate synthesizes a partial update over existing rows only. Key
// fields never appear in the SET clause; the schema filter upstream already
// stripped them from fields.
func buildUpdate(rt domain.RecordType, taxID string, year int, fields domain.Fields) (string, []any, error) {
	rec := domain.Record{Fields: fields}
	st := &statement{}
	var sets []string
	for _, col := range domain.Schema(rt) {
		if domain.IsKeyField(col.Code) {
			continue
		}
		v, ok := fieldValue(col, rec)
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", col.Code, st.bind(v)))
	}
	if len(sets) == 0 {
		return "", nil, domain.Validationf("no updatable fields supplied")
	}
	fmt.Fprintf(&st.sql, "UPDATE %s SET %s WHERE %s = %s AND %s = %s RETURNING %s",
		rt.Table(), strings.Join(sets, ", "),
		domain.FieldTaxID, st.bind(taxID),
		domain.FieldFiscalYear, st.bind(year),
		selectList(rt))
	return st.sql.String(), st.args, nil
}

// buildFind synthesizes the filtered list query in contract order.
func buildFind(rt domain.RecordType, f domain.Filter) (string, []any) {
	st := &statement{}
	fmt.Fprintf(&st.sql, "SELECT %s FROM %s WHERE 1=1", selectList(rt), rt.Table())
	if f.TaxID != "" {
		fmt.Fprintf(&st.sql, " AND %s = %s", domain.FieldTaxID, st.bind(f.TaxID))
	}
	if f.FiscalYear != 0 {
		fmt.Fprintf(&st.sql, " AND %s = %s", domain.FieldFiscalYear, st.bind(f.FiscalYear))
	}
	if f.CompanyName != "" {
		fmt.Fprintf(&st.sql, " AND %s = %s", domain.FieldCompanyName, st.bind(f.CompanyName))
	}
	fmt.Fprintf(&st.sql, " ORDER BY %s DESC, %s ASC", domain.FieldFiscalYear, domain.FieldTaxID)
	return st.sql.String(), st.args
}

// selectList is the explicit schema-ordered column list, so row scanning
// never depends on backend column ordering.
func selectList(rt domain.RecordType) string {
	cols := domain.Schema(rt)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Code
	}
	return strings.Join(names, ", ")
}
