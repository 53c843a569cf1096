package sqldb

import (
	"strings"
	"testing"

	"finstmt/pkg/domain"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestBuildUpsertShape(t *testing.T) {
	rec := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		CompanyName: strPtr("Acme"),
		Figures:     map[string]decimal.Decimal{"cash_equivalents": decimal.NewFromInt(100)},
	}}
	query, args, hasSet := buildUpsert(domain.BalanceSheet, rec)
	if !hasSet {
		t.Fatal("hasSet = false with non-key fields supplied")
	}
	if !strings.Contains(query, "INSERT INTO financial_basics") {
		t.Fatalf("wrong table:\n%s", query)
	}
	if !strings.Contains(query, "ON CONFLICT (fiscal_year, tax_id) DO UPDATE SET") {
		t.Fatalf("missing conflict clause:\n%s", query)
	}
	if strings.Contains(query, "fiscal_year = EXCLUDED.fiscal_year") || strings.Contains(query, "tax_id = EXCLUDED.tax_id") {
		t.Fatalf("key column in SET clause:\n%s", query)
	}
	if !strings.Contains(query, "cash_equivalents = EXCLUDED.cash_equivalents") {
		t.Fatalf("figure column missing from SET clause:\n%s", query)
	}
	if !strings.Contains(query, "RETURNING") {
		t.Fatalf("missing RETURNING:\n%s", query)
	}
	// fiscal_year, tax_id, company_name, cash_equivalents
	if len(args) != 4 {
		t.Fatalf("args = %d, want 4 (%v)", len(args), args)
	}
	if args[0] != 2024 || args[1] != "12345678" {
		t.Fatalf("key args out of schema order: %v", args)
	}
}

func TestBuildUpsertKeysOnlyDegradesToDoNothing(t *testing.T) {
	rec := domain.Record{FiscalYear: 2024, TaxID: "12345678"}
	query, args, hasSet := buildUpsert(domain.BalanceSheet, rec)
	if hasSet {
		t.Fatal("hasSet = true with only key fields")
	}
	if !strings.Contains(query, "DO NOTHING") {
		t.Fatalf("expected DO NOTHING:\n%s", query)
	}
	if len(args) != 2 {
		t.Fatalf("args = %d, want 2", len(args))
	}
}

func TestBuildUpsertIgnoresUnknownFigures(t *testing.T) {
	rec := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		Figures: map[string]decimal.Decimal{"evil; DROP TABLE companies": decimal.NewFromInt(1)},
	}}
	query, args, _ := buildUpsert(domain.BalanceSheet, rec)
	if strings.Contains(query, "DROP TABLE") {
		t.Fatalf("raw input key reached the statement:\n%s", query)
	}
	if len(args) != 2 {
		t.Fatalf("args = %d, want only the 2 keys", len(args))
	}
}

func TestBuildUpdate(t *testing.T) {
	query, args, err := buildUpdate(domain.BalanceSheet, "12345678", 2024, domain.Fields{
		CompanyName: strPtr("Acme"),
		Figures:     map[string]decimal.Decimal{"inventory": decimal.NewFromInt(9)},
	})
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	if !strings.Contains(query, "UPDATE financial_basics SET") {
		t.Fatalf("wrong statement:\n%s", query)
	}
	if strings.Contains(query, "SET fiscal_year") || strings.Contains(query, "SET tax_id") ||
		strings.Contains(query, ", fiscal_year =") || strings.Contains(query, ", tax_id =") {
		t.Fatalf("key column in SET clause:\n%s", query)
	}
	if !strings.Contains(query, "WHERE tax_id = $3 AND fiscal_year = $4") {
		t.Fatalf("wrong predicate:\n%s", query)
	}
	if !strings.Contains(query, "RETURNING") {
		t.Fatalf("missing RETURNING:\n%s", query)
	}
	if len(args) != 4 || args[2] != "12345678" || args[3] != 2024 {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildUpdateNoFields(t *testing.T) {
	_, _, err := buildUpdate(domain.BalanceSheet, "12345678", 2024, domain.Fields{})
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestBuildFindFilters(t *testing.T) {
	query, args := buildFind(domain.IncomeStatement, domain.Filter{TaxID: "12345678", FiscalYear: 2024})
	if !strings.Contains(query, "FROM pl_income_basics") {
		t.Fatalf("wrong table:\n%s", query)
	}
	if !strings.Contains(query, "tax_id = $1") || !strings.Contains(query, "fiscal_year = $2") {
		t.Fatalf("filters missing:\n%s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY fiscal_year DESC, tax_id ASC") {
		t.Fatalf("wrong order clause:\n%s", query)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v", args)
	}

	query, args = buildFind(domain.IncomeStatement, domain.Filter{})
	if strings.Contains(query, "$1") || len(args) != 0 {
		t.Fatalf("empty filter bound args:\n%s %v", query, args)
	}
}

func TestCreateTableDDL(t *testing.T) {
	ddl := createTableDDL(domain.BalanceSheet)
	if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS financial_basics") {
		t.Fatalf("wrong table:\n%s", ddl)
	}
	if !strings.Contains(ddl, "fiscal_year INTEGER") || !strings.Contains(ddl, "tax_id VARCHAR(8)") {
		t.Fatalf("key column types wrong:\n%s", ddl)
	}
	if !strings.Contains(ddl, "cash_equivalents NUMERIC(18,2)") {
		t.Fatalf("figure column type wrong:\n%s", ddl)
	}
	if !strings.Contains(ddl, "UNIQUE (fiscal_year, tax_id)") {
		t.Fatalf("missing composite uniqueness:\n%s", ddl)
	}
}

func TestCreateCompaniesDDLDialects(t *testing.T) {
	pg := createCompaniesDDL(dialectPostgres)
	if !strings.Contains(pg, "BIGSERIAL") {
		t.Fatalf("postgres id column:\n%s", pg)
	}
	lite := createCompaniesDDL(dialectSQLite)
	if !strings.Contains(lite, "INTEGER PRIMARY KEY AUTOINCREMENT") {
		t.Fatalf("sqlite id column:\n%s", lite)
	}
}

func TestDecimalsBindAsExactStrings(t *testing.T) {
	d, _ := decimal.NewFromString("123456789012345.67")
	rec := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		Figures: map[string]decimal.Decimal{"cash_equivalents": d},
	}}
	_, args, _ := buildUpsert(domain.BalanceSheet, rec)
	found := false
	for _, a := range args {
		if s, ok := a.(string); ok && s == "123456789012345.67" {
			found = true
		}
	}
	if !found {
		t.Fatalf("decimal not bound as exact string: %v", args)
	}
}
