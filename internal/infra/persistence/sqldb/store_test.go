package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"finstmt/pkg/domain"

	"github.com/shopspring/decimal"
)

// newTestStore runs the adapter against an in-memory sqlite database, one
// database per test so state never leaks between tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	store, err := NewStore(Config{DSN: dsn, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(Config{})
	if !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("err = %v, want misconfigured", err)
	}
}

func TestNewStoreDriverSelection(t *testing.T) {
	cases := []struct {
		dsn     string
		dialect dialect
		driver  string
	}{
		{"postgres://user:pw@localhost/db", dialectPostgres, "pgx"},
		{"postgresql://user:pw@localhost/db", dialectPostgres, "pgx"},
		{"file:records.db", dialectSQLite, "sqlite"},
		{"/var/lib/finstmt/records.db", dialectSQLite, "sqlite"},
	}
	for _, tc := range cases {
		store, err := NewStore(Config{DSN: tc.dsn})
		if err != nil {
			t.Fatalf("NewStore(%q): %v", tc.dsn, err)
		}
		if store.dialect != tc.dialect || store.driver != tc.driver {
			t.Errorf("NewStore(%q) = %s/%s, want %s/%s", tc.dsn, store.dialect, store.driver, tc.dialect, tc.driver)
		}
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		CompanyName: strPtr("Acme"),
		Figures: map[string]decimal.Decimal{
			"cash_equivalents": decimal.NewFromInt(100),
			"inventory":      decimal.NewFromInt(7),
		},
	}}
	stored, err := store.Upsert(ctx, domain.BalanceSheet, rec)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.FiscalYear != 2024 || stored.TaxID != "12345678" {
		t.Fatalf("stored keys = %d/%s", stored.FiscalYear, stored.TaxID)
	}
	if d, ok := stored.Figure("cash_equivalents"); !ok || !d.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cash_equivalents = %v, %v", d, ok)
	}

	// Same key again with a subset of fields: supplied columns overwrite,
	// unsupplied columns survive.
	again := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		Figures: map[string]decimal.Decimal{"cash_equivalents": decimal.NewFromInt(250)},
	}}
	stored, err = store.Upsert(ctx, domain.BalanceSheet, again)
	if err != nil {
		t.Fatalf("conflict upsert: %v", err)
	}
	if d, _ := stored.Figure("cash_equivalents"); !d.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("cash_equivalents = %s, want 250", d)
	}
	if d, ok := stored.Figure("inventory"); !ok || !d.Equal(decimal.NewFromInt(7)) {
		t.Fatal("unsupplied column was clobbered")
	}
	if stored.CompanyName == nil || *stored.CompanyName != "Acme" {
		t.Fatal("company name was clobbered")
	}

	recs, err := store.Find(ctx, domain.BalanceSheet, domain.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("composite key produced %d rows, want 1", len(recs))
	}
}

func TestUpsertKeysOnlyLeavesRowUntouched(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	full := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		Figures: map[string]decimal.Decimal{"cash_equivalents": decimal.NewFromInt(42)},
	}}
	if _, err := store.Upsert(ctx, domain.BalanceSheet, full); err != nil {
		t.Fatal(err)
	}

	bare := domain.Record{FiscalYear: 2024, TaxID: "12345678"}
	stored, err := store.Upsert(ctx, domain.BalanceSheet, bare)
	if err != nil {
		t.Fatalf("bare upsert: %v", err)
	}
	if d, ok := stored.Figure("cash_equivalents"); !ok || !d.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("existing row changed by keys-only upsert: %v, %v", d, ok)
	}
}

func TestUpdateExistingAndMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seed := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		Figures: map[string]decimal.Decimal{"inventory": decimal.NewFromInt(1)},
	}}
	if _, err := store.Upsert(ctx, domain.BalanceSheet, seed); err != nil {
		t.Fatal(err)
	}

	stored, err := store.Update(ctx, domain.BalanceSheet, "12345678", 2024, domain.Fields{
		Figures: map[string]decimal.Decimal{"inventory": decimal.NewFromInt(5)},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if d, _ := stored.Figure("inventory"); !d.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("inventory = %s, want 5", d)
	}

	_, err = store.Update(ctx, domain.BalanceSheet, "00000000", 2024, domain.Fields{
		Figures: map[string]decimal.Decimal{"inventory": decimal.NewFromInt(5)},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update missing = %v, want not found", err)
	}
}

func TestDeleteReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seed := domain.Record{FiscalYear: 2024, TaxID: "12345678", Fields: domain.Fields{
		Figures: map[string]decimal.Decimal{"cash_equivalents": decimal.NewFromInt(9)},
	}}
	if _, err := store.Upsert(ctx, domain.BalanceSheet, seed); err != nil {
		t.Fatal(err)
	}
	removed, err := store.Delete(ctx, domain.BalanceSheet, "12345678", 2024)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if d, _ := removed.Figure("cash_equivalents"); !d.Equal(decimal.NewFromInt(9)) {
		t.Fatal("delete did not return the removed row")
	}
	if rec, err := store.FindByKey(ctx, domain.BalanceSheet, "12345678", 2024); err != nil || rec != nil {
		t.Fatalf("row survived delete: %v, %v", rec, err)
	}
	if _, err := store.Delete(ctx, domain.BalanceSheet, "12345678", 2024); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete = %v, want not found", err)
	}
}

func TestCompaniesSyncedFromRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, rec := range []domain.Record{
		{FiscalYear: 2024, TaxID: "22222222", Fields: domain.Fields{CompanyName: strPtr("Beta Industries")}},
		{FiscalYear: 2024, TaxID: "11111111", Fields: domain.Fields{CompanyName: strPtr("Alpha Corp")}},
		{FiscalYear: 2023, TaxID: "11111111", Fields: domain.Fields{CompanyName: strPtr("Alpha Corp")}},
	} {
		if _, err := store.Upsert(ctx, domain.BalanceSheet, rec); err != nil {
			t.Fatal(err)
		}
	}
	companies, err := store.Companies(ctx)
	if err != nil {
		t.Fatalf("companies: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("companies = %d, want 2", len(companies))
	}
	if companies[0].Name != "Alpha Corp" || companies[1].Name != "Beta Industries" {
		t.Fatalf("wrong order: %v", companies)
	}
}

func TestStatusProbe(t *testing.T) {
	store := newTestStore(t)
	st := store.Status(context.Background())
	if st.DatabaseType != domain.BackendRelational || st.State != domain.StateConnected {
		t.Fatalf("status = %+v", st)
	}
}

func TestOverrideSQLOpenFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		return nil, errors.New("open refused")
	})
	defer restore()

	store, err := NewStore(Config{DSN: "postgres://localhost/db"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Companies(context.Background()); !errors.Is(err, domain.ErrQueryFailed) {
		t.Fatalf("err = %v, want query failure", err)
	}
	st := store.Status(context.Background())
	if st.State != domain.StateMisconfigured {
		t.Fatalf("status = %+v, want misconfigured pool", st)
	}
}
