// Package sqldb implements the relational backend adapter over database/sql.
// The engine has no adapter-visible upsert of its own here: conflict handling
// is synthesized per statement from the static column schema. Two drivers are
// registered, pgx for Postgres and modernc sqlite for embedded deployments;
// the DSN selects between them.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"finstmt/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // register the pure-Go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the adapter interface.
var _ domain.Adapter = (*Store)(nil)

const defaultTimeout = 30 * time.Second

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Config carries relational connection settings.
type Config struct {
	DSN            string        // postgres://... or a sqlite file path
	RequestTimeout time.Duration // per-statement deadline, default 30s
	MaxOpenConns   int           // 0 keeps the driver default
}

// Store is the relational adapter. The connection pool is opened lazily on
// first use and released by Close.
type Store struct {
	cfg     Config
	dialect dialect
	driver  string

	mu sync.Mutex
	db *sql.DB
}

// NewStore validates settings and constructs the adapter without connecting.
func NewStore(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, domain.Misconfigured("relational backend requires a DSN")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	s := &Store{cfg: cfg, dialect: dialectSQLite, driver: "sqlite"}
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		s.dialect = dialectPostgres
		s.driver = "pgx"
	}
	return s, nil
}

// Kind implements domain.Adapter.
func (s *Store) Kind() domain.BackendKind { return domain.BackendRelational }

// pool returns the lazily-initialized connection pool.
func (s *Store) pool() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	openMu.Lock()
	db, err := sqlOpen(s.driver, s.cfg.DSN)
	openMu.Unlock()
	if err != nil {
		return nil, domain.QueryFailed("open database", err)
	}
	if s.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	}
	s.db = db
	return db, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

// EnsureSchema creates the record tables and the companies table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.pool()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	stmts := []string{
		createTableDDL(domain.BalanceSheet),
		createTableDDL(domain.IncomeStatement),
		createCompaniesDDL(s.dialect),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return domain.QueryFailed("apply schema", err)
		}
	}
	return nil
}

// Companies lists reporting entities ordered by name.
func (s *Store) Companies(ctx context.Context) ([]domain.Company, error) {
	db, err := s.pool()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := db.QueryContext(ctx, `SELECT id, tax_id, company_name FROM companies ORDER BY company_name`)
	if err != nil {
		return nil, domain.QueryFailed("select companies", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.TaxID, &c.Name); err != nil {
			return nil, domain.QueryFailed("scan company", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.QueryFailed("iterate companies", err)
	}
	return out, nil
}

// Find returns matching records in contract order.
func (s *Store) Find(ctx context.Context, rt domain.RecordType, f domain.Filter) ([]domain.Record, error) {
	db, err := s.pool()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	query, args := buildFind(rt, f)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.QueryFailed(fmt.Sprintf("select %s", rt.Table()), err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rt, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.QueryFailed(fmt.Sprintf("iterate %s", rt.Table()), err)
	}
	return out, nil
}

// FindByKey returns the record for the composite key, or nil when absent.
func (s *Store) FindByKey(ctx context.Context, rt domain.RecordType, taxID string, year int) (*domain.Record, error) {
	recs, err := s.Find(ctx, rt, domain.Filter{TaxID: taxID, FiscalYear: year})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Upsert runs the synthesized conditional statement and returns the stored row.
func (s *Store) Upsert(ctx context.Context, rt domain.RecordType, rec domain.Record) (domain.Record, error) {
	db, err := s.pool()
	if err != nil {
		return domain.Record{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, hasSet := buildUpsert(rt, rec)
	row := db.QueryRowContext(ctx, query, args...)
	stored, err := scanRecord(rt, row)
	if errors.Is(err, sql.ErrNoRows) && !hasSet {
		// DO NOTHING hit an existing row; the row is untouched, re-read it.
		existing, ferr := s.FindByKey(ctx, rt, rec.TaxID, rec.FiscalYear)
		if ferr != nil {
			return domain.Record{}, ferr
		}
		if existing == nil {
			return domain.Record{}, domain.QueryFailed(fmt.Sprintf("upsert %s", rt.Table()), sql.ErrNoRows)
		}
		stored, err = *existing, nil
	}
	if err != nil {
		return domain.Record{}, domain.QueryFailed(fmt.Sprintf("upsert %s", rt.Table()), err)
	}
	s.syncCompany(ctx, db, stored)
	return stored, nil
}

// Update applies partial fields to an existing row and fails when absent.
func (s *Store) Update(ctx context.Context, rt domain.RecordType, taxID string, year int, fields domain.Fields) (domain.Record, error) {
	db, err := s.pool()
	if err != nil {
		return domain.Record{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := buildUpdate(rt, taxID, year, fields)
	if err != nil {
		return domain.Record{}, err
	}
	row := db.QueryRowContext(ctx, query, args...)
	stored, err := scanRecord(rt, row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.NotFoundf("%s record %s/%d not found", rt, taxID, year)
	}
	if err != nil {
		return domain.Record{}, domain.QueryFailed(fmt.Sprintf("update %s", rt.Table()), err)
	}
	s.syncCompany(ctx, db, stored)
	return stored, nil
}

// Delete reads the row for undo, then removes it.
func (s *Store) Delete(ctx context.Context, rt domain.RecordType, taxID string, year int) (domain.Record, error) {
	existing, err := s.FindByKey(ctx, rt, taxID, year)
	if err != nil {
		return domain.Record{}, err
	}
	if existing == nil {
		return domain.Record{}, domain.NotFoundf("%s record %s/%d not found", rt, taxID, year)
	}

	db, err := s.pool()
	if err != nil {
		return domain.Record{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2",
		rt.Table(), domain.FieldTaxID, domain.FieldFiscalYear)
	if _, err := db.ExecContext(ctx, query, taxID, year); err != nil {
		return domain.Record{}, domain.QueryFailed(fmt.Sprintf("delete from %s", rt.Table()), err)
	}
	return *existing, nil
}

// Status probes the pool with a trivial read.
func (s *Store) Status(ctx context.Context) domain.Status {
	st := domain.Status{DatabaseType: domain.BackendRelational}
	db, err := s.pool()
	if err != nil {
		st.State = domain.StateMisconfigured
		st.Message = err.Error()
		return st
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var one int
	if err := db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		st.State = domain.StateFailed
		st.Message = fmt.Sprintf("connection failed: %v", err)
		return st
	}
	st.State = domain.StateConnected
	st.Message = fmt.Sprintf("connected (%s)", s.dialect)
	return st
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// syncCompany keeps the companies table aligned with the denormalized
// company_name carried on records, keyed by tax id. Failures are deliberately
// swallowed: company bookkeeping must never fail a record write.
func (s *Store) syncCompany(ctx context.Context, db *sql.DB, rec domain.Record) {
	if rec.CompanyName == nil || *rec.CompanyName == "" {
		return
	}
	_, _ = db.ExecContext(ctx, `INSERT INTO companies (tax_id, company_name) VALUES ($1, $2)
ON CONFLICT (tax_id) DO UPDATE SET company_name = EXCLUDED.company_name`,
		rec.TaxID, *rec.CompanyName)
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
