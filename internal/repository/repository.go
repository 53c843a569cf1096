// Package repository is the backend-agnostic facade over the storage
// adapters. One adapter is selected at process start from configuration and
// serves the whole process lifetime; every record mutation flows through
// here, never through an adapter directly.
package repository

import (
	"context"
	"fmt"

	"finstmt/internal/config"
	"finstmt/internal/infra/persistence/dynamo"
	"finstmt/internal/infra/persistence/memory"
	"finstmt/internal/infra/persistence/sqldb"
	"finstmt/internal/metrics"
	"finstmt/pkg/domain"

	"github.com/rs/zerolog"
)

// MaxBatchRows is the whole-batch ceiling. Larger batches are rejected up
// front; no partial processing happens.
const MaxBatchRows = 1000

// Repository exposes the uniform CRUD, upsert, and batch reconciliation API.
type Repository struct {
	adapter domain.Adapter
	log     zerolog.Logger
}

// Open selects and constructs the configured adapter. Construction failures
// are Misconfigured and fatal for the process, not recoverable per call.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Repository, error) {
	adapter, err := openAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", string(adapter.Kind())).Msg("repository ready")
	return New(adapter, log), nil
}

// New wires an explicit adapter, for tests and embedded use.
func New(adapter domain.Adapter, log zerolog.Logger) *Repository {
	return &Repository{adapter: adapter, log: log}
}

func openAdapter(ctx context.Context, cfg config.Config) (domain.Adapter, error) {
	switch cfg.Backend {
	case config.BackendRelational:
		store, err := sqldb.NewStore(sqldb.Config{
			DSN:            cfg.DSN,
			RequestTimeout: cfg.RequestTimeout,
			MaxOpenConns:   cfg.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendDocument, "":
		return dynamo.NewStore(ctx, dynamo.Config{
			Region:          cfg.DynamoRegion,
			Endpoint:        cfg.DynamoEndpoint,
			TablePrefix:     cfg.DynamoPrefix,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	default:
		return nil, domain.Misconfigured(fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// Backend reports the active adapter family.
func (r *Repository) Backend() domain.BackendKind { return r.adapter.Kind() }

// Companies lists reporting entities.
func (r *Repository) Companies(ctx context.Context) ([]domain.Company, error) {
	companies, err := r.adapter.Companies(ctx)
	return companies, r.observe(err)
}

// Find returns records matching the filter, ordered by fiscal year
// descending then tax id ascending.
func (r *Repository) Find(ctx context.Context, rt domain.RecordType, f domain.Filter) ([]domain.Record, error) {
	records, err := r.adapter.Find(ctx, rt, f)
	return records, r.observe(err)
}

// FindByKey returns the record for the composite key, or nil when absent.
func (r *Repository) FindByKey(ctx context.Context, rt domain.RecordType, taxID string, year int) (*domain.Record, error) {
	rec, err := r.adapter.FindByKey(ctx, rt, taxID, year)
	return rec, r.observe(err)
}

// Upsert validates and normalizes a raw record, classifies insert-vs-update
// with a best-effort pre-read, and reconciles it into storage. The
// classification can misreport under a concurrent writer; the stored data
// cannot.
func (r *Repository) Upsert(ctx context.Context, rt domain.RecordType, row domain.RawRow) (domain.Record, bool, error) {
	rec, err := domain.NormalizeRecord(rt, row)
	if err != nil {
		return domain.Record{}, false, err
	}
	existing, err := r.adapter.FindByKey(ctx, rt, rec.TaxID, rec.FiscalYear)
	if err != nil {
		return domain.Record{}, false, r.observe(err)
	}
	stored, err := r.adapter.Upsert(ctx, rt, rec)
	if err != nil {
		return domain.Record{}, false, r.observe(err)
	}
	inserted := existing == nil
	r.log.Debug().Str("record_type", string(rt)).Str("tax_id", rec.TaxID).
		Int("fiscal_year", rec.FiscalYear).Bool("inserted", inserted).Msg("upsert")
	return stored, inserted, nil
}

// Update applies partial fields to an existing record. Key fields present in
// the payload are stripped by the schema filter, never applied.
func (r *Repository) Update(ctx context.Context, rt domain.RecordType, taxID string, year int, row domain.RawRow) (domain.Record, error) {
	if err := domain.ValidateYear(year); err != nil {
		return domain.Record{}, err
	}
	if err := domain.ValidateTaxID(taxID); err != nil {
		return domain.Record{}, err
	}
	fields, err := domain.NormalizeFields(rt, row)
	if err != nil {
		return domain.Record{}, err
	}
	rec, err := r.adapter.Update(ctx, rt, taxID, year, fields)
	return rec, r.observe(err)
}

// Delete removes a record by key and returns the removed snapshot for undo.
func (r *Repository) Delete(ctx context.Context, rt domain.RecordType, taxID string, year int) (domain.Record, error) {
	rec, err := r.adapter.Delete(ctx, rt, taxID, year)
	return rec, r.observe(err)
}

// Status probes the backend for operational health checks.
func (r *Repository) Status(ctx context.Context) domain.Status {
	return r.adapter.Status(ctx)
}

// Close releases adapter resources.
func (r *Repository) Close() error { return r.adapter.Close() }

// BatchUpsert reconciles a batch of raw rows in input order. A bad row never
// aborts the batch: it is skipped with a reason and processing continues.
// The one whole-batch failure mode is the size ceiling, rejected before any
// row is touched. On return, inserted + updated + skipped equals the input
// length and errors carries one entry per skipped row.
func (r *Repository) BatchUpsert(ctx context.Context, rt domain.RecordType, rows []domain.RawRow) (domain.BatchResult, error) {
	if len(rows) > MaxBatchRows {
		metrics.BatchRejected.Inc()
		return domain.BatchResult{}, domain.Validationf("batch exceeds the %d-row limit", MaxBatchRows)
	}

	var result domain.BatchResult
	skip := func(i int, reason string) {
		result.Skipped++
		result.Errors = append(result.Errors, domain.RowError{Row: i + 1, Reason: reason})
		metrics.BatchRows.WithLabelValues(string(rt), "skipped").Inc()
	}

	for i, row := range rows {
		rec, err := domain.NormalizeRecord(rt, row)
		if err != nil {
			skip(i, err.Error())
			continue
		}
		existing, err := r.adapter.FindByKey(ctx, rt, rec.TaxID, rec.FiscalYear)
		if err != nil {
			r.observe(err)
			skip(i, fmt.Sprintf("lookup failed: %v", err))
			continue
		}
		if _, err := r.adapter.Upsert(ctx, rt, rec); err != nil {
			r.observe(err)
			skip(i, err.Error())
			continue
		}
		if existing != nil {
			result.Updated++
			metrics.BatchRows.WithLabelValues(string(rt), "updated").Inc()
		} else {
			result.Inserted++
			metrics.BatchRows.WithLabelValues(string(rt), "inserted").Inc()
		}
	}

	r.log.Info().Str("record_type", string(rt)).Int("rows", len(rows)).
		Int("inserted", result.Inserted).Int("updated", result.Updated).
		Int("skipped", result.Skipped).Msg("batch reconciled")
	return result, nil
}

// observe counts query failures without altering the error.
func (r *Repository) observe(err error) error {
	if domain.KindOf(err) == domain.KindQueryFailed {
		metrics.QueryFailures.Inc()
	}
	return err
}
