package domain

import (
	"context"
	"sort"
)

// BackendKind names a backend adapter family.
type BackendKind string

const (
	// BackendDocument is the document-style backend with a native upsert primitive.
	BackendDocument BackendKind = "document"
	// BackendRelational is the SQL backend with synthesized conflict resolution.
	BackendRelational BackendKind = "relational"
	// BackendMemory is the in-process backend used by tests and local runs.
	BackendMemory BackendKind = "memory"
)

// Filter narrows Find results. Zero values mean "no constraint".
type Filter struct {
	TaxID       string
	FiscalYear  int
	CompanyName string
}

// ConnState is the coarse health of a backend connection.
type ConnState string

const (
	// StateConnected means the trivial probe read succeeded.
	StateConnected ConnState = "connected"
	// StateFailed means the probe was attempted and rejected.
	StateFailed ConnState = "failed"
	// StateMisconfigured means the adapter lacks settings to even try.
	StateMisconfigured ConnState = "misconfigured"
)

// Status is the operational health probe result polled by health checks.
type Status struct {
	DatabaseType BackendKind `json:"databaseType"`
	State        ConnState   `json:"status"`
	Message      string      `json:"message"`
}

// Adapter is the uniform operation set every storage backend implements.
// Find returns records ordered by fiscal year descending then tax id
// ascending. FindByKey returns (nil, nil) when no record matches. Mutating
// operations return the resulting (or, for Delete, the removed) record.
type Adapter interface {
	Kind() BackendKind

	Companies(ctx context.Context) ([]Company, error)

	Find(ctx context.Context, rt RecordType, f Filter) ([]Record, error)
	FindByKey(ctx context.Context, rt RecordType, taxID string, fiscalYear int) (*Record, error)
	Upsert(ctx context.Context, rt RecordType, rec Record) (Record, error)
	Update(ctx context.Context, rt RecordType, taxID string, fiscalYear int, fields Fields) (Record, error)
	Delete(ctx context.Context, rt RecordType, taxID string, fiscalYear int) (Record, error)

	Status(ctx context.Context) Status
	Close() error
}

// SortRecords orders records by fiscal year descending then tax id ascending,
// the contract order for Find. Backends without native ordering use it.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].FiscalYear != records[j].FiscalYear {
			return records[i].FiscalYear > records[j].FiscalYear
		}
		return records[i].TaxID < records[j].TaxID
	})
}

// MatchFilter reports whether rec satisfies f. CompanyName matching is by
// exact string equality on the denormalized display name.
func MatchFilter(rec Record, f Filter) bool {
	if f.TaxID != "" && rec.TaxID != f.TaxID {
		return false
	}
	if f.FiscalYear != 0 && rec.FiscalYear != f.FiscalYear {
		return false
	}
	if f.CompanyName != "" {
		if rec.CompanyName == nil || *rec.CompanyName != f.CompanyName {
			return false
		}
	}
	return true
}
