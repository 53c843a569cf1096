// Package memory provides an in-process Adapter used by tests and local runs.
// It mirrors backend semantics exactly: composite-key uniqueness, contract
// ordering, and the not-found behavior of update and delete.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finstmt/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the adapter interface.
var _ domain.Adapter = (*Store)(nil)

type key struct {
	taxID string
	year  int
}

// Store keeps every record type in its own map keyed by the composite key.
type Store struct {
	mu        sync.RWMutex
	tables    map[domain.RecordType]map[key]domain.Record
	companies map[string]domain.Company // tax id -> company
	nextID    int64
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tables: map[domain.RecordType]map[key]domain.Record{
			domain.BalanceSheet:    {},
			domain.IncomeStatement: {},
		},
		companies: map[string]domain.Company{},
		nextID:    1,
	}
}

// Kind implements domain.Adapter.
func (s *Store) Kind() domain.BackendKind { return domain.BackendMemory }

// Companies lists known reporting entities ordered by name.
func (s *Store) Companies(context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find returns matching records in contract order.
func (s *Store) Find(_ context.Context, rt domain.RecordType, f domain.Filter) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Record
	for _, rec := range s.tables[rt] {
		if domain.MatchFilter(rec, f) {
			out = append(out, rec.Clone())
		}
	}
	domain.SortRecords(out)
	return out, nil
}

// FindByKey returns the record for the composite key, or nil when absent.
func (s *Store) FindByKey(_ context.Context, rt domain.RecordType, taxID string, year int) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tables[rt][key{taxID, year}]
	if !ok {
		return nil, nil
	}
	c := rec.Clone()
	return &c, nil
}

// Upsert inserts or overlays supplied fields onto the existing record.
func (s *Store) Upsert(_ context.Context, rt domain.RecordType, rec domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{rec.TaxID, rec.FiscalYear}
	stored, exists := s.tables[rt][k]
	if exists {
		stored = stored.Merge(rec.Fields)
	} else {
		stored = rec.Clone()
	}
	s.tables[rt][k] = stored
	s.registerCompany(stored)
	return stored.Clone(), nil
}

// Update applies partial fields to an existing record and fails when absent.
func (s *Store) Update(_ context.Context, rt domain.RecordType, taxID string, year int, fields domain.Fields) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{taxID, year}
	stored, ok := s.tables[rt][k]
	if !ok {
		return domain.Record{}, domain.NotFoundf("%s record %s/%d not found", rt, taxID, year)
	}
	stored = stored.Merge(fields)
	s.tables[rt][k] = stored
	s.registerCompany(stored)
	return stored.Clone(), nil
}

// Delete removes the record and returns the removed snapshot for undo.
func (s *Store) Delete(_ context.Context, rt domain.RecordType, taxID string, year int) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{taxID, year}
	stored, ok := s.tables[rt][k]
	if !ok {
		return domain.Record{}, domain.NotFoundf("%s record %s/%d not found", rt, taxID, year)
	}
	delete(s.tables[rt], k)
	return stored, nil
}

// Status always reports connected; there is nothing to probe in-process.
func (s *Store) Status(context.Context) domain.Status {
	return domain.Status{
		DatabaseType: domain.BackendMemory,
		State:        domain.StateConnected,
		Message:      "in-memory store",
	}
}

// Close implements domain.Adapter; the store holds no external resources.
func (s *Store) Close() error { return nil }

// Len reports the number of stored records of a type, for tests.
func (s *Store) Len(rt domain.RecordType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[rt])
}

func (s *Store) registerCompany(rec domain.Record) {
	if rec.CompanyName == nil || *rec.CompanyName == "" {
		return
	}
	if c, ok := s.companies[rec.TaxID]; ok {
		c.Name = *rec.CompanyName
		s.companies[rec.TaxID] = c
		return
	}
	s.companies[rec.TaxID] = domain.Company{ID: s.nextID, TaxID: rec.TaxID, Name: *rec.CompanyName}
	s.nextID++
}

// String implements fmt.Stringer for debug output.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("memory{balance_sheet:%d income_statement:%d}",
		len(s.tables[domain.BalanceSheet]), len(s.tables[domain.IncomeStatement]))
}
