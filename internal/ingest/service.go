// Package ingest turns uploaded spreadsheets into reconciled records and
// renders stored records back into the same workbook layout.
package ingest

import (
	"bytes"
	"context"
	"io"

	"finstmt/internal/archive"
	"finstmt/internal/repository"
	"finstmt/pkg/domain"

	"github.com/rs/zerolog"
)

// Service drives workbook imports and exports.
type Service struct {
	repo *repository.Repository
	arch archive.Store
	log  zerolog.Logger
}

func NewService(repo *repository.Repository, arch archive.Store, log zerolog.Logger) *Service {
	return &Service{repo: repo, arch: arch, log: log}
}

// SheetReport is the per-sheet outcome of an import.
type SheetReport struct {
	Sheet      string             `json:"sheet"`
	RecordType domain.RecordType  `json:"recordType"`
	Result     domain.BatchResult `json:"result"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// ImportReport summarizes a workbook import.
type ImportReport struct {
	ArchiveKey string        `json:"archiveKey,omitempty"`
	Sheets     []SheetReport `json:"sheets"`
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportWorkbook archives the uploaded bytes, parses the recognized sheets,
// and reconciles each sheet as one batch. A sheet whose batch is rejected
// (over the row ceiling) fails the whole import; row-level problems are
// reported per sheet and never abort anything.
func (s *Service) ImportWorkbook(ctx context.Context, r io.Reader) (ImportReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportReport{}, domain.Validationf("cannot read upload: %v", err)
	}

	sheets, err := ParseWorkbook(bytes.NewReader(data))
	if err != nil {
		return ImportReport{}, err
	}

	var report ImportReport
	key := archive.ImportKey()
	if _, err := s.arch.Put(ctx, key, bytes.NewReader(data), xlsxContentType); err != nil {
		// Archival is best effort; the import itself proceeds.
		s.log.Warn().Err(err).Str("key", key).Msg("workbook archive failed")
	} else {
		report.ArchiveKey = key
	}

	for _, sheet := range sheets {
		result, err := s.repo.BatchUpsert(ctx, sheet.Type, sheet.Rows)
		if err != nil {
			return ImportReport{}, err
		}
		for _, w := range sheet.Warnings {
			s.log.Warn().Str("sheet", sheet.Name).Str("header", w).Msg("unmapped column")
		}
		report.Sheets = append(report.Sheets, SheetReport{
			Sheet:      sheet.Name,
			RecordType: sheet.Type,
			Result:     result,
			Warnings:   sheet.Warnings,
		})
	}
	return report, nil
}

// ExportWorkbook renders all records matching the filter into a workbook.
func (s *Service) ExportWorkbook(ctx context.Context, f domain.Filter, opts ExportOptions) ([]byte, error) {
	records := make(map[domain.RecordType][]domain.Record, len(sheetTypes))
	for _, st := range sheetTypes {
		recs, err := s.repo.Find(ctx, st.Type, f)
		if err != nil {
			return nil, err
		}
		records[st.Type] = recs
	}
	return BuildWorkbook(records, opts)
}
