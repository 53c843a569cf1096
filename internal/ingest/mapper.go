package ingest

import (
	"fmt"
	"strings"

	"finstmt/pkg/domain"
)

// columnMapping relates workbook column positions to schema field codes.
type columnMapping struct {
	// fields maps a zero-based column index to the schema field it feeds.
	fields map[int]string
	// warnings lists schema fields left unmapped after both passes, in the
	// "label (code)" form.
	warnings []string
}

// mapColumns resolves workbook headers against the schema in two passes.
// The code row is authoritative: a column whose row-2 cell names a schema
// field code is bound to that field. Columns left over are resolved by the
// row-1 human label. When both rows claim the same field for different
// columns, the code binding wins. Every schema field with no column after
// both passes is reported as a warning; header cells naming nothing in the
// schema are dropped silently, like any other unknown column.
func mapColumns(rt domain.RecordType, labels, codes []string) columnMapping {
	index := domain.SchemaIndex(rt)
	byLabel := make(map[string]string, len(index))
	for code, col := range index {
		if col.Label != "" {
			byLabel[col.Label] = code
		}
	}

	m := columnMapping{fields: make(map[int]string)}
	claimed := make(map[string]bool)

	width := len(labels)
	if len(codes) > width {
		width = len(codes)
	}

	for i := 0; i < width; i++ {
		code := cellAt(codes, i)
		if code == "" {
			continue
		}
		if _, ok := index[code]; ok && !claimed[code] {
			m.fields[i] = code
			claimed[code] = true
		}
	}

	for i := 0; i < width; i++ {
		if _, bound := m.fields[i]; bound {
			continue
		}
		label := cellAt(labels, i)
		if label == "" {
			continue
		}
		if field, ok := byLabel[label]; ok && !claimed[field] {
			m.fields[i] = field
			claimed[field] = true
		}
	}

	for _, col := range domain.Schema(rt) {
		if !claimed[col.Code] {
			m.warnings = append(m.warnings, describeHeader(col.Label, col.Code))
		}
	}

	return m
}

// rowToRaw converts one data row into the raw payload keyed by field code.
// Blank cells are omitted so downstream coercion treats them as absent.
func (m columnMapping) rowToRaw(cells []string) domain.RawRow {
	raw := make(domain.RawRow, len(m.fields))
	for idx, field := range m.fields {
		v := cellAt(cells, idx)
		if v == "" {
			continue
		}
		raw[field] = v
	}
	return raw
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func describeHeader(label, code string) string {
	switch {
	case label != "" && code != "":
		return fmt.Sprintf("%s (%s)", label, code)
	case code != "":
		return code
	default:
		return label
	}
}
