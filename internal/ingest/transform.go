package ingest

// transform.go applies the field mapping and per-field type coercion to raw
// rows. One rowTransform is built per file (or per accepted sheet) and
// reused for every row, so the per-row cost is a slice walk.

import (
	"strings"

	"ledgerflow/internal/template"
)

// NormalizeCell applies the per-cell normalization shared by every source
// format. The placeholder values "-" and "0" both normalize to "0";
// everything else is trimmed.
func NormalizeCell(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "-" || s == "0" {
		return "0"
	}
	return s
}

// binding ties one mapped file column to its canonical field.
type binding struct {
	field string
	typ   template.FieldType
	col   int // position in the file's header row, -1 when absent
}

// rowTransform converts raw rows into typed records for one file.
type rowTransform struct {
	bindings []binding
}

// newRowTransform resolves the mapping against the file's actual header row.
// Header matching is case-insensitive; a mapped header missing from the file
// still yields a binding (col -1) so every record carries the full mapped
// field set.
func newRowTransform(headers []string, mapping template.Mapping, types map[string]template.FieldType) *rowTransform {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; !seen { // first occurrence wins for duplicates
			index[key] = i
		}
	}

	bindings := make([]binding, 0, len(mapping))
	for fileHeader, field := range mapping {
		col := -1
		if i, ok := index[strings.ToLower(strings.TrimSpace(fileHeader))]; ok {
			col = i
		}
		bindings = append(bindings, binding{
			field: field,
			typ:   types[field],
			col:   col,
		})
	}
	return &rowTransform{bindings: bindings}
}

// apply builds a typed record from a raw row. Cells beyond the row's length
// and unmapped columns coerce from the empty string, so numeric fields
// default to 0 instead of going missing.
func (t *rowTransform) apply(row []string) TypedRecord {
	rec := make(TypedRecord, len(t.bindings))
	for _, b := range t.bindings {
		raw := ""
		if b.col >= 0 && b.col < len(row) {
			raw = NormalizeCell(row[b.col])
		}
		rec[b.field] = template.Coerce(raw, b.typ)
	}
	return rec
}

// empty reports whether a raw row has no populated cells. Trailing blank
// rows are common in spreadsheet exports and would otherwise inflate counts.
func empty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
