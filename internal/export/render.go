package export

// render.go turns arbitrary result payloads into worksheet rows. A payload
// takes one of four shapes, detected once and rendered by an exhaustive
// per-shape function. Precedence: a list of records beats a plain list,
// a record beats a scalar. Nested values are JSON-stringified so a cell
// never holds a Go-formatted map.

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"ledgerflow/internal/errs"
)

type shape int

const (
	shapeScalar shape = iota
	shapeRecord
	shapeScalarList
	shapeRecordList
)

// shapeOf classifies v. A []any whose every element is a map[string]any is
// a record list; any other slice is a scalar list.
func shapeOf(v any) shape {
	switch t := v.(type) {
	case []map[string]any:
		return shapeRecordList
	case []any:
		if len(t) == 0 {
			return shapeScalarList
		}
		for _, el := range t {
			if _, ok := el.(map[string]any); !ok {
				return shapeScalarList
			}
		}
		return shapeRecordList
	case map[string]any:
		return shapeRecord
	default:
		return shapeScalar
	}
}

// renderSheet writes v into sheet according to its shape.
func renderSheet(f *excelize.File, sheet string, v any) error {
	switch shapeOf(v) {
	case shapeRecordList:
		return renderRecordList(f, sheet, asRecordList(v))
	case shapeScalarList:
		return renderScalarList(f, sheet, v.([]any))
	case shapeRecord:
		return renderRecord(f, sheet, v.(map[string]any))
	default:
		return renderScalar(f, sheet, v)
	}
}

func asRecordList(v any) []map[string]any {
	if recs, ok := v.([]map[string]any); ok {
		return recs
	}
	list := v.([]any)
	recs := make([]map[string]any, len(list))
	for i, el := range list {
		recs[i] = el.(map[string]any)
	}
	return recs
}

// renderRecordList writes a header row from the union of keys across all
// records, sorted for determinism, then one row per record.
func renderRecordList(f *excelize.File, sheet string, recs []map[string]any) error {
	seen := make(map[string]bool)
	var headers []string
	for _, rec := range recs {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}

	for i, rec := range recs {
		for j, h := range headers {
			row[j] = cellValue(rec[h])
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func renderScalarList(f *excelize.File, sheet string, list []any) error {
	if err := setRow(f, sheet, 1, []any{"Index", "Value"}); err != nil {
		return err
	}
	for i, el := range list {
		if err := setRow(f, sheet, i+2, []any{i, cellValue(el)}); err != nil {
			return err
		}
	}
	return nil
}

// renderRecord writes one key/value row per entry, keys sorted. No header
// row: the sheet has exactly as many rows as the record has keys.
func renderRecord(f *excelize.File, sheet string, rec map[string]any) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if err := setRow(f, sheet, i+1, []any{k, cellValue(rec[k])}); err != nil {
			return err
		}
	}
	return nil
}

func renderScalar(f *excelize.File, sheet string, v any) error {
	return setRow(f, sheet, 1, []any{cellValue(v)})
}

// cellValue flattens nested structures to JSON text; simple values pass
// through so numbers stay numeric in the workbook.
func cellValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string, bool, int, int32, int64, float32, float64:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errs.FormatWrap(err, "addressing row %d of sheet %q", row, sheet)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errs.FormatWrap(err, "writing row %d of sheet %q", row, sheet)
	}
	return nil
}
