package export

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestShapeOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want shape
	}{
		{"nil", nil, shapeScalar},
		{"string", "done", shapeScalar},
		{"number", 42, shapeScalar},
		{"record", map[string]any{"a": 1}, shapeRecord},
		{"typed record list", []map[string]any{{"a": 1}}, shapeRecordList},
		{"untyped record list", []any{map[string]any{"a": 1}, map[string]any{"b": 2}}, shapeRecordList},
		{"mixed list", []any{map[string]any{"a": 1}, "loose"}, shapeScalarList},
		{"scalar list", []any{1, 2, 3}, shapeScalarList},
		{"empty list", []any{}, shapeScalarList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shapeOf(tt.in); got != tt.want {
				t.Errorf("shapeOf(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func renderToRows(t *testing.T, v any) [][]string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := renderSheet(f, "Sheet1", v); err != nil {
		t.Fatalf("renderSheet: %v", err)
	}
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	return rows
}

func TestRenderRecordList(t *testing.T) {
	rows := renderToRows(t, []map[string]any{
		{"account": "1000", "debit": 250},
		{"account": "2000", "credit": 250, "memo": "offset"},
	})

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	wantHeader := []string{"account", "credit", "debit", "memo"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	if rows[1][0] != "1000" || rows[1][2] != "250" {
		t.Errorf("first data row = %v", rows[1])
	}
	if rows[2][1] != "250" || rows[2][3] != "offset" {
		t.Errorf("second data row = %v", rows[2])
	}
}

func TestRenderRecord(t *testing.T) {
	rows := renderToRows(t, map[string]any{
		"status": "passed",
		"count":  7,
		"nested": map[string]any{"k": "v"},
	})

	// One row per key, no header row.
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Keys come out sorted.
	if rows[0][0] != "count" || rows[0][1] != "7" {
		t.Errorf("count row = %v", rows[0])
	}
	if rows[1][0] != "nested" || rows[1][1] != `{"k":"v"}` {
		t.Errorf("nested value not JSON-flattened: %v", rows[1])
	}
	if rows[2][0] != "status" || rows[2][1] != "passed" {
		t.Errorf("status row = %v", rows[2])
	}
}

func TestRenderScalarList(t *testing.T) {
	rows := renderToRows(t, []any{"alpha", 2, []any{"x"}})

	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][0] != "Index" || rows[0][1] != "Value" {
		t.Errorf("header row = %v", rows[0])
	}
	if rows[1][0] != "0" || rows[1][1] != "alpha" {
		t.Errorf("row 0 = %v", rows[1])
	}
	if rows[3][1] != `["x"]` {
		t.Errorf("nested list value = %q, want JSON text", rows[3][1])
	}
}

func TestRenderScalar(t *testing.T) {
	rows := renderToRows(t, "all clear")
	if len(rows) != 1 || rows[0][0] != "all clear" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"int passes through", 5, 5},
		{"float passes through", 1.5, 1.5},
		{"bool passes through", true, true},
		{"map flattened", map[string]any{"a": 1}, `{"a":1}`},
		{"slice flattened", []any{1, 2}, `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellValue(tt.in); got != tt.want {
				t.Errorf("cellValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
