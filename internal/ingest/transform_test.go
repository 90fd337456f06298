package ingest

import (
	"testing"

	"ledgerflow/internal/template"
)

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"-", "0"},
		{"0", "0"},
		{" - ", "0"},
		{"100", "100"},
		{"  Acme  ", "Acme"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCell(tt.raw); got != tt.want {
			t.Errorf("NormalizeCell(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func glTypes() map[string]template.FieldType {
	return map[string]template.FieldType{
		"clientName": template.FieldText,
		"value":      template.FieldNumber,
		"posted":     template.FieldDate,
	}
}

func TestRowTransform_Apply(t *testing.T) {
	headers := []string{"Name", "Amount", "Date"}
	mapping := template.Mapping{
		"Name":   "clientName",
		"Amount": "value",
		"Date":   "posted",
	}
	xform := newRowTransform(headers, mapping, glTypes())

	rec := xform.apply([]string{"Acme", "1,234", "1/31/2024"})
	if rec["clientName"] != "Acme" {
		t.Errorf("clientName = %#v, want Acme", rec["clientName"])
	}
	if rec["value"] != float64(1234) {
		t.Errorf("value = %#v, want 1234", rec["value"])
	}
	if rec["posted"] != "2024-01-31" {
		t.Errorf("posted = %#v, want 2024-01-31", rec["posted"])
	}
}

func TestRowTransform_HeaderMatchingIsCaseInsensitive(t *testing.T) {
	headers := []string{"NAME", " amount "}
	mapping := template.Mapping{"Name": "clientName", "Amount": "value"}
	xform := newRowTransform(headers, mapping, glTypes())

	rec := xform.apply([]string{"Acme", "10"})
	if rec["clientName"] != "Acme" || rec["value"] != float64(10) {
		t.Errorf("apply() = %#v, want mapped values despite case/space differences", rec)
	}
}

func TestRowTransform_MissingMappedHeaderStillEmitsField(t *testing.T) {
	// The file lacks the "Amount" column; every record still carries the
	// full mapped field set, with the numeric field defaulting to 0.
	headers := []string{"Name"}
	mapping := template.Mapping{"Name": "clientName", "Amount": "value"}
	xform := newRowTransform(headers, mapping, glTypes())

	rec := xform.apply([]string{"Acme"})
	if len(rec) != 2 {
		t.Fatalf("record carries %d fields, want 2: %#v", len(rec), rec)
	}
	if rec["value"] != float64(0) {
		t.Errorf("value = %#v, want 0 for a missing column", rec["value"])
	}
}

func TestRowTransform_ShortRowDefaults(t *testing.T) {
	headers := []string{"Name", "Amount"}
	mapping := template.Mapping{"Name": "clientName", "Amount": "value"}
	xform := newRowTransform(headers, mapping, glTypes())

	rec := xform.apply([]string{"Acme"}) // row shorter than header
	if rec["value"] != float64(0) {
		t.Errorf("value = %#v, want 0 for a truncated row", rec["value"])
	}
}

func TestRowTransform_DuplicateHeaderFirstWins(t *testing.T) {
	headers := []string{"Amount", "Amount"}
	mapping := template.Mapping{"Amount": "value"}
	xform := newRowTransform(headers, mapping, glTypes())

	rec := xform.apply([]string{"100", "999"})
	if rec["value"] != float64(100) {
		t.Errorf("value = %#v, want first occurrence 100", rec["value"])
	}
}

func TestEmptyRow(t *testing.T) {
	if !empty([]string{"", "  ", ""}) {
		t.Error("empty() = false for a row of blank cells")
	}
	if empty([]string{"", "x"}) {
		t.Error("empty() = true for a row with a populated cell")
	}
	if !empty(nil) {
		t.Error("empty() = false for a nil row")
	}
}
