// Package template defines the canonical field definitions uploaded file
// columns are mapped onto, and the type coercion applied per cell.
//
// Coercion favors ingestion throughput over strict validation: a numeric
// cell holding a placeholder ("-", empty) or garbage coerces to 0 rather
// than failing the row. Truly structural failures are the transformer's
// concern, not this package's.
package template

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldType is the declared type of a canonical template field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// Field is a canonical, typed column definition.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Template is a named set of canonical fields.
type Template struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// FieldTypes returns a lookup from field name to its declared type.
func (t Template) FieldTypes() map[string]FieldType {
	types := make(map[string]FieldType, len(t.Fields))
	for _, f := range t.Fields {
		types[f.Name] = f.Type
	}
	return types
}

// Mapping associates a file header with a canonical field name.
// Keys are file headers and must be unique; each value references a field
// defined in the template.
type Mapping map[string]string

// Fields returns the canonical field names in the mapping's range.
func (m Mapping) Fields() []string {
	out := make([]string, 0, len(m))
	for _, field := range m {
		out = append(out, field)
	}
	return out
}

// Date layouts accepted during coercion, 4-digit years only: ledger exports
// use unambiguous formats, and a 2-digit year in financial data is a data
// quality problem to surface, not to guess around.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006", "01/02/2006",
	"2006/01/02",
	"1-2-2006", "01-02-2006",
	"2006.01.02", "1.2.2006",
	"Jan 2, 2006", "2 Jan 2006",
	"20060102",
	time.RFC3339,
}

// DateFormat is the calendar-date serialization used for coerced dates:
// no time-of-day, no timezone ambiguity.
const DateFormat = "2006-01-02"

// Coerce converts a raw cell value to the Go value for a field type.
//
// number → float64, date → calendar-date string, everything else → trimmed
// string. Numeric placeholders ("-", "", garbage) yield 0, never NaN.
func Coerce(raw string, t FieldType) any {
	switch t {
	case FieldNumber:
		return CoerceNumber(raw)
	case FieldDate:
		return CoerceDate(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

// CoerceNumber parses a numeric cell, tolerating thousands separators,
// currency symbols, and accounting-style negatives. Missing or unparseable
// values default to 0.
func CoerceNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // euro
	s = strings.ReplaceAll(s, "£", "") // pound
	s = strings.TrimSpace(s)

	f, ok := parseFloat(s)
	if !ok {
		return 0
	}
	if neg {
		return -f
	}
	return f
}

// CoerceDate parses a date cell into the canonical calendar-date string.
// Unparseable values pass through trimmed so no data is silently dropped.
func CoerceDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateFormat)
		}
	}
	return s
}

// numericPattern accepts integers, decimals, and scientific notation after
// separator cleanup. Anything else defaults rather than erroring.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func parseFloat(s string) (float64, bool) {
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
