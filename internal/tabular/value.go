package tabular

import (
	"strconv"
	"strings"
)

// ValueKind discriminates the closed set of scalar kinds a cell can hold.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindText
	KindNumber
	KindBool
)

// String returns the dtype label used in schema descriptors.
func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Value is one cell of a tabular export. Cells carry a closed scalar
// variant instead of untyped data so statistics and formatting never
// branch on dynamic types. Text holds the trimmed source text for every
// parsed cell, so rendering echoes the export rather than a re-formatted
// number or boolean.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
}

// EmptyValue returns the empty (null) cell value.
func EmptyValue() Value {
	return Value{Kind: KindEmpty}
}

// TextValue returns a text cell value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// NumberValue returns a numeric cell value.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Number: f}
}

// BoolValue returns a boolean cell value.
func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// ParseValue classifies a raw cell into the closed variant. Whitespace-only
// cells are empty; numeric and boolean literals are detected best-effort,
// everything else stays text.
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EmptyValue()
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Value{Kind: KindNumber, Number: f, Text: trimmed}
	}

	switch strings.ToLower(trimmed) {
	case "true", "false":
		return Value{Kind: KindBool, Bool: strings.EqualFold(trimmed, "true"), Text: trimmed}
	}

	return TextValue(trimmed)
}

// IsEmpty reports whether the cell holds no value.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// String renders the cell the way it appears in document content and in
// distinct-value counting: the trimmed source text when the cell was
// parsed from an export, otherwise the shortest round-trip form.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		if v.Text != "" {
			return v.Text
		}

		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindBool:
		if v.Text != "" {
			return v.Text
		}

		return strconv.FormatBool(v.Bool)
	case KindEmpty:
		return ""
	default:
		return ""
	}
}
