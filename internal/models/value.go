package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the dynamic type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is a single table cell: a number, a string, a boolean or null.
// The zero Value is null. Values compare with == and equality is strict:
// Num(1) and Str("1") are different values.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

// Null is the null cell.
var Null = Value{}

// Num returns a number cell. NaN and infinities collapse to null so that
// equality stays reflexive.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Value{kind: KindNumber, num: f}
}

// Str returns a string cell.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether v is null or the empty string.
func (v Value) IsBlank() bool {
	return v.kind == KindNull || (v.kind == KindString && v.str == "")
}

// Float returns the numeric payload and whether v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Text returns the string payload and whether v is a string.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// Boolean returns the boolean payload and whether v is a boolean.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// String renders v for display. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// MarshalJSON encodes v as a native JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Objects and arrays are kept as their
// raw JSON text in a string cell.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("models: empty value")
	}
	switch trimmed[0] {
	case 'n':
		*v = Null
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Str(s)
	case '{', '[':
		*v = Str(string(trimmed))
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return fmt.Errorf("models: invalid number %s: %w", trimmed, err)
		}
		*v = Num(f)
	}
	return nil
}

// Row maps column names to cells. A column missing from the map is
// absent, which is not the same as a null cell.
type Row map[string]Value

// Get returns the cell at col, or Null when the column is absent.
func (r Row) Get(col string) Value {
	return r[col]
}

// Has reports whether col is present in the row.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
