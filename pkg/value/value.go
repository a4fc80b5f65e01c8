// Package value defines the raw cell values exchanged between result
// snapshots, the pending overlay and the database adapters.
//
// A Raw is a closed sum type: Null, Bool, Number, Text or JSON. Numbers keep
// track of whether they are integral so that primary keys round-trip to the
// backend with their original type.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the variant held by a Raw.
type Kind int

const (
	// KindNull is the SQL NULL value. It is the zero Kind.
	KindNull Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindNumber is an integer or floating point number.
	KindNumber
	// KindText is a string.
	KindText
	// KindJSON is a JSON document (objects, arrays).
	KindJSON
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Raw is a single cell value. The zero Raw is Null.
type Raw struct {
	kind  Kind
	b     bool
	isInt bool
	i     int64
	f     float64
	s     string // text, or compact JSON for KindJSON
}

// Null returns the NULL value.
func Null() Raw { return Raw{} }

// Bool returns a boolean value.
func Bool(b bool) Raw { return Raw{kind: KindBool, b: b} }

// Int returns an integral number.
func Int(i int64) Raw { return Raw{kind: KindNumber, isInt: true, i: i} }

// Float returns a floating point number. Integral floats stay floats so that
// the backend receives the type it produced.
func Float(f float64) Raw { return Raw{kind: KindNumber, f: f} }

// Text returns a string value.
func Text(s string) Raw { return Raw{kind: KindText, s: s} }

// JSON returns a JSON value. The document is compacted; invalid JSON is an
// error.
func JSON(doc []byte) (Raw, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return Raw{}, fmt.Errorf("invalid json value: %w", err)
	}
	return Raw{kind: KindJSON, s: buf.String()}, nil
}

// Kind returns the variant held by v.
func (v Raw) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Raw) IsNull() bool { return v.kind == KindNull }

// IsInt reports whether v is an integral number.
func (v Raw) IsInt() bool { return v.kind == KindNumber && v.isInt }

// AsBool returns the boolean payload.
func (v Raw) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload.
func (v Raw) AsInt() (int64, bool) { return v.i, v.IsInt() }

// AsFloat returns the numeric payload as a float.
func (v Raw) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if v.isInt {
		return float64(v.i), true
	}
	return v.f, true
}

// AsText returns the text payload.
func (v Raw) AsText() (string, bool) { return v.s, v.kind == KindText }

// String renders v the way a dynamic language stringifies it: "null" for
// NULL, "true"/"false", the shortest number form, text verbatim and compact
// JSON. Two values with equal String output are treated as the same edit.
func (v Raw) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		if v.isInt {
			return strconv.FormatInt(v.i, 10)
		}
		return formatFloat(v.f)
	default:
		return v.s
	}
}

// Key returns the serialization used to key pending entries by primary key.
func (v Raw) Key() string { return v.String() }

// Equal reports whether a and b hold the same variant and payload.
func (v Raw) Equal(o Raw) bool { return v == o }

// Any returns the value as a database/sql argument.
func (v Raw) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if v.isInt {
			return v.i
		}
		return v.f
	case KindText, KindJSON:
		return v.s
	default:
		return nil
	}
}

// FromAny converts a value scanned by database/sql (or decoded from JSON)
// into a Raw.
func FromAny(x any) Raw {
	switch t := x.(type) {
	case nil:
		return Null()
	case Raw:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return Text(strconv.FormatUint(t, 10))
		}
		return Int(int64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		if f, err := t.Float64(); err == nil {
			return Float(f)
		}
		return Text(t.String())
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case time.Time:
		return Text(t.Format(time.RFC3339Nano))
	case map[string]any, []any:
		doc, err := json.Marshal(t)
		if err != nil {
			return Text(fmt.Sprint(t))
		}
		return Raw{kind: KindJSON, s: string(doc)}
	case fmt.Stringer:
		return Text(t.String())
	default:
		return Text(fmt.Sprint(t))
	}
}

// MarshalJSON encodes v as its natural JSON form.
func (v Raw) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool, KindNumber:
		return []byte(v.String()), nil
	case KindJSON:
		return []byte(v.s), nil
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON decodes any JSON document into the matching variant.
func (v *Raw) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*v = FromAny(x)
	return nil
}

// MarshalYAML encodes v as a YAML scalar.
func (v Raw) MarshalYAML() (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindNumber:
		if v.isInt {
			return v.i, nil
		}
		return v.f, nil
	default:
		return v.s, nil
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
