// Package value defines the backend-neutral value model shared by every
// database adapter. A Value carries exactly one variant; adapters convert
// driver-native types into Values on the way out and back on the way in, so
// the engine and its consumers never see driver-specific types.
package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the variant held by a Value.
type Kind string

const (
	KindNull      Kind = "null"
	KindBool      Kind = "bool"
	KindInt64     Kind = "int64"
	KindFloat64   Kind = "float64"
	KindDecimal   Kind = "decimal"
	KindText      Kind = "text"
	KindBytes     Kind = "bytes"
	KindUUID      Kind = "uuid"
	KindDate      Kind = "date"
	KindTime      Kind = "time"
	KindTimestamp Kind = "timestamp"
	KindJSON      Kind = "json"
	KindArray     Kind = "array"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05.999999999"
)

// Value is a tagged union over the kinds above. The zero Value is Null.
// Values are immutable; all constructors copy reference payloads.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string // Decimal, Text
	raw  []byte // Bytes, JSON
	t    time.Time
	u    uuid.UUID
	arr  []Value
}

// Null is the null Value.
var Null = Value{kind: KindNull}

func NewBool(v bool) Value       { return Value{kind: KindBool, b: v} }
func NewInt64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func NewFloat64(v float64) Value { return Value{kind: KindFloat64, f: v} }

// NewDecimal holds an arbitrary-precision decimal as its canonical string
// form. The string is not validated here; adapters produce well-formed
// decimals and user input is validated at the binding layer.
func NewDecimal(v string) Value { return Value{kind: KindDecimal, s: v} }

func NewText(v string) Value { return Value{kind: KindText, s: v} }

func NewBytes(v []byte) Value {
	return Value{kind: KindBytes, raw: bytes.Clone(v)}
}

func NewUUID(v uuid.UUID) Value { return Value{kind: KindUUID, u: v} }

// NewDate keeps only the calendar date of v.
func NewDate(v time.Time) Value {
	y, m, d := v.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewTime keeps only the clock time of v.
func NewTime(v time.Time) Value {
	h, min, s := v.Clock()
	return Value{kind: KindTime, t: time.Date(0, 1, 1, h, min, s, v.Nanosecond(), time.UTC)}
}

// NewTimestamp normalizes v to UTC.
func NewTimestamp(v time.Time) Value {
	return Value{kind: KindTimestamp, t: v.UTC()}
}

// NewJSON holds a raw JSON document. Invalid JSON is stored as-is; use
// json.Valid upstream when validity matters.
func NewJSON(raw []byte) Value {
	return Value{kind: KindJSON, raw: bytes.Clone(raw)}
}

func NewArray(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

// Accessors return the variant payload and whether the value holds that
// variant. Mismatched access returns the zero payload and false, never a
// coerced value.

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int64() (int64, bool)     { return v.i, v.kind == KindInt64 }
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat64 }
func (v Value) Decimal() (string, bool)  { return v.s, v.kind == KindDecimal }
func (v Value) Text() (string, bool)     { return v.s, v.kind == KindText }
func (v Value) UUID() (uuid.UUID, bool)  { return v.u, v.kind == KindUUID }

func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return bytes.Clone(v.raw), true
}

func (v Value) Date() (time.Time, bool)      { return v.t, v.kind == KindDate }
func (v Value) Time() (time.Time, bool)      { return v.t, v.kind == KindTime }
func (v Value) Timestamp() (time.Time, bool) { return v.t, v.kind == KindTimestamp }

func (v Value) JSON() ([]byte, bool) {
	if v.kind != KindJSON {
		return nil, false
	}
	return bytes.Clone(v.raw), true
}

func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp, true
}

// Equal reports deep equality. Values of different kinds are never equal;
// there is no cross-variant coercion.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt64:
		return v.i == other.i
	case KindFloat64:
		return v.f == other.f
	case KindDecimal, KindText:
		return v.s == other.s
	case KindBytes, KindJSON:
		return bytes.Equal(v.raw, other.raw)
	case KindUUID:
		return v.u == other.u
	case KindDate, KindTime, KindTimestamp:
		return v.t.Equal(other.t)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for display. Bytes render as a length marker, not
// decoded text.
func (v Value) String() string {
	switch v.Kind() {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal, KindText:
		return v.s
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.raw))
	case KindUUID:
		return v.u.String()
	case KindDate:
		return v.t.Format(dateLayout)
	case KindTime:
		return v.t.Format(timeLayout)
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case KindJSON:
		return string(v.raw)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(item.String())
		}
		buf.WriteByte(']')
		return buf.String()
	}
	return ""
}

type valueJSON struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes the value as {"kind":..., "value":...}. Bytes encode
// as base64 so binary payloads survive history persistence without being
// coerced to text.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.Kind() {
	case KindNull:
		return json.Marshal(valueJSON{Kind: KindNull})
	case KindBool:
		payload = v.b
	case KindInt64:
		payload = v.i
	case KindFloat64:
		payload = v.f
	case KindDecimal, KindText:
		payload = v.s
	case KindBytes:
		payload = base64.StdEncoding.EncodeToString(v.raw)
	case KindUUID:
		payload = v.u.String()
	case KindDate:
		payload = v.t.Format(dateLayout)
	case KindTime:
		payload = v.t.Format(timeLayout)
	case KindTimestamp:
		payload = v.t.Format(time.RFC3339Nano)
	case KindJSON:
		payload = json.RawMessage(v.raw)
	case KindArray:
		payload = v.arr
	default:
		return nil, fmt.Errorf("value: cannot marshal kind %q", v.kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Kind: v.Kind(), Value: raw})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var wire valueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case KindNull, "":
		*v = Null
		return nil
	case KindBool:
		var b bool
		if err := json.Unmarshal(wire.Value, &b); err != nil {
			return err
		}
		*v = NewBool(b)
	case KindInt64:
		var i int64
		if err := json.Unmarshal(wire.Value, &i); err != nil {
			return err
		}
		*v = NewInt64(i)
	case KindFloat64:
		var f float64
		if err := json.Unmarshal(wire.Value, &f); err != nil {
			return err
		}
		*v = NewFloat64(f)
	case KindDecimal, KindText:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		if wire.Kind == KindDecimal {
			*v = NewDecimal(s)
		} else {
			*v = NewText(s)
		}
	case KindBytes:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("value: invalid base64 bytes payload: %w", err)
		}
		*v = Value{kind: KindBytes, raw: raw}
	case KindUUID:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("value: invalid uuid payload: %w", err)
		}
		*v = NewUUID(id)
	case KindDate:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		t, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return fmt.Errorf("value: invalid date payload: %w", err)
		}
		*v = Value{kind: KindDate, t: t}
	case KindTime:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		t, err := time.ParseInLocation(timeLayout, s, time.UTC)
		if err != nil {
			return fmt.Errorf("value: invalid time payload: %w", err)
		}
		*v = Value{kind: KindTime, t: t}
	case KindTimestamp:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("value: invalid timestamp payload: %w", err)
		}
		*v = NewTimestamp(t)
	case KindJSON:
		*v = NewJSON(wire.Value)
	case KindArray:
		var items []Value
		if err := json.Unmarshal(wire.Value, &items); err != nil {
			return err
		}
		*v = Value{kind: KindArray, arr: items}
	default:
		return fmt.Errorf("value: unknown kind %q", wire.Kind)
	}
	return nil
}
