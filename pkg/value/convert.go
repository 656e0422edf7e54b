package value

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FromAny converts a driver-native Go value into a Value. It covers the
// types database/sql, pgx and the document drivers hand back from scans.
// Unrecognized types fall back to their fmt rendering as Text so a row is
// never lost to an exotic column type.
func FromAny(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case Value:
		return x
	case bool:
		return NewBool(x)
	case int:
		return NewInt64(int64(x))
	case int8:
		return NewInt64(int64(x))
	case int16:
		return NewInt64(int64(x))
	case int32:
		return NewInt64(int64(x))
	case int64:
		return NewInt64(x)
	case uint:
		return NewInt64(int64(x))
	case uint8:
		return NewInt64(int64(x))
	case uint16:
		return NewInt64(int64(x))
	case uint32:
		return NewInt64(int64(x))
	case uint64:
		return NewInt64(int64(x))
	case float32:
		return NewFloat64(float64(x))
	case float64:
		return NewFloat64(x)
	case string:
		return NewText(x)
	case []byte:
		return NewBytes(x)
	case time.Time:
		return NewTimestamp(x)
	case uuid.UUID:
		return NewUUID(x)
	case [16]byte:
		return NewUUID(uuid.UUID(x))
	case json.RawMessage:
		return NewJSON(x)
	case []interface{}:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromAny(item)
		}
		return NewArray(items)
	case []string:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = NewText(item)
		}
		return NewArray(items)
	case map[string]interface{}:
		raw, err := json.Marshal(x)
		if err != nil {
			return NewText(fmt.Sprintf("%v", x))
		}
		return NewJSON(raw)
	default:
		return NewText(fmt.Sprintf("%v", x))
	}
}

// ToAny converts a Value back into the Go type drivers accept as a bind
// parameter.
func ToAny(v Value) interface{} {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		b, _ := v.Bool()
		return b
	case KindInt64:
		i, _ := v.Int64()
		return i
	case KindFloat64:
		f, _ := v.Float64()
		return f
	case KindDecimal:
		s, _ := v.Decimal()
		return s
	case KindText:
		s, _ := v.Text()
		return s
	case KindBytes:
		b, _ := v.Bytes()
		return b
	case KindUUID:
		u, _ := v.UUID()
		return u.String()
	case KindDate:
		t, _ := v.Date()
		return t
	case KindTime:
		t, _ := v.Time()
		return t
	case KindTimestamp:
		t, _ := v.Timestamp()
		return t
	case KindJSON:
		raw, _ := v.JSON()
		return raw
	case KindArray:
		items, _ := v.Array()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = ToAny(item)
		}
		return out
	}
	return nil
}

// ManyToAny converts a parameter slice for driver binding.
func ManyToAny(values []Value) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = ToAny(v)
	}
	return out
}
