package content

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	NullValue ValueKind = iota
	StringValue
	NumberValue
	BoolValue
	ListValue
	MapValue
)

func (k ValueKind) String() string {
	switch k {
	case StringValue:
		return "string"
	case NumberValue:
		return "number"
	case BoolValue:
		return "bool"
	case ListValue:
		return "list"
	case MapValue:
		return "map"
	default:
		return "null"
	}
}

// Value is a metadata or data value: null, string, number, bool, list or map.
// The zero Value is null. Values are immutable once built.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// String builds a string value.
func String(s string) Value { return Value{kind: StringValue, str: s} }

// Number builds a numeric value.
func Number(n float64) Value { return Value{kind: NumberValue, num: n} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: BoolValue, b: b} }

// List builds a list value.
func List(items ...Value) Value { return Value{kind: ListValue, list: slices.Clone(items)} }

// Map builds a map value.
func Map(m map[string]Value) Value { return Value{kind: MapValue, m: maps.Clone(m)} }

// FromAny converts values decoded into interface{} by yaml.v3, such as the
// site parameters in the configuration. Other types are stringified.
func FromAny(v any) Value {
	switch vv := v.(type) {
	case nil:
		return Value{}
	case Value:
		return vv
	case string:
		return String(vv)
	case bool:
		return Bool(vv)
	case int:
		return Number(float64(vv))
	case uint64:
		return Number(float64(vv))
	case float64:
		return Number(vv)
	case []any:
		items := make([]Value, len(vv))
		for i, item := range vv {
			items[i] = FromAny(item)
		}
		return Value{kind: ListValue, list: items}
	case map[string]any:
		m := make(map[string]Value, len(vv))
		for k, item := range vv {
			m[k] = FromAny(item)
		}
		return Value{kind: MapValue, m: m}
	default:
		return String(fmt.Sprint(vv))
	}
}

// Kind returns the variant of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == NullValue }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == StringValue }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == NumberValue }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == BoolValue }

// List returns the list payload. The slice must not be modified.
func (v Value) List() ([]Value, bool) { return v.list, v.kind == ListValue }

// Map returns the map payload. The map must not be modified.
func (v Value) Map() (map[string]Value, bool) { return v.m, v.kind == MapValue }

// Get looks up a key in a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != MapValue {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Text renders scalars as text; lists and maps render as their Interface form.
func (v Value) Text() string {
	switch v.kind {
	case NullValue:
		return ""
	case StringValue:
		return v.str
	case NumberValue:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case BoolValue:
		return strconv.FormatBool(v.b)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Strings flattens a list (or a comma separated string) into trimmed strings.
func (v Value) Strings() []string {
	switch v.kind {
	case StringValue:
		var out []string
		for part := range strings.SplitSeq(v.str, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case ListValue:
		out := make([]string, 0, len(v.list))
		for _, item := range v.list {
			if s := strings.TrimSpace(item.Text()); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Interface converts v back to native Go values: nil, string, int (integral
// numbers), float64, bool, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case StringValue:
		return v.str
	case NumberValue:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
			return int(v.num)
		}
		return v.num
	case BoolValue:
		return v.b
	case ListValue:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case MapValue:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case NullValue:
		return true
	case StringValue:
		return v.str == other.str
	case NumberValue:
		return v.num == other.num
	case BoolValue:
		return v.b == other.b
	case ListValue:
		return slices.EqualFunc(v.list, other.list, Value.Equal)
	default:
		return maps.EqualFunc(v.m, other.m, Value.Equal)
	}
}
