package value

import (
	"fmt"
	"math"
	"time"
)

// numberLiteral matches json.Number from either JSON package without naming it.
type numberLiteral interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// Infer classifies a decoded primitive into a Value. Native booleans are
// never reclassified as integers and integers are never widened to floats.
// Strings stay Text; re-reading strings as literals is a codec decision.
func Infer(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case numberLiteral:
		return numberValue(x.String())
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = Infer(item)
		}
		return Value{kind: KindList, list: items}
	case []Value:
		return List(x...)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[k] = Infer(e)
		}
		return Value{kind: KindMap, m: m}
	case map[any]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = Infer(e)
		}
		return Value{kind: KindMap, m: m}
	case map[string]Value:
		return Map(x)
	default:
		return Text(fmt.Sprint(x))
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// ToNative converts v to plain Go values: nil, bool, int64, float64, string,
// []any and map[string]any.
func ToNative(v Value) any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = ToNative(item)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = ToNative(e)
		}
		return out
	default:
		return nil
	}
}

// ElementKinds returns the distinct kinds of a list's elements in lexicographic order.
func ElementKinds(v Value) []Kind {
	if v.kind != KindList {
		return nil
	}
	seen := make(map[Kind]struct{})
	for _, item := range v.list {
		seen[item.kind] = struct{}{}
	}
	kinds := make([]Kind, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	SortKinds(kinds)
	return kinds
}
