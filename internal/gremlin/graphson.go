// File: internal/gremlin/graphson.go
package gremlin

import (
	"encoding/json"
	"fmt"
)

// Unwrap strips GraphSON v2/v3 type wrappers ({"@type": ..., "@value": ...})
// from a decoded JSON value, leaving plain Go values. GraphSON v1 payloads pass
// through untouched.
func Unwrap(v any) any {
	switch val := v.(type) {
	case []any:
		for i := range val {
			val[i] = Unwrap(val[i])
		}
		return val
	case map[string]any:
		typ, hasType := val["@type"].(string)
		inner, hasValue := val["@value"]
		if !hasType || !hasValue {
			for k, item := range val {
				val[k] = Unwrap(item)
			}
			return val
		}
		return unwrapTyped(typ, inner)
	case json.Number:
		return number(val)
	default:
		return v
	}
}

func unwrapTyped(typ string, inner any) any {
	switch typ {
	case "g:List", "g:Set":
		return Unwrap(inner)
	case "g:Map":
		// g:Map serializes as a flat [k1, v1, k2, v2, ...] list.
		pairs, ok := inner.([]any)
		if !ok {
			return Unwrap(inner)
		}
		out := make(map[string]any, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			out[fmt.Sprint(Unwrap(pairs[i]))] = Unwrap(pairs[i+1])
		}
		return out
	case "g:Vertex", "g:Edge":
		return Unwrap(inner)
	case "g:VertexProperty", "g:Property":
		if m, ok := inner.(map[string]any); ok {
			return Unwrap(m["value"])
		}
		return Unwrap(inner)
	default:
		// g:UUID, g:Int32, g:Int64, g:Double, g:Date, ...
		return Unwrap(inner)
	}
}

// number keeps integers integral so ids and timestamps print without exponents.
func number(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
