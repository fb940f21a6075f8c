// File: internal/graph/eval.go
package graph

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
)

// traverser is either a vertex or a projected value.
type traverser struct {
	v   *vertex
	val any
}

// Elements evaluates t against the live vertices.
func (m *Memory) Elements(ctx context.Context, t *gremlin.Traversal) ([]Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, err := m.eval(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(out))
	for _, tr := range out {
		if tr.v == nil {
			return nil, fmt.Errorf("traversal %s yields values, not vertices", t)
		}
		elements = append(elements, m.element(tr.v))
	}
	return elements, nil
}

// Values evaluates t and returns ids for vertex results and the raw value
// otherwise.
func (m *Memory) Values(ctx context.Context, t *gremlin.Traversal) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, err := m.eval(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(out))
	for _, tr := range out {
		if tr.v != nil {
			values = append(values, tr.v.id)
			continue
		}
		values = append(values, tr.val)
	}
	return values, nil
}

// eval runs the pipeline. Anonymous traversals start from the given
// traversers; rooted ones ignore them. Callers hold the read lock.
func (m *Memory) eval(ctx context.Context, t *gremlin.Traversal, start []traverser) ([]traverser, error) {
	current := start
	for _, s := range t.Steps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		current, err = m.step(ctx, s, current)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (m *Memory) step(ctx context.Context, s gremlin.Step, in []traverser) ([]traverser, error) {
	switch s.Op {
	case gremlin.OpV:
		return m.start(s.Args), nil
	case gremlin.OpHasLabel:
		return filter(in, func(tr traverser) bool {
			return tr.v != nil && containsString(s.Args, tr.v.label)
		}), nil
	case gremlin.OpHas:
		return filter(in, func(tr traverser) bool {
			if tr.v == nil {
				return false
			}
			val, ok := tr.v.props[s.Key]
			if !ok {
				return false
			}
			return s.Pred == nil || test(*s.Pred, val)
		}), nil
	case gremlin.OpHasNot:
		return filter(in, func(tr traverser) bool {
			if tr.v == nil {
				return false
			}
			_, ok := tr.v.props[s.Key]
			return !ok
		}), nil
	case gremlin.OpOut:
		return m.walk(in, s.Args, m.outEdges, func(e edge) string { return e.inV }), nil
	case gremlin.OpIn:
		return m.walk(in, s.Args, m.inEdges, func(e edge) string { return e.outV }), nil
	case gremlin.OpNot, gremlin.OpWhere:
		keep := s.Op == gremlin.OpWhere
		var out []traverser
		for _, tr := range in {
			res, err := m.eval(ctx, s.Sub, []traverser{tr})
			if err != nil {
				return nil, err
			}
			if (len(res) > 0) == keep {
				out = append(out, tr)
			}
		}
		return out, nil
	case gremlin.OpDedup:
		seen := make(map[string]struct{}, len(in))
		var out []traverser
		for _, tr := range in {
			key := dedupKey(tr)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tr)
		}
		return out, nil
	case gremlin.OpValues:
		var out []traverser
		for _, tr := range in {
			if tr.v == nil {
				continue
			}
			if val, ok := tr.v.props[s.Key]; ok {
				out = append(out, traverser{val: val})
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported traversal step %q", s.Op)
	}
}

func (m *Memory) start(ids []any) []traverser {
	var out []traverser
	if len(ids) == 0 {
		for _, id := range m.order {
			if v := m.vertices[id]; live(v) {
				out = append(out, traverser{v: v})
			}
		}
		return out
	}
	for _, id := range ids {
		if v, ok := m.vertices[fmt.Sprint(id)]; ok && live(v) {
			out = append(out, traverser{v: v})
		}
	}
	return out
}

func (m *Memory) walk(in []traverser, labels []any, index map[string][]edge, far func(edge) string) []traverser {
	var out []traverser
	for _, tr := range in {
		if tr.v == nil {
			continue
		}
		for _, e := range index[tr.v.id] {
			if len(labels) > 0 && !containsString(labels, e.label) {
				continue
			}
			if v, ok := m.vertices[far(e)]; ok && live(v) {
				out = append(out, traverser{v: v})
			}
		}
	}
	return out
}

func filter(in []traverser, keep func(traverser) bool) []traverser {
	var out []traverser
	for _, tr := range in {
		if keep(tr) {
			out = append(out, tr)
		}
	}
	return out
}

func dedupKey(tr traverser) string {
	if tr.v != nil {
		return "v:" + tr.v.id
	}
	return fmt.Sprintf("x:%v", tr.val)
}

func containsString(set []any, s string) bool {
	for _, item := range set {
		if fmt.Sprint(item) == s {
			return true
		}
	}
	return false
}

func test(p gremlin.Predicate, val any) bool {
	switch p.Name {
	case "eq":
		return equal(val, p.Values[0])
	case "within":
		for _, candidate := range p.Values {
			if equal(val, candidate) {
				return true
			}
		}
		return false
	case "lt":
		c, ok := compare(val, p.Values[0])
		return ok && c < 0
	case "gt":
		c, ok := compare(val, p.Values[0])
		return ok && c > 0
	default:
		return false
	}
}

// equal compares property values the way gremlin does for the types Contrail
// stores: numbers by value, lists element by element.
func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if la, ok := toList(a); ok {
		lb, ok := toList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
