// File: internal/gremlin/traversal.go
package gremlin

import (
	"fmt"
	"slices"
	"strings"
)

// Op names a traversal step. The values are the gremlin step names.
type Op string

const (
	OpV        Op = "V"
	OpHasLabel Op = "hasLabel"
	OpHas      Op = "has"
	OpHasNot   Op = "hasNot"
	OpIn       Op = "in"
	OpOut      Op = "out"
	OpNot      Op = "not"
	OpWhere    Op = "where"
	OpDedup    Op = "dedup"
	OpValues   Op = "values"
)

// Predicate is a comparison used by Has (P.lt, P.gt, P.within, ...).
type Predicate struct {
	Name   string
	Values []any
}

// Eq matches property values equal to v.
func Eq(v any) Predicate { return Predicate{Name: "eq", Values: []any{v}} }

// Lt matches property values strictly lower than v.
func Lt(v any) Predicate { return Predicate{Name: "lt", Values: []any{v}} }

// Gt matches property values strictly greater than v.
func Gt(v any) Predicate { return Predicate{Name: "gt", Values: []any{v}} }

// Within matches property values equal to any of vs.
func Within(vs ...any) Predicate { return Predicate{Name: "within", Values: vs} }

// Step is one element of a traversal pipeline.
type Step struct {
	Op   Op
	Key  string
	Args []any
	Pred *Predicate
	Sub  *Traversal
}

// Traversal is an immutable gremlin traversal. Every builder method returns a
// new traversal so partially built traversals can be shared between rules.
type Traversal struct {
	anonymous bool
	steps     []Step
}

// V starts a traversal at the graph vertices, optionally restricted to ids.
func V(ids ...any) *Traversal {
	return &Traversal{steps: []Step{{Op: OpV, Args: ids}}}
}

// Anon starts an anonymous child traversal (the `__` of gremlin).
func Anon() *Traversal {
	return &Traversal{anonymous: true}
}

// Steps returns a copy of the pipeline.
func (t *Traversal) Steps() []Step {
	return slices.Clone(t.steps)
}

// Anonymous reports whether this is a child traversal.
func (t *Traversal) Anonymous() bool {
	return t.anonymous
}

func (t *Traversal) add(s Step) *Traversal {
	steps := make([]Step, len(t.steps), len(t.steps)+1)
	copy(steps, t.steps)
	return &Traversal{anonymous: t.anonymous, steps: append(steps, s)}
}

// HasLabel keeps vertices whose label is one of labels.
func (t *Traversal) HasLabel(labels ...string) *Traversal {
	return t.add(Step{Op: OpHasLabel, Args: toAny(labels)})
}

// Has keeps vertices carrying the property key.
func (t *Traversal) Has(key string) *Traversal {
	return t.add(Step{Op: OpHas, Key: key})
}

// HasValue keeps vertices whose property key equals value.
func (t *Traversal) HasValue(key string, value any) *Traversal {
	p := Eq(value)
	return t.add(Step{Op: OpHas, Key: key, Pred: &p})
}

// HasP keeps vertices whose property key satisfies p.
func (t *Traversal) HasP(key string, p Predicate) *Traversal {
	return t.add(Step{Op: OpHas, Key: key, Pred: &p})
}

// HasNot keeps vertices lacking the property key.
func (t *Traversal) HasNot(key string) *Traversal {
	return t.add(Step{Op: OpHasNot, Key: key})
}

// In walks incoming edges, optionally filtered by edge label.
func (t *Traversal) In(edgeLabels ...string) *Traversal {
	return t.add(Step{Op: OpIn, Args: toAny(edgeLabels)})
}

// Out walks outgoing edges, optionally filtered by edge label.
func (t *Traversal) Out(edgeLabels ...string) *Traversal {
	return t.add(Step{Op: OpOut, Args: toAny(edgeLabels)})
}

// Not keeps vertices for which sub yields nothing.
func (t *Traversal) Not(sub *Traversal) *Traversal {
	return t.add(Step{Op: OpNot, Sub: sub})
}

// Where keeps vertices for which sub yields at least one result.
func (t *Traversal) Where(sub *Traversal) *Traversal {
	return t.add(Step{Op: OpWhere, Sub: sub})
}

// Dedup removes repeated vertices, keeping the first occurrence.
func (t *Traversal) Dedup() *Traversal {
	return t.add(Step{Op: OpDedup})
}

// Values projects the traversed vertices onto a property value.
func (t *Traversal) Values(key string) *Traversal {
	return t.add(Step{Op: OpValues, Key: key})
}

// Script is a rendered gremlin-groovy script and its parameter bindings.
type Script struct {
	Text     string
	Bindings map[string]any
}

// Render turns the traversal into a gremlin-groovy script rooted at source
// (e.g. "g"). All user supplied values go through bindings.
func (t *Traversal) Render(source string) Script {
	r := &renderer{bindings: make(map[string]any)}
	r.traversal(t, source)
	return Script{Text: r.b.String(), Bindings: r.bindings}
}

func (t *Traversal) String() string {
	return t.Render("g").Text
}

type renderer struct {
	b        strings.Builder
	bindings map[string]any
	n        int
}

func (r *renderer) bind(v any) string {
	name := fmt.Sprintf("_b%d", r.n)
	r.n++
	r.bindings[name] = v
	return name
}

func (r *renderer) bindAll(vs []any) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = r.bind(v)
	}
	return strings.Join(names, ", ")
}

func (r *renderer) traversal(t *Traversal, source string) {
	if t.anonymous {
		r.b.WriteString("__")
	} else {
		r.b.WriteString(source)
	}
	for _, s := range t.steps {
		r.b.WriteString(".")
		r.step(s, source)
	}
}

func (r *renderer) step(s Step, source string) {
	switch s.Op {
	case OpV, OpHasLabel, OpIn, OpOut:
		fmt.Fprintf(&r.b, "%s(%s)", s.Op, r.bindAll(s.Args))
	case OpHas:
		key := r.bind(s.Key)
		switch {
		case s.Pred == nil:
			fmt.Fprintf(&r.b, "has(%s)", key)
		case s.Pred.Name == "eq":
			fmt.Fprintf(&r.b, "has(%s, %s)", key, r.bind(s.Pred.Values[0]))
		case s.Pred.Name == "within":
			fmt.Fprintf(&r.b, "has(%s, within(%s))", key, r.bind(s.Pred.Values))
		default:
			fmt.Fprintf(&r.b, "has(%s, %s(%s))", key, s.Pred.Name, r.bind(s.Pred.Values[0]))
		}
	case OpHasNot, OpValues:
		fmt.Fprintf(&r.b, "%s(%s)", s.Op, r.bind(s.Key))
	case OpNot, OpWhere:
		fmt.Fprintf(&r.b, "%s(", s.Op)
		r.traversal(s.Sub, source)
		r.b.WriteString(")")
	case OpDedup:
		r.b.WriteString("dedup()")
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
