// File: internal/graph/server.go
package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"go.uber.org/zap"
)

// LiveSource is the traversal source rules run against: the graph restricted
// to vertices that are not soft-deleted.
const LiveSource = "g.withStrategies(SubgraphStrategy.build().vertices(__.has('deleted', 0)).create())"

// elementProjection turns each traversed vertex into a {label, id, properties} map.
const elementProjection = ".project('label', 'id', 'properties').by(label()).by(id()).by(valueMap())"

// submitter is the part of the gremlin client the server handle needs.
type submitter interface {
	Submit(ctx context.Context, gremlin string, bindings map[string]any) ([]any, error)
	Close() error
}

// Server is a handle on a remote Gremlin server.
type Server struct {
	client submitter
	log    *zap.Logger
}

var (
	_ Handle  = (*Server)(nil)
	_ Seeder  = (*Server)(nil)
	_ Remover = (*Server)(nil)
)

// NewServer wraps an established gremlin client.
func NewServer(client submitter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, log: logger.Named("gremlin_graph")}
}

// View returns the live view.
func (s *Server) View() View { return serverView{s} }

// Close closes the connection.
func (s *Server) Close() error { return s.client.Close() }

type serverView struct{ s *Server }

func (v serverView) Elements(ctx context.Context, t *gremlin.Traversal) ([]Element, error) {
	script := t.Render(LiveSource)
	items, err := v.s.client.Submit(ctx, script.Text+elementProjection, script.Bindings)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(items))
	for _, item := range items {
		e, err := decodeElement(item)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	return elements, nil
}

func (v serverView) Values(ctx context.Context, t *gremlin.Traversal) ([]any, error) {
	script := t.Render(LiveSource)
	return v.s.client.Submit(ctx, script.Text, script.Bindings)
}

func decodeElement(item any) (Element, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Element{}, fmt.Errorf("unexpected element shape %T", item)
	}
	e := Element{
		Label: stringValue(m["label"]),
		ID:    stringValue(m["id"]),
	}
	if props, ok := m["properties"].(map[string]any); ok {
		e.Properties = make(map[string]any, len(props))
		for k, val := range props {
			e.Properties[k] = flattenProperty(val)
		}
	}
	return e, nil
}

// flattenProperty unwraps valueMap's per-key lists. A single-cardinality
// property comes back as a one item list.
func flattenProperty(v any) any {
	if l, ok := v.([]any); ok && len(l) == 1 {
		return l[0]
	}
	return v
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprint(s)
	}
}

// DropAll removes every vertex, deleted ones included.
func (s *Server) DropAll(ctx context.Context) error {
	_, err := s.client.Submit(ctx, "g.V().drop().iterate()", nil)
	return err
}

// AddVertex creates a vertex with the given id and properties. Property
// order is sorted so scripts are stable.
func (s *Server) AddVertex(ctx context.Context, label, id string, props map[string]any) error {
	props = seedDefaults(props)
	bindings := map[string]any{"_label": label, "_id": id}
	var b strings.Builder
	b.WriteString("g.addV(_label).property(T.id, _id)")
	for i, key := range slices.Sorted(maps.Keys(props)) {
		k, val := fmt.Sprintf("_k%d", i), fmt.Sprintf("_v%d", i)
		bindings[k] = key
		bindings[val] = props[key]
		fmt.Fprintf(&b, ".property(%s, %s)", k, val)
	}
	b.WriteString(".iterate()")
	_, err := s.client.Submit(ctx, b.String(), bindings)
	return err
}

// AddEdge links outID to inID.
func (s *Server) AddEdge(ctx context.Context, outID, inID, label string) error {
	_, err := s.client.Submit(ctx, "g.V(_out).addE(_label).to(__.V(_in)).iterate()", map[string]any{
		"_out":   outID,
		"_in":    inID,
		"_label": label,
	})
	return err
}

// RemoveVertex drops the vertex and its edges.
func (s *Server) RemoveVertex(ctx context.Context, id string) error {
	res, err := s.client.Submit(ctx, "g.V(_id).sideEffect(drop()).count()", map[string]any{"_id": id})
	if err != nil {
		return err
	}
	if len(res) == 1 {
		if n, ok := res[0].(int64); ok && n == 0 {
			return fmt.Errorf("%w: %s", ErrVertexNotFound, id)
		}
	}
	s.log.Debug("Vertex dropped", zap.String("id", id))
	return nil
}
