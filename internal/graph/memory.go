// File: internal/graph/memory.go
package graph

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"
)

type vertex struct {
	id    string
	label string
	props map[string]any
	seq   int
}

type edge struct {
	outV  string
	inV   string
	label string
}

// Memory is a process local property graph that evaluates traversals
// directly. It backs the memory:// endpoint and the Postgres snapshot.
type Memory struct {
	vertices map[string]*vertex
	order    []string
	outEdges map[string][]edge
	inEdges  map[string][]edge
	seq      int
	mu       sync.RWMutex
	log      *zap.Logger
}

var (
	_ Handle  = (*Memory)(nil)
	_ Seeder  = (*Memory)(nil)
	_ Remover = (*Memory)(nil)
)

// NewMemory creates an empty in-memory graph.
func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		vertices: make(map[string]*vertex),
		outEdges: make(map[string][]edge),
		inEdges:  make(map[string][]edge),
		log:      logger.Named("memory_graph"),
	}
}

// View returns the graph itself; evaluation always skips deleted vertices.
func (m *Memory) View() View { return m }

// Close is a no-op; the graph outlives its handles.
func (m *Memory) Close() error { return nil }

// DropAll removes every vertex and edge.
func (m *Memory) DropAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vertices = make(map[string]*vertex)
	m.order = nil
	m.outEdges = make(map[string][]edge)
	m.inEdges = make(map[string][]edge)
	m.log.Debug("Graph dropped")
	return nil
}

// AddVertex inserts a vertex, defaulting `deleted` to 0 and `updated` to now.
// An existing vertex with the same id is replaced in place.
func (m *Memory) AddVertex(ctx context.Context, label, id string, props map[string]any) error {
	return m.addVertex(label, id, seedDefaults(props))
}

// addVertex stores props as given. Snapshots use it to keep the stored
// soft-delete markers untouched.
func (m *Memory) addVertex(label, id string, props map[string]any) error {
	if label == "" || id == "" {
		return fmt.Errorf("vertex requires a label and an id (label=%q id=%q)", label, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.vertices[id]; ok {
		existing.label = label
		existing.props = props
		return nil
	}
	m.seq++
	m.vertices[id] = &vertex{id: id, label: label, props: props, seq: m.seq}
	m.order = append(m.order, id)
	m.log.Debug("Vertex added", zap.String("id", id), zap.String("label", label))
	return nil
}

// AddEdge links two existing vertices.
func (m *Memory) AddEdge(ctx context.Context, outID, inID, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vertices[outID]; !ok {
		return fmt.Errorf("source vertex '%s' not found for edge", outID)
	}
	if _, ok := m.vertices[inID]; !ok {
		return fmt.Errorf("destination vertex '%s' not found for edge", inID)
	}
	e := edge{outV: outID, inV: inID, label: label}
	m.outEdges[outID] = append(m.outEdges[outID], e)
	m.inEdges[inID] = append(m.inEdges[inID], e)
	return nil
}

// RemoveVertex deletes a vertex and its incident edges.
func (m *Memory) RemoveVertex(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vertices[id]; !ok {
		return fmt.Errorf("%w: %s", ErrVertexNotFound, id)
	}
	delete(m.vertices, id)
	for i, vid := range m.order {
		if vid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	for _, e := range m.outEdges[id] {
		m.inEdges[e.inV] = dropEdgesTo(m.inEdges[e.inV], func(x edge) bool { return x.outV == id })
	}
	for _, e := range m.inEdges[id] {
		m.outEdges[e.outV] = dropEdgesTo(m.outEdges[e.outV], func(x edge) bool { return x.inV == id })
	}
	delete(m.outEdges, id)
	delete(m.inEdges, id)
	m.log.Debug("Vertex removed", zap.String("id", id))
	return nil
}

func dropEdgesTo(edges []edge, match func(edge) bool) []edge {
	kept := edges[:0]
	for _, e := range edges {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// Len returns the number of stored vertices, deleted ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vertices)
}

func (m *Memory) element(v *vertex) Element {
	return Element{ID: v.id, Label: v.label, Properties: maps.Clone(v.props)}
}

// live reports whether the vertex is part of the filtered view.
func live(v *vertex) bool {
	d, ok := v.props["deleted"]
	if !ok {
		return false
	}
	return equal(d, int64(0))
}

// shared memory graphs addressed by memory://<name>.
var (
	sharedMu sync.Mutex
	shared   = map[string]*Memory{}
)

// Shared returns the process wide memory graph registered under name,
// creating it on first use.
func Shared(name string, logger *zap.Logger) *Memory {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if m, ok := shared[name]; ok {
		return m
	}
	m := NewMemory(logger)
	shared[name] = m
	return m
}
