// File: internal/graph/memory_test.go
package graph

import (
	"context"
	"testing"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTopology(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.AddVertex(ctx, "virtual_network", "vn1", map[string]any{"fq_name": []string{"d", "p", "vn1"}}))
	require.NoError(t, m.AddVertex(ctx, "routing_instance", "ri1", map[string]any{"fq_name": []string{"d", "p", "vn1", "vn1"}}))
	require.NoError(t, m.AddVertex(ctx, "route_target", "rt1", map[string]any{"display_name": "target:64512:1"}))
	require.NoError(t, m.AddVertex(ctx, "route_target", "rt2", nil))
	require.NoError(t, m.AddVertex(ctx, "route_target", "rt-deleted", map[string]any{"deleted": 1}))
	require.NoError(t, m.AddVertex(ctx, "instance_ip", "iip1", map[string]any{"instance_ip_address": "10.0.0.1", "updated": int64(100)}))
	require.NoError(t, m.AddEdge(ctx, "ri1", "vn1", "parent"))
	require.NoError(t, m.AddEdge(ctx, "ri1", "rt1", "ref"))
	require.NoError(t, m.AddEdge(ctx, "iip1", "vn1", "ref"))
	return m
}

func ids(elements []Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.ID
	}
	return out
}

func TestMemoryTraversals(t *testing.T) {
	ctx := context.Background()
	m := seedTopology(t)

	testCases := []struct {
		name      string
		traversal *gremlin.Traversal
		expected  []string
	}{
		{
			name:      "hasLabel keeps insertion order and hides deleted vertices",
			traversal: gremlin.V().HasLabel("route_target"),
			expected:  []string{"rt1", "rt2"},
		},
		{
			name: "not in",
			traversal: gremlin.V().HasLabel("route_target").Not(
				gremlin.Anon().In().HasLabel("routing_instance", "logical_router")),
			expected: []string{"rt2"},
		},
		{
			name:      "where with edge label",
			traversal: gremlin.V().HasLabel("virtual_network").Where(gremlin.Anon().In("parent")),
			expected:  []string{"vn1"},
		},
		{
			name:      "out then dedup",
			traversal: gremlin.V().HasLabel("routing_instance", "instance_ip").Out().Dedup(),
			expected:  []string{"vn1", "rt1"},
		},
		{
			name:      "has with lt",
			traversal: gremlin.V().HasP("updated", gremlin.Lt(int64(200))),
			expected:  []string{"iip1"},
		},
		{
			name:      "has within lists",
			traversal: gremlin.V().HasP("fq_name", gremlin.Within([]string{"x"}, []any{"d", "p", "vn1"})),
			expected:  []string{"vn1"},
		},
		{
			name:      "hasNot",
			traversal: gremlin.V().HasLabel("route_target").HasNot("display_name"),
			expected:  []string{"rt2"},
		},
		{
			name:      "V by id ignores deleted",
			traversal: gremlin.V("rt1", "rt-deleted", "missing"),
			expected:  []string{"rt1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Elements(ctx, tc.traversal)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ids(got))
		})
	}
}

func TestMemoryValues(t *testing.T) {
	ctx := context.Background()
	m := seedTopology(t)

	vals, err := m.Values(ctx, gremlin.V().HasLabel("instance_ip").Values("instance_ip_address"))
	require.NoError(t, err)
	assert.Equal(t, []any{"10.0.0.1"}, vals)

	_, err = m.Elements(ctx, gremlin.V().Values("fq_name"))
	assert.Error(t, err, "value results cannot be read as elements")
}

func TestMemoryRemoveVertex(t *testing.T) {
	ctx := context.Background()
	m := seedTopology(t)

	require.NoError(t, m.RemoveVertex(ctx, "rt1"))
	got, err := m.Elements(ctx, gremlin.V().HasLabel("routing_instance").Out())
	require.NoError(t, err)
	assert.Equal(t, []string{"vn1"}, ids(got))

	err = m.RemoveVertex(ctx, "rt1")
	assert.ErrorIs(t, err, ErrVertexNotFound)
}

func TestMemorySeedDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.AddVertex(ctx, "project", "p1", nil))

	got, err := m.Elements(ctx, gremlin.V())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].Property("deleted"))
	assert.NotNil(t, got[0].Property("updated"))

	assert.Error(t, m.AddEdge(ctx, "p1", "nope", "ref"))
	assert.Error(t, m.AddVertex(ctx, "", "x", nil))

	require.NoError(t, m.DropAll(ctx))
	assert.Zero(t, m.Len())
}

func TestMemoryHonorsContext(t *testing.T) {
	m := seedTopology(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Elements(ctx, gremlin.V().HasLabel("route_target"))
	assert.ErrorIs(t, err, context.Canceled)
}
