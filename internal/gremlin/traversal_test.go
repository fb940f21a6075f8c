// File: internal/gremlin/traversal_test.go
package gremlin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Run("renders nested anonymous traversals with bindings", func(t *testing.T) {
		tr := V().HasLabel("route_target").Not(
			Anon().In().HasLabel("routing_instance", "logical_router"),
		)
		script := tr.Render("g")

		assert.Equal(t, "g.V().hasLabel(_b0).not(__.in().hasLabel(_b1, _b2))", script.Text)
		assert.Equal(t, map[string]any{
			"_b0": "route_target",
			"_b1": "routing_instance",
			"_b2": "logical_router",
		}, script.Bindings)
	})

	t.Run("renders predicates", func(t *testing.T) {
		tr := V().HasLabel("instance_ip").HasP("updated", Lt(int64(100))).HasValue("display_name", "x")
		script := tr.Render("g")

		assert.Equal(t, "g.V().hasLabel(_b0).has(_b1, lt(_b2)).has(_b3, _b4)", script.Text)
		assert.Equal(t, int64(100), script.Bindings["_b2"])
		assert.Equal(t, "x", script.Bindings["_b4"])
	})

	t.Run("renders within as a single list binding", func(t *testing.T) {
		tr := V().HasP("fq_name", Within([]string{"a"}, []string{"b"}))
		script := tr.Render("g")

		assert.Equal(t, "g.V().has(_b0, within(_b1))", script.Text)
		assert.Equal(t, []any{[]string{"a"}, []string{"b"}}, script.Bindings["_b1"])
	})

	t.Run("uses the given source", func(t *testing.T) {
		script := V("id-1").Out().Dedup().Values("fq_name").Render("live")
		assert.Equal(t, "live.V(_b0).out().dedup().values(_b1)", script.Text)
	})
}

func TestTraversalIsImmutable(t *testing.T) {
	base := V().HasLabel("virtual_network")
	a := base.In()
	b := base.Out()

	assert.Len(t, base.Steps(), 2)
	assert.Equal(t, OpIn, a.Steps()[2].Op)
	assert.Equal(t, OpOut, b.Steps()[2].Op)
}
