// File: internal/fsck/mapper_test.go
package fsck

import (
	"errors"
	"testing"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapElements(t *testing.T) {
	elements := []graph.Element{
		{ID: "b", Label: "virtual_machine_interface", Properties: map[string]any{"fq_name": []any{"default-domain", "admin", "b"}}},
		{ID: "a", Label: "instance_ip", Properties: map[string]any{"fq_name": []string{"a"}}},
		{ID: "c", Label: "route_target"},
		{ID: "d", Label: "project", Properties: map[string]any{"fq_name": "default-domain:admin"}},
		{ID: "e", Label: "project", Properties: map[string]any{"fq_name": 42}},
	}

	got, err := MapElements(elements)
	require.NoError(t, err)

	want := []resource.Resource{
		{Kind: "virtual-machine-interface", ID: "b", FQName: []string{"default-domain", "admin", "b"}},
		{Kind: "instance-ip", ID: "a", FQName: []string{"a"}},
		{Kind: "route-target", ID: "c", FQName: []string{}},
		{Kind: "project", ID: "d", FQName: []string{"default-domain", "admin"}},
		{Kind: "project", ID: "e", FQName: []string{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapElements() mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got {
		assert.NotNil(t, r.FQName, "qualified name is never nil")
	}
}

func TestMapElementsEmpty(t *testing.T) {
	got, err := MapElements(nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMapElementsMissingLabel(t *testing.T) {
	_, err := MapElements([]graph.Element{{ID: "ok", Label: "project"}, {ID: "broken"}})
	var malformed *MalformedElementError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 1, malformed.Index)
	assert.Equal(t, "broken", malformed.ID)
}
