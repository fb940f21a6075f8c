// File: internal/fsck/testenv.go
package fsck

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"github.com/google/uuid"
)

// TestEnv is the fixture surface handed to test units.
type TestEnv struct {
	Seeder     graph.Seeder
	View       graph.View
	Remediator remediation.Remediator

	registry *Registry
	test     string
}

// NewTestEnv builds an environment over a seedable handle. RunTests builds
// its own; this is for running test units outside the scheduler.
func NewTestEnv(registry *Registry, h graph.Handle, rem remediation.Remediator) (*TestEnv, error) {
	seeder, ok := h.(graph.Seeder)
	if !ok {
		return nil, fmt.Errorf("graph backend %T cannot be seeded", h)
	}
	return &TestEnv{
		Seeder:     seeder,
		View:       h.View(),
		Remediator: rem,
		registry:   registry,
	}, nil
}

func (e *TestEnv) named(test string) *TestEnv {
	c := *e
	c.test = test
	return &c
}

// NewID returns a fresh vertex id.
func (e *TestEnv) NewID() string {
	return uuid.NewString()
}

// Vertex seeds a vertex with a generated id and returns it.
func (e *TestEnv) Vertex(ctx context.Context, label string, props map[string]any) (string, error) {
	id := e.NewID()
	if err := e.Seeder.AddVertex(ctx, label, id, props); err != nil {
		return "", fmt.Errorf("failed to seed %s: %w", label, err)
	}
	return id, nil
}

// Edge seeds an edge.
func (e *TestEnv) Edge(ctx context.Context, outID, inID, label string) error {
	if err := e.Seeder.AddEdge(ctx, outID, inID, label); err != nil {
		return fmt.Errorf("failed to seed edge %s -%s-> %s: %w", outID, label, inID, err)
	}
	return nil
}

// Check evaluates the named check and maps its matches.
func (e *TestEnv) Check(ctx context.Context, name string) ([]resource.Resource, error) {
	check, err := e.registry.Check(name)
	if err != nil {
		return nil, err
	}
	matches, err := check.Evaluate(ctx, e.View)
	if err != nil {
		return nil, err
	}
	return MapElements(matches.Elements)
}

// Clean runs the clean named like a check on resources and returns its
// recorded lines.
func (e *TestEnv) Clean(ctx context.Context, name string, resources []resource.Resource) ([]string, error) {
	clean, err := e.registry.Clean(name)
	if err != nil {
		return nil, err
	}
	env := &CleanEnv{Remediator: e.Remediator}
	if err := repair(ctx, clean, env, resources); err != nil {
		return env.Lines(), err
	}
	return env.Lines(), nil
}

// Fail builds an assertion error for the current test.
func (e *TestEnv) Fail(format string, args ...any) error {
	return &AssertionError{Test: e.test, Message: fmt.Sprintf(format, args...)}
}

// AssertFlagged fails unless every id is among resources.
func (e *TestEnv) AssertFlagged(resources []resource.Resource, ids ...string) error {
	got := resourceIDs(resources)
	for _, id := range ids {
		if !slices.Contains(got, id) {
			return e.Fail("expected %s to be flagged, got [%s]", id, strings.Join(got, ", "))
		}
	}
	return nil
}

// AssertNotFlagged fails if any id is among resources.
func (e *TestEnv) AssertNotFlagged(resources []resource.Resource, ids ...string) error {
	got := resourceIDs(resources)
	for _, id := range ids {
		if slices.Contains(got, id) {
			return e.Fail("expected %s not to be flagged", id)
		}
	}
	return nil
}

// AssertCount fails unless exactly n resources were flagged.
func (e *TestEnv) AssertCount(resources []resource.Resource, n int) error {
	if len(resources) != n {
		return e.Fail("expected %d flagged resources, got %d", n, len(resources))
	}
	return nil
}

func resourceIDs(resources []resource.Resource) []string {
	ids := make([]string, len(resources))
	for i, r := range resources {
		ids[i] = r.ID
	}
	return ids
}
