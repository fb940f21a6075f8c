// File: internal/fsck/units.go
package fsck

import (
	"context"
	"fmt"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
)

// Category groups units in the registry.
type Category string

const (
	CategoryCheck Category = "check"
	CategoryClean Category = "clean"
	CategoryTest  Category = "test"
)

// Matches is what a check evaluation yields.
type Matches struct {
	// Elements are the flagged vertices.
	Elements []graph.Element
	// Notes are extra detail lines, shown in text mode only.
	Notes []string
	// Details are detail lines keyed by element id, shown in text mode under
	// that element.
	Details map[string][]string
	// Scalar marks a check that does not return a collection. Total is 1.
	Scalar any
}

// EvaluateFunc is a read-only rule over the live view.
type EvaluateFunc func(ctx context.Context, view graph.View) (Matches, error)

// RepairFunc remediates the resources flagged by the paired check.
type RepairFunc func(ctx context.Context, env *CleanEnv, resources []resource.Resource) error

// TestFunc seeds fixtures and asserts the paired check detects them.
type TestFunc func(ctx context.Context, env *TestEnv) error

// CheckUnit is a named rule.
type CheckUnit struct {
	Name        string
	Description string
	Evaluate    EvaluateFunc
}

// CleanUnit is the repair paired with the check of the same name.
type CleanUnit struct {
	Name   string
	Repair RepairFunc
}

// TestUnit is a self-contained fixture test.
type TestUnit struct {
	Name string
	Run  TestFunc
}

// CleanEnv is handed to a repair. Every action the repair wants reported
// goes through Record.
type CleanEnv struct {
	Remediator remediation.Remediator
	lines      []string
}

// Record appends one output line to the clean report.
func (e *CleanEnv) Record(format string, args ...any) {
	e.lines = append(e.lines, fmt.Sprintf(format, args...))
}

// Lines returns the recorded output.
func (e *CleanEnv) Lines() []string {
	return e.lines
}

func (e *CleanEnv) output() string {
	return strings.Join(e.lines, "\n")
}
