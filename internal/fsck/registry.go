// File: internal/fsck/registry.go
package fsck

import (
	"fmt"
	"slices"
)

// Registry indexes the check, clean and test units by name. It is built once
// and never mutated, so it is safe to share.
type Registry struct {
	checks     map[string]CheckUnit
	cleans     map[string]CleanUnit
	tests      map[string]TestUnit
	checkOrder []string
	cleanOrder []string
	testOrder  []string
}

// NewRegistry validates and indexes the unit tables. Names must be unique
// within a category and every clean must pair with a check.
func NewRegistry(checks []CheckUnit, cleans []CleanUnit, tests []TestUnit) (*Registry, error) {
	r := &Registry{
		checks: make(map[string]CheckUnit, len(checks)),
		cleans: make(map[string]CleanUnit, len(cleans)),
		tests:  make(map[string]TestUnit, len(tests)),
	}

	for _, c := range checks {
		if c.Name == "" || c.Evaluate == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("check %q is incomplete", c.Name)}
		}
		if _, dup := r.checks[c.Name]; dup {
			return nil, &DuplicateNameError{Category: CategoryCheck, Name: c.Name}
		}
		r.checks[c.Name] = c
		r.checkOrder = append(r.checkOrder, c.Name)
	}

	for _, c := range cleans {
		if c.Name == "" || c.Repair == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("clean %q is incomplete", c.Name)}
		}
		if _, dup := r.cleans[c.Name]; dup {
			return nil, &DuplicateNameError{Category: CategoryClean, Name: c.Name}
		}
		if _, paired := r.checks[c.Name]; !paired {
			return nil, &ConfigError{Reason: fmt.Sprintf("clean %q has no check of the same name", c.Name)}
		}
		r.cleans[c.Name] = c
		r.cleanOrder = append(r.cleanOrder, c.Name)
	}

	for _, t := range tests {
		if t.Name == "" || t.Run == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("test %q is incomplete", t.Name)}
		}
		if t.Name == AllTests {
			return nil, &ConfigError{Reason: fmt.Sprintf("test name %q is reserved", AllTests)}
		}
		if _, dup := r.tests[t.Name]; dup {
			return nil, &DuplicateNameError{Category: CategoryTest, Name: t.Name}
		}
		r.tests[t.Name] = t
		r.testOrder = append(r.testOrder, t.Name)
	}

	return r, nil
}

// AllTests selects every registered test.
const AllTests = "all"

// Check looks up a check unit.
func (r *Registry) Check(name string) (CheckUnit, error) {
	c, ok := r.checks[name]
	if !ok {
		return CheckUnit{}, &NotFoundError{Category: CategoryCheck, Name: name}
	}
	return c, nil
}

// Clean looks up a clean unit.
func (r *Registry) Clean(name string) (CleanUnit, error) {
	c, ok := r.cleans[name]
	if !ok {
		return CleanUnit{}, &NotFoundError{Category: CategoryClean, Name: name}
	}
	return c, nil
}

// Test looks up a test unit.
func (r *Registry) Test(name string) (TestUnit, error) {
	t, ok := r.tests[name]
	if !ok {
		return TestUnit{}, &NotFoundError{Category: CategoryTest, Name: name}
	}
	return t, nil
}

// Names returns the names of a category in registration order.
func (r *Registry) Names(category Category) []string {
	switch category {
	case CategoryCheck:
		return slices.Clone(r.checkOrder)
	case CategoryClean:
		return slices.Clone(r.cleanOrder)
	case CategoryTest:
		return slices.Clone(r.testOrder)
	default:
		return nil
	}
}
