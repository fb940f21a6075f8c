// File: internal/fsck/errors.go
package fsck

import (
	"fmt"
)

// ConfigError is a startup-time configuration problem (unknown unit name,
// unpaired clean, unusable backend). Nothing runs when one is returned.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return "configuration error: " + e.Reason
	}
	if e.Reason == "" {
		return "configuration error: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotFoundError is returned when a unit name is not registered.
type NotFoundError struct {
	Category Category
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("can't find %s %q", e.Category, e.Name)
}

// DuplicateNameError is returned when two units of the same category share a name.
type DuplicateNameError struct {
	Category Category
	Name     string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Category, e.Name)
}

// MalformedElementError is returned by the mapper for an element it cannot
// classify.
type MalformedElementError struct {
	Index int
	ID    string
}

func (e *MalformedElementError) Error() string {
	return fmt.Sprintf("element %d (id %q) has no label, cannot transform it to a resource", e.Index, e.ID)
}

// AssertionError is a failed self-test expectation.
type AssertionError struct {
	Test    string
	Message string
}

func (e *AssertionError) Error() string {
	if e.Test == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Test, e.Message)
}
