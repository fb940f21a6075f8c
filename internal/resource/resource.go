// File: internal/resource/resource.go
package resource

import (
	"fmt"
	"strings"
)

// Resource identifies one flagged graph element independently of the
// store's native vertex representation.
type Resource struct {
	Kind   string
	ID     string
	FQName []string
}

// New builds a Resource from a raw graph label. FQName is never nil.
func New(label, id string, fqName []string) Resource {
	if fqName == nil {
		fqName = []string{}
	}
	return Resource{
		Kind:   KindFromLabel(label),
		ID:     id,
		FQName: fqName,
	}
}

// KindFromLabel normalizes a graph label into a resource kind
// (virtual_network -> virtual-network).
func KindFromLabel(label string) string {
	return strings.ReplaceAll(label, "_", "-")
}

// LabelFromKind is the inverse of KindFromLabel.
func LabelFromKind(kind string) string {
	return strings.ReplaceAll(kind, "-", "_")
}

// Path returns the API path of the resource, e.g. /route-target/<uuid>.
func (r Resource) Path() string {
	return fmt.Sprintf("/%s/%s", r.Kind, r.ID)
}

// FQNameString joins the qualified name the way Contrail displays it.
func (r Resource) FQNameString() string {
	return strings.Join(r.FQName, ":")
}

func (r Resource) String() string {
	return r.Kind + "/" + r.ID
}
