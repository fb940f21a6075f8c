// File: internal/fsck/mapper.go
package fsck

import (
	"fmt"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
)

// MapElements projects raw matches onto resources, keeping their order.
// A missing qualified name maps to an empty one; a missing label is an error.
func MapElements(elements []graph.Element) ([]resource.Resource, error) {
	out := make([]resource.Resource, 0, len(elements))
	for i, e := range elements {
		if e.Label == "" {
			return nil, &MalformedElementError{Index: i, ID: e.ID}
		}
		out = append(out, resource.New(e.Label, e.ID, fqName(e.Property("fq_name"))))
	}
	return out, nil
}

// fqName is best effort: Contrail stores it as a list, some mirrors as a
// colon separated string.
func fqName(v any) []string {
	switch fq := v.(type) {
	case []string:
		return append([]string{}, fq...)
	case []any:
		out := make([]string, 0, len(fq))
		for _, part := range fq {
			if part == nil {
				continue
			}
			out = append(out, fmt.Sprint(part))
		}
		return out
	case string:
		if fq == "" {
			return []string{}
		}
		return strings.Split(fq, ":")
	default:
		return []string{}
	}
}
