// File: internal/graph/graph.go
package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"go.uber.org/zap"
)

// Element is a raw vertex matched by a traversal.
type Element struct {
	ID         string
	Label      string
	Properties map[string]any
}

// Property returns the named property, or nil.
func (e Element) Property(key string) any {
	if e.Properties == nil {
		return nil
	}
	return e.Properties[key]
}

// View is the traversal surface handed to rules. Every backend filters it to
// live vertices: one whose `deleted` property is not 0 is invisible, and so are
// edges leading to it.
type View interface {
	// Elements evaluates t and returns the traversed vertices.
	Elements(ctx context.Context, t *gremlin.Traversal) ([]Element, error)
	// Values evaluates t and returns the raw result items (property values,
	// vertex ids, scalars).
	Values(ctx context.Context, t *gremlin.Traversal) ([]any, error)
}

// Handle owns one connection to a graph store.
type Handle interface {
	View() View
	Close() error
}

// Seeder is implemented by writable backends. It is used by self-tests to
// build fixtures from a cleared graph.
type Seeder interface {
	DropAll(ctx context.Context) error
	AddVertex(ctx context.Context, label, id string, props map[string]any) error
	AddEdge(ctx context.Context, outID, inID, label string) error
}

// Remover is implemented by backends able to delete vertices directly.
type Remover interface {
	RemoveVertex(ctx context.Context, id string) error
}

// ErrVertexNotFound is returned by RemoveVertex when the vertex does not exist.
var ErrVertexNotFound = errors.New("vertex not found")

// ConnectionError reports a transport or handshake failure while opening a
// handle. It is the only error that aborts a pass.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to graph at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Options tune Dial.
type Options struct {
	DialTimeout time.Duration
	Header      http.Header
	Logger      *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// seedDefaults fills the bookkeeping properties every Contrail vertex carries.
func seedDefaults(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+2)
	for k, v := range props {
		out[k] = v
	}
	if _, ok := out["deleted"]; !ok {
		out["deleted"] = int64(0)
	}
	if _, ok := out["updated"]; !ok {
		out["updated"] = time.Now().Unix()
	}
	return out
}
