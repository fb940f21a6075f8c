// File: internal/remediation/remediation.go
package remediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"go.uber.org/zap"
)

// ErrNotFound means the resource was already gone. Cleans treat it as done.
var ErrNotFound = errors.New("resource not found")

// Remediator performs the side effects clean units ask for.
type Remediator interface {
	Delete(ctx context.Context, r resource.Resource) error
}

// Modes accepted by remediation.mode.
const (
	ModeAPI   = "api"
	ModeGraph = "graph"
)

// GraphRemediator deletes vertices directly in the graph store. It suits the
// memory backend and test servers where no config API is running.
type GraphRemediator struct {
	remover graph.Remover
	log     *zap.Logger
}

// NewGraphRemediator wraps a handle that supports vertex removal.
func NewGraphRemediator(h graph.Handle, logger *zap.Logger) (*GraphRemediator, error) {
	remover, ok := h.(graph.Remover)
	if !ok {
		return nil, fmt.Errorf("graph backend %T does not support direct deletion", h)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphRemediator{remover: remover, log: logger.Named("graph_remediator")}, nil
}

// Delete removes the resource's vertex.
func (g *GraphRemediator) Delete(ctx context.Context, r resource.Resource) error {
	err := g.remover.RemoveVertex(ctx, r.ID)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, r)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r, err)
	}
	g.log.Debug("Vertex deleted", zap.Stringer("resource", r))
	return nil
}
