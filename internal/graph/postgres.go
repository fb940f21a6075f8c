// File: internal/graph/postgres.go
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Pool abstracts pgxpool.Pool so the snapshot loader can be tested with pgxmock.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

const (
	sqlSnapshotVertices = `SELECT id, label, properties FROM graph_vertices ORDER BY id`
	sqlSnapshotEdges    = `SELECT out_v, in_v, label FROM graph_edges ORDER BY out_v, in_v, label`
)

var propsCodec = jsoniter.Config{UseNumber: true}.Froze()

// Snapshot is a read-only copy of a graph mirrored into PostgreSQL, loaded
// once when the handle is opened and evaluated in memory.
type Snapshot struct {
	pool  Pool
	graph *Memory
	log   *zap.Logger
}

var (
	_ Handle = (*Snapshot)(nil)
	_ Pool   = (*pgxpool.Pool)(nil)
)

// NewSnapshot loads every vertex and edge from pool.
func NewSnapshot(ctx context.Context, pool Pool, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Snapshot{
		pool:  pool,
		graph: NewMemory(logger),
		log:   logger.Named("pg_snapshot"),
	}
	start := time.Now()
	if err := s.loadVertices(ctx); err != nil {
		return nil, err
	}
	edges, err := s.loadEdges(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("Graph snapshot loaded",
		zap.Int("vertices", s.graph.Len()),
		zap.Int("edges", edges),
		zap.Duration("duration", time.Since(start)))
	return s, nil
}

func (s *Snapshot) loadVertices(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, sqlSnapshotVertices)
	if err != nil {
		return fmt.Errorf("failed to query graph vertices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, label string
		var raw []byte
		if err := rows.Scan(&id, &label, &raw); err != nil {
			return fmt.Errorf("failed to scan graph vertex: %w", err)
		}
		props := map[string]any{}
		if len(raw) > 0 {
			var decoded map[string]any
			if err := propsCodec.Unmarshal(raw, &decoded); err != nil {
				return fmt.Errorf("failed to decode properties of vertex %s: %w", id, err)
			}
			if m, ok := gremlin.Unwrap(decoded).(map[string]any); ok {
				props = m
			}
		}
		if err := s.graph.addVertex(label, id, props); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Snapshot) loadEdges(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, sqlSnapshotEdges)
	if err != nil {
		return 0, fmt.Errorf("failed to query graph edges: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var outV, inV, label string
		if err := rows.Scan(&outV, &inV, &label); err != nil {
			return n, fmt.Errorf("failed to scan graph edge: %w", err)
		}
		if err := s.graph.AddEdge(ctx, outV, inV, label); err != nil {
			// Dangling rows are a mirror artifact; the vertex was deleted.
			s.log.Debug("Skipping dangling edge", zap.Error(err))
			continue
		}
		n++
	}
	return n, rows.Err()
}

// View returns the live view of the snapshot.
func (s *Snapshot) View() View { return s.graph }

// Close releases the pool.
func (s *Snapshot) Close() error {
	s.pool.Close()
	return nil
}
