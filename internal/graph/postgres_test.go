// File: internal/graph/postgres_test.go
package graph

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(sqlSnapshotVertices)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "label", "properties"}).
			AddRow("rt1", "route_target", []byte(`{"deleted": 0, "fq_name": ["target:64512:1"]}`)).
			AddRow("rt2", "route_target", []byte(`{"deleted": 1}`)).
			AddRow("ri1", "routing_instance", []byte(`{"deleted": 0}`)))
	mockPool.ExpectQuery(regexp.QuoteMeta(sqlSnapshotEdges)).
		WillReturnRows(pgxmock.NewRows([]string{"out_v", "in_v", "label"}).
			AddRow("ri1", "rt1", "ref").
			AddRow("ri1", "gone", "ref"))

	snap, err := NewSnapshot(ctx, mockPool, nil)
	require.NoError(t, err)

	got, err := snap.View().Elements(ctx, gremlin.V().HasLabel("route_target"))
	require.NoError(t, err)
	require.Len(t, got, 1, "soft-deleted rows stay out of the view")
	assert.Equal(t, "rt1", got[0].ID)
	assert.Equal(t, []any{"target:64512:1"}, got[0].Property("fq_name"))

	got, err = snap.View().Elements(ctx, gremlin.V("ri1").Out())
	require.NoError(t, err)
	assert.Equal(t, []string{"rt1"}, ids(got))

	_, isSeeder := any(snap).(Seeder)
	assert.False(t, isSeeder, "snapshots are read-only")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestNewSnapshotQueryError(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(sqlSnapshotVertices)).
		WillReturnError(errors.New("relation \"graph_vertices\" does not exist"))

	_, err = NewSnapshot(context.Background(), mockPool, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query graph vertices")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestNewSnapshotBadProperties(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(sqlSnapshotVertices)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "label", "properties"}).
			AddRow("rt1", "route_target", []byte(`{not json`)))

	_, err = NewSnapshot(context.Background(), mockPool, nil)
	assert.ErrorContains(t, err, "failed to decode properties of vertex rt1")
}
