// File: internal/fsck/clean_runner_test.go
package fsck

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemediator struct {
	deleted []string
	fail    map[string]error
}

func (f *fakeRemediator) Delete(ctx context.Context, r resource.Resource) error {
	if err := f.fail[r.ID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, r.ID)
	return nil
}

func remediationNotFound() error {
	return fmt.Errorf("%w: route-target/rt1", remediation.ErrNotFound)
}

func TestCleanRunnerRun(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(
		[]CheckUnit{labelCheck("unused_rt", "route_target"), labelCheck("no_clean", "project")},
		[]CleanUnit{deleteClean("unused_rt")},
		nil,
	)
	require.NoError(t, err)
	runner := NewCleanRunner(reg, nil)
	flagged := []resource.Resource{
		resource.New("route_target", "rt1", nil),
		resource.New("route_target", "rt2", nil),
	}

	t.Run("records one line per action", func(t *testing.T) {
		rem := &fakeRemediator{}
		report, ran := runner.Run(ctx, "unused_rt", flagged, rem)
		require.True(t, ran)
		assert.True(t, report.Success)
		assert.Equal(t, ReportClean, report.Type)
		assert.Equal(t, 2, report.Total)
		assert.Equal(t, []string{"Deleted route-target/rt1", "Deleted route-target/rt2"}, report.Lines)
		assert.Equal(t, "Deleted route-target/rt1\nDeleted route-target/rt2", report.Output)
		assert.Equal(t, []string{"rt1", "rt2"}, rem.deleted)
	})

	t.Run("already gone resources are skipped", func(t *testing.T) {
		rem := &fakeRemediator{fail: map[string]error{"rt1": remediationNotFound()}}
		report, ran := runner.Run(ctx, "unused_rt", flagged, rem)
		require.True(t, ran)
		assert.True(t, report.Success)
		assert.Equal(t, 1, report.Total)
	})

	t.Run("repair errors are captured", func(t *testing.T) {
		rem := &fakeRemediator{fail: map[string]error{"rt2": errors.New("HTTP 409: Back-References exist")}}
		report, ran := runner.Run(ctx, "unused_rt", flagged, rem)
		require.True(t, ran)
		assert.False(t, report.Success)
		assert.Equal(t, -1, report.Total)
		assert.Equal(t, "HTTP 409: Back-References exist", report.Output)
		assert.Equal(t, []string{"Deleted route-target/rt1"}, report.Lines)
	})

	t.Run("absent clean is skipped", func(t *testing.T) {
		report, ran := runner.Run(ctx, "no_clean", flagged, &fakeRemediator{})
		assert.False(t, ran)
		assert.Nil(t, report)
	})

	t.Run("nothing flagged is skipped", func(t *testing.T) {
		rem := &fakeRemediator{}
		report, ran := runner.Run(ctx, "unused_rt", nil, rem)
		assert.False(t, ran)
		assert.Nil(t, report)
		assert.Empty(t, rem.deleted)
	})

	t.Run("panicking repair is captured", func(t *testing.T) {
		reg, err := NewRegistry(
			[]CheckUnit{labelCheck("x", "x")},
			[]CleanUnit{{Name: "x", Repair: func(ctx context.Context, env *CleanEnv, rs []resource.Resource) error {
				panic("boom")
			}}},
			nil,
		)
		require.NoError(t, err)
		report, ran := NewCleanRunner(reg, nil).Run(ctx, "x", flagged, &fakeRemediator{})
		require.True(t, ran)
		assert.False(t, report.Success)
		assert.Contains(t, report.Output, "clean x panicked: boom")
	})

	t.Run("missing remediator fails the clean", func(t *testing.T) {
		report, ran := runner.Run(ctx, "unused_rt", flagged, nil)
		require.True(t, ran)
		assert.False(t, report.Success)
	})
}
