// File: internal/checks/checks_test.go
package checks

import (
	"context"
	"testing"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quietReporter struct {
	failed []string
}

func (r *quietReporter) PassStarted()                       {}
func (r *quietReporter) Report(*fsck.ExecutionReport) error { return nil }
func (r *quietReporter) PassFinished(time.Duration)         {}
func (r *quietReporter) TestFailed(name string, err error)  { r.failed = append(r.failed, name) }

func newEnv(t *testing.T) (*graph.Memory, *fsck.TestEnv) {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	mem := graph.NewMemory(nil)
	rem, err := remediation.NewGraphRemediator(mem, nil)
	require.NoError(t, err)
	env, err := fsck.NewTestEnv(reg, mem, rem)
	require.NoError(t, err)
	return mem, env
}

func TestCatalogue(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	checks := reg.Names(fsck.CategoryCheck)
	assert.Len(t, checks, 16)
	assert.Equal(t, VNWithIIPWithoutVMI, checks[0])
	for _, name := range reg.Names(fsck.CategoryClean) {
		check, err := reg.Check(name)
		require.NoError(t, err)
		assert.NotEmpty(t, check.Description)
	}
	for _, name := range checks {
		_, err := reg.Test(name)
		assert.NoError(t, err, "check %s has a self-test", name)
	}
}

func TestSelfTestsInIsolation(t *testing.T) {
	for _, unit := range Tests() {
		t.Run(unit.Name, func(t *testing.T) {
			_, env := newEnv(t)
			assert.NoError(t, unit.Run(context.Background(), env))
		})
	}
}

func TestSelfTestsShareOneGraph(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	mem := graph.NewMemory(nil)
	reporter := &quietReporter{}
	sched, err := fsck.NewScheduler(fsck.SchedulerConfig{
		Registry: reg,
		Reporter: reporter,
		Dial:     func(context.Context) (graph.Handle, error) { return mem, nil },
		Remediator: func(h graph.Handle) (remediation.Remediator, error) {
			return remediation.NewGraphRemediator(h, nil)
		},
	})
	require.NoError(t, err)

	require.NoError(t, sched.RunTests(context.Background(), []string{fsck.AllTests}))
	assert.Empty(t, reporter.failed)
}

func TestIIPWithoutVMI(t *testing.T) {
	ctx := context.Background()
	mem, env := newEnv(t)
	old := time.Now().Add(-10 * time.Minute).Unix()
	require.NoError(t, mem.AddVertex(ctx, "instance_ip", "iip1", map[string]any{"updated": old}))

	found, err := env.Check(ctx, IIPWithoutVMI)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "instance-ip", found[0].Kind)
	assert.Equal(t, "iip1", found[0].ID)

	t.Run("recent instance-ips are tolerated", func(t *testing.T) {
		require.NoError(t, mem.AddVertex(ctx, "instance_ip", "iip2", nil))
		found, err := env.Check(ctx, IIPWithoutVMI)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}

func TestUnusedRTRepair(t *testing.T) {
	ctx := context.Background()
	mem, env := newEnv(t)
	require.NoError(t, mem.AddVertex(ctx, "route_target", "rt1", map[string]any{"fq_name": []string{"target:64512:1"}}))

	found, err := env.Check(ctx, UnusedRT)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, resource.New("route_target", "rt1", []string{"target:64512:1"}), found[0])

	lines, err := env.Clean(ctx, UnusedRT, found)
	require.NoError(t, err)
	assert.Equal(t, []string{"Deleted route-target/rt1"}, lines)

	found, err = env.Check(ctx, UnusedRT)
	require.NoError(t, err)
	assert.Empty(t, found)

	t.Run("already deleted resources are skipped", func(t *testing.T) {
		lines, err := env.Clean(ctx, UnusedRT, []resource.Resource{resource.New("route_target", "rt1", nil)})
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}

func TestDeletedVerticesAreInvisible(t *testing.T) {
	ctx := context.Background()
	mem, env := newEnv(t)
	require.NoError(t, mem.AddVertex(ctx, "route_target", "gone", map[string]any{"deleted": int64(1)}))

	found, err := env.Check(ctx, UnusedRT)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGroupingChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate ip addresses list the clashing instance-ips", func(t *testing.T) {
		mem, _ := newEnv(t)
		require.NoError(t, mem.AddVertex(ctx, "virtual_network", "vn1", map[string]any{"fq_name": []string{"default-domain", "admin", "vn1"}}))
		for _, id := range []string{"iip1", "iip2"} {
			require.NoError(t, mem.AddVertex(ctx, "instance_ip", id, map[string]any{"instance_ip_address": "10.0.0.3"}))
			require.NoError(t, mem.AddEdge(ctx, id, "vn1", "ref"))
		}

		m, err := duplicateIPAddresses(ctx, mem)
		require.NoError(t, err)
		require.Len(t, m.Elements, 1)
		assert.Equal(t, "vn1", m.Elements[0].ID)
		assert.Empty(t, m.Notes)
		assert.Equal(t, map[string][]string{"vn1": {
			"      10.0.0.3:",
			"        - instance-ip/iip1 - ",
			"        - instance-ip/iip2 - ",
		}}, m.Details)
	})

	t.Run("each network keeps its own duplicates", func(t *testing.T) {
		mem, _ := newEnv(t)
		for vn, ip := range map[string]string{"vn1": "10.0.0.3", "vn2": "10.0.1.3"} {
			require.NoError(t, mem.AddVertex(ctx, "virtual_network", vn, nil))
			for _, id := range []string{vn + "-a", vn + "-b"} {
				require.NoError(t, mem.AddVertex(ctx, "instance_ip", id, map[string]any{"instance_ip_address": ip}))
				require.NoError(t, mem.AddEdge(ctx, id, vn, "ref"))
			}
		}

		m, err := duplicateIPAddresses(ctx, mem)
		require.NoError(t, err)
		require.Len(t, m.Elements, 2)
		assert.Equal(t, []string{
			"      10.0.1.3:",
			"        - instance-ip/vn2-a - ",
			"        - instance-ip/vn2-b - ",
		}, m.Details["vn2"])
		assert.Contains(t, m.Details["vn1"], "        - instance-ip/vn1-a - ")
		assert.NotContains(t, m.Details["vn1"], "        - instance-ip/vn2-a - ")
	})

	t.Run("route-target check needs the cluster ASN", func(t *testing.T) {
		mem, _ := newEnv(t)
		_, err := rtMultipleProjects(ctx, mem)
		assert.ErrorIs(t, err, ErrNoAutonomousSystem)
	})

	t.Run("route-targets outside the cluster ASN are ignored", func(t *testing.T) {
		mem, _ := newEnv(t)
		require.NoError(t, mem.AddVertex(ctx, "global_system_config", "gsc", map[string]any{"autonomous_system": float64(64512)}))
		require.NoError(t, mem.AddVertex(ctx, "route_target", "rt1", map[string]any{"display_name": "target:65000:1"}))
		m, err := rtMultipleProjects(ctx, mem)
		require.NoError(t, err)
		assert.Empty(t, m.Elements)
	})
}

func TestInteger(t *testing.T) {
	for _, v := range []any{64512, int64(64512), float64(64512), "64512"} {
		n, err := integer(v)
		require.NoError(t, err)
		assert.Equal(t, int64(64512), n)
	}
	_, err := integer(1.5)
	assert.Error(t, err)
	_, err = integer(nil)
	assert.Error(t, err)
}
