// File: internal/fsck/helpers_test.go
package fsck

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"github.com/stretchr/testify/require"
)

// recordingReporter keeps everything the scheduler hands it.
type recordingReporter struct {
	mu      sync.Mutex
	reports []*ExecutionReport
	passes  int
	started int
	failed  map[string]error
}

func (r *recordingReporter) PassStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingReporter) Report(rep *ExecutionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *recordingReporter) PassFinished(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes++
}

func (r *recordingReporter) TestFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed == nil {
		r.failed = map[string]error{}
	}
	r.failed[name] = err
}

func (r *recordingReporter) snapshot() []*ExecutionReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ExecutionReport(nil), r.reports...)
}

func (r *recordingReporter) passCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

// labelCheck flags every vertex with the given label.
func labelCheck(name, label string) CheckUnit {
	return CheckUnit{
		Name:        name,
		Description: label + " vertices",
		Evaluate: func(ctx context.Context, view graph.View) (Matches, error) {
			elements, err := view.Elements(ctx, gremlin.V().HasLabel(label))
			return Matches{Elements: elements}, err
		},
	}
}

func failingCheck(name string, err error) CheckUnit {
	return CheckUnit{
		Name:        name,
		Description: "always failing",
		Evaluate: func(ctx context.Context, view graph.View) (Matches, error) {
			return Matches{}, err
		},
	}
}

func deleteClean(name string) CleanUnit {
	return CleanUnit{
		Name: name,
		Repair: func(ctx context.Context, env *CleanEnv, resources []resource.Resource) error {
			for _, r := range resources {
				err := env.Remediator.Delete(ctx, r)
				if errors.Is(err, remediation.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				env.Record("Deleted %s", r)
			}
			return nil
		},
	}
}

func seededMemory(t *testing.T, vertices map[string]string) *graph.Memory {
	t.Helper()
	m := graph.NewMemory(nil)
	for id, label := range vertices {
		require.NoError(t, m.AddVertex(context.Background(), label, id, map[string]any{"fq_name": []string{"default-domain", id}}))
	}
	return m
}

func memoryDial(h graph.Handle) DialFunc {
	return func(ctx context.Context) (graph.Handle, error) { return h, nil }
}

func graphRemediator(h graph.Handle) (remediation.Remediator, error) {
	return remediation.NewGraphRemediator(h, nil)
}
