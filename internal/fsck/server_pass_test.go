// File: internal/fsck/server_pass_test.go
package fsck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGremlinServer answers gremlin requests over a real websocket. Requests
// for elements labelled "slow_label" are never answered.
func newGremlinServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := gremlin.DecodeRequest(frame)
			if err != nil {
				return
			}
			if req.Args.Bindings["_b0"] == "slow_label" {
				continue
			}
			msg := map[string]any{
				"requestId": req.RequestID,
				"status":    map[string]any{"code": gremlin.StatusSuccess, "message": ""},
				"result": map[string]any{"data": []any{
					map[string]any{"label": "route_target", "id": "rt1", "properties": map[string]any{}},
				}},
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/gremlin"
}

func TestPassSurvivesCheckTimeoutOnGremlinServer(t *testing.T) {
	endpoint := newGremlinServer(t)
	reg := newCheckRegistry(t, labelCheck("slow", "slow_label"), labelCheck("healthy", "route_target"))
	reporter := &recordingReporter{}

	sched, err := NewScheduler(SchedulerConfig{
		Registry: reg,
		Checks:   NewCheckRunner(reg, nil, WithCheckTimeout(100*time.Millisecond)),
		Reporter: reporter,
		Dial: func(ctx context.Context) (graph.Handle, error) {
			return graph.Dial(ctx, endpoint, graph.Options{DialTimeout: time.Second})
		},
	})
	require.NoError(t, err)

	require.NoError(t, sched.RunOnce(context.Background(), []string{"slow", "healthy"}, false))

	reports := reporter.snapshot()
	require.Len(t, reports, 2)

	assert.Equal(t, "slow", reports[0].Name)
	assert.False(t, reports[0].Success)
	assert.Equal(t, -1, reports[0].Total)
	assert.Contains(t, reports[0].Output, "timed out after 100ms")

	assert.Equal(t, "healthy", reports[1].Name)
	assert.True(t, reports[1].Success, "a timed out check must not poison the next one: %s", reports[1].Output)
	assert.Equal(t, 1, reports[1].Total)
}
