// File: internal/reporting/json.go
package reporting

import (
	"io"
	"sync"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one structured record, written as a single JSON line.
type Event struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Output   any    `json:"output"`
	Success  bool   `json:"success"`
	Duration string `json:"duration"`
}

// ResourceEvent is the serialized form of a flagged resource.
type ResourceEvent struct {
	Type   string   `json:"type"`
	UUID   string   `json:"uuid"`
	FQName []string `json:"fq_name"`
}

// JSONReporter emits exactly one event per check and one per clean.
type JSONReporter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (r *JSONReporter) PassStarted()               {}
func (r *JSONReporter) PassFinished(time.Duration) {}

// TestFailed emits a "test" event so failures stay machine readable.
func (r *JSONReporter) TestFailed(name string, err error) {
	_ = r.write(Event{Type: "test", Name: name, Total: -1, Output: err.Error()})
}

// Report writes the event for rep.
func (r *JSONReporter) Report(rep *fsck.ExecutionReport) error {
	return r.write(NewEvent(rep))
}

// NewEvent converts a report into its structured form.
func NewEvent(rep *fsck.ExecutionReport) Event {
	ev := Event{
		Type:     string(rep.Type),
		Name:     rep.Name,
		Total:    rep.Total,
		Success:  rep.Success,
		Duration: rep.Duration.String(),
	}
	switch {
	case !rep.Success, rep.Type == fsck.ReportClean:
		ev.Output = rep.Output
	case rep.Scalar != nil:
		ev.Output = rep.Scalar
	default:
		ev.Output = resourceEvents(rep.Resources)
	}
	return ev
}

func resourceEvents(resources []resource.Resource) []ResourceEvent {
	out := make([]ResourceEvent, len(resources))
	for i, r := range resources {
		fq := r.FQName
		if fq == nil {
			fq = []string{}
		}
		out[i] = ResourceEvent{Type: r.Kind, UUID: r.ID, FQName: fq}
	}
	return out
}

func (r *JSONReporter) write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.w.Write(append(line, '\n'))
	return err
}

// Close closes the underlying writer.
func (r *JSONReporter) Close() error {
	return r.w.Close()
}
