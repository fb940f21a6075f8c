// File: internal/fsck/report.go
package fsck

import (
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/resource"
)

// ReportType tells check reports from clean reports.
type ReportType string

const (
	ReportCheck ReportType = "check"
	ReportClean ReportType = "clean"
)

// ExecutionReport is the outcome of one unit invocation. Runners build it,
// the reporter consumes it, nothing keeps it.
type ExecutionReport struct {
	Type        ReportType
	Name        string
	Description string
	// Total is the number of flagged resources (1 for a scalar check, the
	// number of recorded lines for a clean) or -1 on failure.
	Total     int
	Resources []resource.Resource
	Notes     []string
	// Details hold per-resource detail lines keyed by resource id.
	Details map[string][]string
	Scalar  any
	// Lines are the actions recorded by a clean, successful or not.
	Lines []string
	// Output is the error text on failure, or the recorded lines of a clean.
	Output   string
	Success  bool
	Duration time.Duration
}

// DurationMs returns the duration in milliseconds.
func (r *ExecutionReport) DurationMs() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}

// Failed reports whether the unit raised.
func (r *ExecutionReport) Failed() bool {
	return !r.Success
}

func failureReport(typ ReportType, name, description string, err error, d time.Duration) *ExecutionReport {
	return &ExecutionReport{
		Type:        typ,
		Name:        name,
		Description: description,
		Total:       -1,
		Output:      err.Error(),
		Success:     false,
		Duration:    d,
	}
}
