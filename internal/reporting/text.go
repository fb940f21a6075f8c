// File: internal/reporting/text.go
package reporting

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
)

// TextReporter prints human readable output. Checks that flag nothing print
// nothing.
type TextReporter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (r *TextReporter) PassStarted() {
	r.print("Running checks...\n")
}

func (r *TextReporter) PassFinished(d time.Duration) {
	r.print(fmt.Sprintf("Checks done in %s\n", d.Round(time.Millisecond)))
}

func (r *TextReporter) TestFailed(name string, err error) {
	r.print(fmt.Sprintf("Test %s failed: %v\n", name, err))
}

// Report renders one check or clean outcome.
func (r *TextReporter) Report(rep *fsck.ExecutionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bw := bufio.NewWriter(r.w)
	switch rep.Type {
	case fsck.ReportClean:
		fmt.Fprintln(bw, "Cleaning...")
		for _, line := range rep.Lines {
			fmt.Fprintln(bw, line)
		}
		if rep.Success {
			fmt.Fprintln(bw, "Clean done")
		} else {
			fmt.Fprintf(bw, "Clean failed: %s\n", rep.Output)
		}
	default:
		if !rep.Success {
			fmt.Fprintf(bw, "Check %s failed: %s\n", rep.Name, rep.Output)
			break
		}
		if rep.Total <= 0 {
			break
		}
		fmt.Fprintf(bw, "Found %d %s:\n", rep.Total, rep.Description)
		for _, res := range rep.Resources {
			fmt.Fprintf(bw, "  - %s/%s - %s\n", res.Kind, res.ID, res.FQNameString())
			for _, line := range rep.Details[res.ID] {
				fmt.Fprintln(bw, line)
			}
		}
		if rep.Scalar != nil {
			fmt.Fprintf(bw, "  %v\n", rep.Scalar)
		}
		for _, note := range rep.Notes {
			fmt.Fprintln(bw, note)
		}
	}
	return bw.Flush()
}

func (r *TextReporter) print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, s)
}

// Close closes the underlying writer.
func (r *TextReporter) Close() error {
	return r.w.Close()
}
