// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Reporter renders pass outcomes to one output. Close releases it.
type Reporter interface {
	fsck.Reporter
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopWriteCloser lets a reporter write to w without ever closing it.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a reporter for format writing to outputPath ("" or "stdout"
// for standard output).
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file %s: %w", outputPath, err)
		}
		writer = f
	}

	r, err := NewWriter(format, writer)
	if err != nil && !isStdOut {
		writer.Close()
	}
	return r, err
}

// NewWriter creates a reporter on an already open writer. It takes ownership
// of w.
func NewWriter(format string, w io.WriteCloser) (Reporter, error) {
	switch format {
	case FormatText:
		return &TextReporter{w: w}, nil
	case FormatJSON:
		return &JSONReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
