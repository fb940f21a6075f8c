// File: internal/fsck/check_runner.go
package fsck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"go.uber.org/zap"
)

// CheckRunner executes checks and turns every failure into a report.
type CheckRunner struct {
	registry *Registry
	gauges   *Gauges
	timeout  time.Duration
	logger   *zap.Logger
}

// CheckOption configures a CheckRunner.
type CheckOption func(*CheckRunner)

// WithCheckTimeout bounds every evaluation. Zero disables the bound.
func WithCheckTimeout(d time.Duration) CheckOption {
	return func(r *CheckRunner) {
		r.timeout = d
	}
}

// WithGauges records each check total into gauges.
func WithGauges(g *Gauges) CheckOption {
	return func(r *CheckRunner) {
		r.gauges = g
	}
}

// NewCheckRunner builds a runner over registry.
func NewCheckRunner(registry *Registry, logger *zap.Logger, opts ...CheckOption) *CheckRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &CheckRunner{
		registry: registry,
		logger:   logger.Named("check_runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the named check against view. The only error it returns is a
// *NotFoundError; anything going wrong inside the check is reported with
// Success false and Total -1.
func (r *CheckRunner) Run(ctx context.Context, name string, view graph.View) (*ExecutionReport, error) {
	check, err := r.registry.Check(name)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With(zap.String("check", name))

	start := time.Now()
	report, err := r.evaluate(ctx, check, view)
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("Check timed out", zap.Duration("timeout", r.timeout), zap.Error(err))
		case errors.Is(err, context.Canceled):
			logger.Warn("Check was cancelled", zap.Error(err))
		default:
			logger.Error("Check failed", zap.Error(err))
		}
		report = failureReport(ReportCheck, check.Name, check.Description, err, elapsed)
	} else {
		report.Duration = elapsed
		logger.Debug("Check done", zap.Int("total", report.Total), zap.Duration("duration", elapsed))
	}

	if r.gauges != nil {
		r.gauges.Set(check.Name, check.Description, float64(report.Total))
	}
	return report, nil
}

type checkResult struct {
	report *ExecutionReport
	err    error
}

func (r *CheckRunner) evaluate(ctx context.Context, check CheckUnit, view graph.View) (*ExecutionReport, error) {
	if r.timeout <= 0 {
		return evaluateCheck(ctx, check, view)
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The evaluation runs aside so a rule that ignores its context still
	// cannot hold the pass past the deadline.
	done := make(chan checkResult, 1)
	go func() {
		report, err := evaluateCheck(checkCtx, check, view)
		done <- checkResult{report: report, err: err}
	}()

	select {
	case res := <-done:
		return res.report, res.err
	case <-checkCtx.Done():
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("check %s timed out after %s: %w", check.Name, r.timeout, checkCtx.Err())
		}
		return nil, fmt.Errorf("check %s cancelled: %w", check.Name, checkCtx.Err())
	}
}

// evaluateCheck runs the rule and the mapper, converting a panic into an error.
func evaluateCheck(ctx context.Context, check CheckUnit, view graph.View) (report *ExecutionReport, err error) {
	defer func() {
		if p := recover(); p != nil {
			report = nil
			err = fmt.Errorf("check %s panicked: %v", check.Name, p)
		}
	}()

	matches, err := check.Evaluate(ctx, view)
	if err != nil {
		return nil, err
	}

	report = &ExecutionReport{
		Type:        ReportCheck,
		Name:        check.Name,
		Description: check.Description,
		Notes:       matches.Notes,
		Details:     matches.Details,
		Success:     true,
	}
	if matches.Scalar != nil {
		report.Scalar = matches.Scalar
		report.Total = 1
		return report, nil
	}

	resources, err := MapElements(matches.Elements)
	if err != nil {
		return nil, err
	}
	report.Resources = resources
	report.Total = len(resources)
	return report, nil
}
