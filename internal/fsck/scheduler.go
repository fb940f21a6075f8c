// File: internal/fsck/scheduler.go
package fsck

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"go.uber.org/zap"
)

// Reporter renders unit outcomes. Exactly one implementation is active per run.
type Reporter interface {
	PassStarted()
	Report(r *ExecutionReport) error
	PassFinished(d time.Duration)
	TestFailed(name string, err error)
}

// DialFunc opens a fresh graph handle for a pass.
type DialFunc func(ctx context.Context) (graph.Handle, error)

// RemediatorFunc builds the remediator used by cleans during a pass.
type RemediatorFunc func(h graph.Handle) (remediation.Remediator, error)

// PassStatus summarizes the last completed pass.
type PassStatus struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Checks   int           `json:"checks"`
	Failures int           `json:"failures"`
	Flagged  int           `json:"flagged"`
	Error    string        `json:"error,omitempty"`
}

// Scheduler drives passes over the selected checks.
type Scheduler struct {
	registry   *Registry
	checks     *CheckRunner
	cleans     *CleanRunner
	reporter   Reporter
	dial       DialFunc
	remediator RemediatorFunc
	logger     *zap.Logger
	last       atomic.Pointer[PassStatus]
}

// SchedulerConfig groups the collaborators of a Scheduler.
type SchedulerConfig struct {
	Registry   *Registry
	Checks     *CheckRunner
	Cleans     *CleanRunner
	Reporter   Reporter
	Dial       DialFunc
	Remediator RemediatorFunc
	Logger     *zap.Logger
}

// NewScheduler validates cfg and builds a scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Registry == nil || cfg.Reporter == nil || cfg.Dial == nil {
		return nil, errors.New("scheduler requires a registry, a reporter and a dial function")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Checks == nil {
		cfg.Checks = NewCheckRunner(cfg.Registry, logger)
	}
	if cfg.Cleans == nil {
		cfg.Cleans = NewCleanRunner(cfg.Registry, logger)
	}
	return &Scheduler{
		registry:   cfg.Registry,
		checks:     cfg.Checks,
		cleans:     cfg.Cleans,
		reporter:   cfg.Reporter,
		dial:       cfg.Dial,
		remediator: cfg.Remediator,
		logger:     logger.Named("scheduler"),
	}, nil
}

// Validate rejects unknown check names before anything runs.
func (s *Scheduler) Validate(names []string) error {
	for _, name := range names {
		if _, err := s.registry.Check(name); err != nil {
			return &ConfigError{Err: err}
		}
	}
	return nil
}

// LastPass returns the status of the last completed pass, or nil.
func (s *Scheduler) LastPass() *PassStatus {
	return s.last.Load()
}

// RunOnce runs names in order against a freshly dialed handle. It returns a
// *graph.ConnectionError when the store is unreachable and a *ConfigError for
// unusable settings; a failing check or clean never stops the pass.
func (s *Scheduler) RunOnce(ctx context.Context, names []string, repair bool) error {
	if err := s.Validate(names); err != nil {
		return err
	}

	start := time.Now()
	status := &PassStatus{Started: start}
	defer func() {
		status.Duration = time.Since(start)
		s.last.Store(status)
	}()

	handle, err := s.dial(ctx)
	if err != nil {
		status.Error = err.Error()
		return err
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			s.logger.Warn("Failed to close graph handle", zap.Error(cerr))
		}
	}()

	var rem remediation.Remediator
	if repair {
		if s.remediator == nil {
			cfgErr := &ConfigError{Reason: "cleans requested but no remediation is configured"}
			status.Error = cfgErr.Error()
			return cfgErr
		}
		rem, err = s.remediator(handle)
		if err != nil {
			status.Error = err.Error()
			return &ConfigError{Reason: "remediation unavailable", Err: err}
		}
	}

	s.logger.Info("Running checks", zap.Int("checks", len(names)), zap.Bool("clean", repair))
	s.reporter.PassStarted()
	view := handle.View()

	for _, name := range names {
		if ctx.Err() != nil {
			s.logger.Info("Pass interrupted", zap.Error(ctx.Err()))
			break
		}
		report, err := s.checks.Run(ctx, name, view)
		if err != nil {
			return &ConfigError{Err: err}
		}
		status.Checks++
		if report.Failed() {
			status.Failures++
		} else {
			status.Flagged += report.Total
		}
		s.emit(report)

		if !repair || !report.Success || report.Total <= 0 {
			continue
		}
		cleanReport, ran := s.cleans.Run(ctx, name, report.Resources, rem)
		if !ran {
			continue
		}
		if cleanReport.Failed() {
			status.Failures++
		}
		s.emit(cleanReport)
	}

	elapsed := time.Since(start)
	s.reporter.PassFinished(elapsed)
	s.logger.Info("Checks done",
		zap.Duration("duration", elapsed),
		zap.Int("checks", status.Checks),
		zap.Int("failures", status.Failures),
		zap.Int("flagged", status.Flagged))
	return nil
}

func (s *Scheduler) emit(r *ExecutionReport) {
	if err := s.reporter.Report(r); err != nil {
		s.logger.Error("Failed to write report", zap.String("name", r.Name), zap.Error(err))
	}
}

// RunLoop repeats RunOnce every interval until ctx is cancelled. Pass
// failures, unreachable stores included, are logged and retried on the next
// interval.
func (s *Scheduler) RunLoop(ctx context.Context, names []string, repair bool, interval time.Duration) error {
	if err := s.Validate(names); err != nil {
		return err
	}
	if interval <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("loop interval must be positive, got %s", interval)}
	}

	for {
		if err := s.RunOnce(ctx, names, repair); err != nil && ctx.Err() == nil {
			var connErr *graph.ConnectionError
			if errors.As(err, &connErr) {
				s.logger.Error("Graph unreachable, retrying next interval", zap.Error(err), zap.Duration("interval", interval))
			} else {
				s.logger.Error("Pass failed", zap.Error(err))
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Loop stopped", zap.Error(ctx.Err()))
			return nil
		case <-timer.C:
		}
	}
}

// RunTests clears the graph, then runs the named tests in order against one
// handle. The first failure stops the run and is returned.
func (s *Scheduler) RunTests(ctx context.Context, names []string) error {
	if slices.Contains(names, AllTests) {
		names = s.registry.Names(CategoryTest)
	}
	tests := make([]TestUnit, 0, len(names))
	for _, name := range names {
		t, err := s.registry.Test(name)
		if err != nil {
			return &ConfigError{Err: err}
		}
		tests = append(tests, t)
	}

	handle, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer handle.Close()

	seeder, ok := handle.(graph.Seeder)
	if !ok {
		return &ConfigError{Reason: fmt.Sprintf("graph backend %T cannot be seeded for tests", handle)}
	}
	if err := seeder.DropAll(ctx); err != nil {
		return fmt.Errorf("failed to clear graph before tests: %w", err)
	}

	env := &TestEnv{
		Seeder:   seeder,
		View:     handle.View(),
		registry: s.registry,
	}
	if s.remediator != nil {
		rem, err := s.remediator(handle)
		if err != nil {
			s.logger.Warn("Remediation unavailable, tests that repair will fail", zap.Error(err))
		} else {
			env.Remediator = rem
		}
	}

	for _, t := range tests {
		s.logger.Info("Running test", zap.String("test", t.Name))
		if err := t.Run(ctx, env.named(t.Name)); err != nil {
			s.reporter.TestFailed(t.Name, err)
			return fmt.Errorf("test %s failed: %w", t.Name, err)
		}
	}
	s.logger.Info("Tests done", zap.Int("tests", len(tests)))
	return nil
}
