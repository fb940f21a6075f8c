// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/checks"
	"github.com/eonpatapon/contrail-gremlin/internal/config"
	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/observability"
	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/reporting"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// run executes one invocation: self-tests, a single pass, or a loop.
func run(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) error {
	registry, err := checks.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to build check registry: %w", err)
	}

	reporter, err := newReporter(cfg.Fsck, out)
	if err != nil {
		return &fsck.ConfigError{Reason: "unusable output", Err: err}
	}
	defer reporter.Close()

	selfTest := len(cfg.Fsck.Tests) > 0
	remediator, err := newRemediatorFunc(cfg, selfTest, logger)
	if err != nil {
		return &fsck.ConfigError{Reason: "remediation unavailable", Err: err}
	}

	metrics := prometheus.NewRegistry()
	gauges := fsck.NewGauges(cfg.Metrics.Prefix, metrics)

	sched, err := fsck.NewScheduler(fsck.SchedulerConfig{
		Registry:   registry,
		Checks:     fsck.NewCheckRunner(registry, logger, fsck.WithCheckTimeout(cfg.Fsck.CheckTimeout), fsck.WithGauges(gauges)),
		Cleans:     fsck.NewCleanRunner(registry, logger),
		Reporter:   reporter,
		Dial:       dialer(cfg.Graph, logger),
		Remediator: remediator,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if selfTest {
		return sched.RunTests(ctx, cfg.Fsck.Tests)
	}

	names := cfg.Fsck.Checks
	if len(names) == 0 {
		names = registry.Names(fsck.CategoryCheck)
	}
	if !cfg.Fsck.Loop {
		return sched.RunOnce(ctx, names, cfg.Fsck.Clean)
	}

	// Fail fast on typos before the metrics listener comes up.
	if err := sched.Validate(names); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		srv := observability.NewMetricsServer(cfg.Metrics.Address, metrics, sched.LastPass, logger)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return sched.RunLoop(gctx, names, cfg.Fsck.Clean, cfg.Fsck.LoopInterval)
	})
	return g.Wait()
}

func newReporter(cfg config.FsckConfig, out io.Writer) (reporting.Reporter, error) {
	if cfg.OutputFile != "" {
		return reporting.New(cfg.Output, cfg.OutputFile)
	}
	return reporting.NewWriter(cfg.Output, reporting.NopWriteCloser(out))
}

func dialer(cfg config.GraphConfig, logger *zap.Logger) fsck.DialFunc {
	opts := graph.Options{DialTimeout: cfg.DialTimeout, Logger: logger}
	return func(ctx context.Context) (graph.Handle, error) {
		return graph.Dial(ctx, cfg.Endpoint, opts)
	}
}

// newRemediatorFunc picks how cleans delete resources. Self-tests and
// in-process graphs have no config API behind them, so they always write to
// the graph directly.
func newRemediatorFunc(cfg *config.Config, selfTest bool, logger *zap.Logger) (fsck.RemediatorFunc, error) {
	mode := cfg.Remediation.Mode
	if selfTest || strings.HasPrefix(cfg.Graph.Endpoint, "memory://") {
		mode = config.RemediationGraph
	}

	if mode == config.RemediationGraph {
		return func(h graph.Handle) (remediation.Remediator, error) {
			return remediation.NewGraphRemediator(h, logger)
		}, nil
	}

	client, err := remediation.NewAPIClient(remediation.APIConfig{
		BaseURL:   cfg.Remediation.APIURL,
		Token:     cfg.Remediation.Token,
		Timeout:   cfg.Remediation.Timeout,
		RateLimit: cfg.Remediation.RateLimit,
	}, logger)
	if err != nil {
		return nil, err
	}
	return func(graph.Handle) (remediation.Remediator, error) {
		return client, nil
	}, nil
}
