// File: internal/fsck/clean_runner.go
package fsck

import (
	"context"
	"fmt"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/remediation"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
	"go.uber.org/zap"
)

// CleanRunner invokes the clean paired with a check on its flagged resources.
type CleanRunner struct {
	registry *Registry
	logger   *zap.Logger
}

// NewCleanRunner builds a runner over registry.
func NewCleanRunner(registry *Registry, logger *zap.Logger) *CleanRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanRunner{registry: registry, logger: logger.Named("clean_runner")}
}

// Run repairs resources with the clean named like the check. It returns
// false, and does nothing, when no clean is registered or nothing is flagged.
// A failing repair yields a report with Success false; Run never panics.
func (r *CleanRunner) Run(ctx context.Context, name string, resources []resource.Resource, rem remediation.Remediator) (*ExecutionReport, bool) {
	if len(resources) == 0 {
		return nil, false
	}
	clean, err := r.registry.Clean(name)
	if err != nil {
		return nil, false
	}
	logger := r.logger.With(zap.String("clean", name), zap.Int("resources", len(resources)))
	logger.Info("Cleaning")

	env := &CleanEnv{Remediator: rem}
	start := time.Now()
	err = repair(ctx, clean, env, resources)
	elapsed := time.Since(start)

	if err != nil {
		logger.Error("Clean failed", zap.Error(err))
		report := failureReport(ReportClean, name, "", err, elapsed)
		report.Lines = env.Lines()
		return report, true
	}

	logger.Info("Clean done", zap.Int("actions", len(env.Lines())), zap.Duration("duration", elapsed))
	return &ExecutionReport{
		Type:     ReportClean,
		Name:     name,
		Total:    len(env.Lines()),
		Lines:    env.Lines(),
		Output:   env.output(),
		Success:  true,
		Duration: elapsed,
	}, true
}

func repair(ctx context.Context, clean CleanUnit, env *CleanEnv, resources []resource.Resource) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("clean %s panicked: %v", clean.Name, p)
		}
	}()
	if env.Remediator == nil {
		return fmt.Errorf("clean %s requires a remediator", clean.Name)
	}
	return clean.Repair(ctx, env, resources)
}
