// File: internal/fsck/metrics.go
package fsck

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsPrefix prefixes every check gauge.
const DefaultMetricsPrefix = "gremlin_fsck"

// Gauges holds one gauge per check, created on first observation and never
// removed.
type Gauges struct {
	prefix     string
	registerer prometheus.Registerer
	mu         sync.Mutex
	gauges     map[string]prometheus.Gauge
}

// NewGauges registers gauges on registerer as they appear. A nil registerer
// keeps them unexported.
func NewGauges(prefix string, registerer prometheus.Registerer) *Gauges {
	return &Gauges{
		prefix:     prefix,
		registerer: registerer,
		gauges:     make(map[string]prometheus.Gauge),
	}
}

// Set records the last total of a check. help is used when the gauge is created.
func (g *Gauges) Set(check, help string, value float64) {
	g.get(check, help).Set(value)
}

// Lookup returns the gauge of a check if it was observed.
func (g *Gauges) Lookup(check string) (prometheus.Gauge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gauge, ok := g.gauges[check]
	return gauge, ok
}

// MetricName returns the exported name of a check's gauge.
func (g *Gauges) MetricName(check string) string {
	name := check
	if g.prefix != "" {
		name = g.prefix + "_" + check
	}
	return sanitizeMetricName(name)
}

func (g *Gauges) get(check, help string) prometheus.Gauge {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gauge, ok := g.gauges[check]; ok {
		return gauge
	}
	if help == "" {
		help = check
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: g.MetricName(check),
		Help: help,
	})
	if g.registerer != nil {
		if err := g.registerer.Register(gauge); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
					gauge = existing
				}
			}
		}
	}
	g.gauges[check] = gauge
	return gauge
}

// sanitizeMetricName maps anything outside [a-zA-Z0-9_:] to an underscore.
func sanitizeMetricName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
