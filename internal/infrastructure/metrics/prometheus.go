// Package metrics backs ports.MetricsCollector with Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

const defaultNamespace = "portgraph"

// ErrInvalidConfig is returned when the collector configuration is invalid.
var ErrInvalidConfig = errors.New("invalid metrics configuration")

type kind int

const (
	counter kind = iota
	gauge
	histogram
)

type definition struct {
	kind   kind
	help   string
	labels []string
}

// definitions lists every metric the port graph records, keyed by the
// canonical names in the ports package.
var definitions = map[string]definition{
	ports.MetricConnections:        {kind: counter, help: "Connection attempts by result.", labels: []string{"result"}},
	ports.MetricDisconnections:     {kind: counter, help: "Successful disconnections."},
	ports.MetricDeliveries:         {kind: counter, help: "Payload and metadata deliveries by kind.", labels: []string{"kind"}},
	ports.MetricMetaDataErrors:     {kind: counter, help: "Metadata errors recorded on ports by severity.", labels: []string{"severity"}},
	ports.MetricCacheLookups:       {kind: counter, help: "Payload reads by tier.", labels: []string{"tier"}},
	ports.MetricCacheEvictions:     {kind: counter, help: "Secondary payload cache evictions."},
	ports.MetricRepairs:            {kind: counter, help: "Guided repairs by choice.", labels: []string{"choice"}},
	ports.MetricCacheEntries:       {kind: gauge, help: "Entries held by the secondary payload cache."},
	ports.MetricPropagationSeconds: {kind: histogram, help: "Duration of metadata propagation passes."},
}

// Config configures the collector.
type Config struct {
	// Namespace replaces the "portgraph" prefix of every metric name.
	Namespace string
	// Registry receives the collectors. Defaults to a fresh registry so
	// several collectors can coexist in one process.
	Registry prometheus.Registerer
	// Buckets for the propagation histogram. Defaults to prometheus.DefBuckets.
	Buckets []float64
	// Logger reports samples for unknown metric names.
	Logger ports.Logger
}

// Collector implements ports.MetricsCollector.
type Collector struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	logger   ports.Logger

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	warnOnce sync.Map
}

// New registers the port graph metrics and returns the collector.
func New(cfg Config) (*Collector, error) {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	if strings.ContainsAny(namespace, " -.") {
		return nil, fmt.Errorf("%w: namespace %q", ErrInvalidConfig, namespace)
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	c := &Collector{
		logger:     cfg.Logger,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	if cfg.Registry == nil {
		reg := prometheus.NewRegistry()
		c.registry, c.gatherer = reg, reg
	} else {
		c.registry = cfg.Registry
		if g, ok := cfg.Registry.(prometheus.Gatherer); ok {
			c.gatherer = g
		}
	}

	for name, def := range definitions {
		fqName := namespace + strings.TrimPrefix(name, defaultNamespace)
		var collector prometheus.Collector
		switch def.kind {
		case counter:
			vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: fqName, Help: def.help}, def.labels)
			c.counters[name] = vec
			collector = vec
		case gauge:
			vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: fqName, Help: def.help}, def.labels)
			c.gauges[name] = vec
			collector = vec
		case histogram:
			vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: fqName, Help: def.help, Buckets: buckets}, def.labels)
			c.histograms[name] = vec
			collector = vec
		}
		if err := c.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register %s: %w", fqName, err)
		}
	}
	return c, nil
}

// Gatherer exposes the registry for scraping or snapshots. It is nil when the
// configured registerer cannot gather.
func (c *Collector) Gatherer() prometheus.Gatherer { return c.gatherer }

// IncCounter implements ports.MetricsCollector.
func (c *Collector) IncCounter(ctx context.Context, name string, labels map[string]string) {
	vec, ok := c.counters[name]
	if !ok {
		c.unknown(ctx, name)
		return
	}
	vec.With(fill(definitions[name].labels, labels)).Inc()
}

// SetGauge implements ports.MetricsCollector.
func (c *Collector) SetGauge(ctx context.Context, name string, value float64, labels map[string]string) {
	vec, ok := c.gauges[name]
	if !ok {
		c.unknown(ctx, name)
		return
	}
	vec.With(fill(definitions[name].labels, labels)).Set(value)
}

// ObserveHistogram implements ports.MetricsCollector.
func (c *Collector) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
	vec, ok := c.histograms[name]
	if !ok {
		c.unknown(ctx, name)
		return
	}
	vec.With(fill(definitions[name].labels, labels)).Observe(value)
}

func (c *Collector) unknown(ctx context.Context, name string) {
	if c.logger == nil {
		return
	}
	if _, seen := c.warnOnce.LoadOrStore(name, struct{}{}); !seen {
		c.logger.Warn(ctx, "sample for unknown metric dropped", "metric", name)
	}
}

// fill maps labels onto the declared label names; undeclared labels are
// dropped and missing ones become empty.
func fill(names []string, labels map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		out[n] = labels[n]
	}
	return out
}

var _ ports.MetricsCollector = (*Collector)(nil)
