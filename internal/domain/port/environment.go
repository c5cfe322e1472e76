package port

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// Environment bundles the runtime services and session flags shared by all
// ports of a scope.
type Environment struct {
	logger     ports.Logger
	metrics    ports.MetricsCollector
	events     ports.EventPublisher
	cache      ports.PayloadCache
	converters ports.Converter

	filterMu sync.RWMutex
	filter   QuickFixFilter

	interactive    atomic.Bool
	recordMetaData atomic.Bool
}

// EnvOption configures an Environment.
type EnvOption func(*Environment)

// WithLogger sets the structured logger.
func WithLogger(l ports.Logger) EnvOption {
	return func(e *Environment) { e.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m ports.MetricsCollector) EnvOption {
	return func(e *Environment) { e.metrics = m }
}

// WithEvents sets the publisher used for structural change events.
func WithEvents(p ports.EventPublisher) EnvOption {
	return func(e *Environment) { e.events = p }
}

// WithCache sets the secondary payload cache.
func WithCache(c ports.PayloadCache) EnvOption {
	return func(e *Environment) { e.cache = c }
}

// WithConverters sets the converter used by typed data access and lenient
// compatibility checks.
func WithConverters(c ports.Converter) EnvOption {
	return func(e *Environment) { e.converters = c }
}

// WithQuickFixFilter installs the cross-cutting quick-fix filter.
func WithQuickFixFilter(f QuickFixFilter) EnvOption {
	return func(e *Environment) { e.filter = f }
}

// Interactive enables the secondary payload cache for the session.
func Interactive(on bool) EnvOption {
	return func(e *Environment) { e.interactive.Store(on) }
}

// RecordMetaData enables metadata derivation from real payloads.
func RecordMetaData(on bool) EnvOption {
	return func(e *Environment) { e.recordMetaData.Store(on) }
}

// NewEnvironment builds an Environment. Unset services fall back to no-ops.
func NewEnvironment(opts ...EnvOption) *Environment {
	env := &Environment{}
	for _, opt := range opts {
		if opt != nil {
			opt(env)
		}
	}
	if env.logger == nil {
		env.logger = nopLogger{}
	}
	return env
}

var defaultEnvironment = NewEnvironment()

// Logger returns the environment logger.
func (e *Environment) Logger() ports.Logger {
	if e == nil || e.logger == nil {
		return nopLogger{}
	}
	return e.logger
}

// Converters returns the configured converter or nil.
func (e *Environment) Converters() ports.Converter {
	if e == nil {
		return nil
	}
	return e.converters
}

// Cache returns the secondary payload cache or nil.
func (e *Environment) Cache() ports.PayloadCache {
	if e == nil {
		return nil
	}
	return e.cache
}

// SetInteractive toggles the interactive session flag.
func (e *Environment) SetInteractive(on bool) { e.interactive.Store(on) }

// IsInteractive reports whether payloads are mirrored into the secondary cache.
func (e *Environment) IsInteractive() bool { return e != nil && e.interactive.Load() }

// SetRecordMetaData toggles metadata derivation from real payloads.
func (e *Environment) SetRecordMetaData(on bool) { e.recordMetaData.Store(on) }

// IsRecordingMetaData reports whether real payloads refresh realMetaData.
func (e *Environment) IsRecordingMetaData() bool { return e != nil && e.recordMetaData.Load() }

// SetQuickFixFilter replaces the quick-fix filter. A nil filter keeps all fixes.
func (e *Environment) SetQuickFixFilter(f QuickFixFilter) {
	e.filterMu.Lock()
	e.filter = f
	e.filterMu.Unlock()
}

func (e *Environment) quickFixFilter() QuickFixFilter {
	if e == nil {
		return nil
	}
	e.filterMu.RLock()
	defer e.filterMu.RUnlock()
	return e.filter
}

func (e *Environment) inc(name string, labels map[string]string) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.IncCounter(context.Background(), name, labels)
}

func (e *Environment) observe(ctx context.Context, name string, value float64, labels map[string]string) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.ObserveHistogram(ctx, name, value, labels)
}

func (e *Environment) publish(event ports.DomainEvent) {
	if e == nil || e.events == nil {
		return
	}
	if err := e.events.Publish(context.Background(), event); err != nil {
		e.Logger().Warn(context.Background(), "event publish failed", "event_type", event.EventType(), "error", err)
	}
}

// Observe records a histogram sample through the environment's collector.
func (e *Environment) Observe(ctx context.Context, name string, value float64, labels map[string]string) {
	e.observe(ctx, name, value, labels)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...interface{}) {}
func (nopLogger) Info(context.Context, string, ...interface{})  {}
func (nopLogger) Warn(context.Context, string, ...interface{})  {}
func (nopLogger) Error(context.Context, string, ...interface{}) {}
func (n nopLogger) With(...interface{}) ports.Logger             { return n }
