package config

import (
	"fmt"
	"io"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/cache"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/convert"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/metrics"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// Runtime bundles the services built from Settings.
type Runtime struct {
	Settings   Settings
	Logger     ports.Logger
	Metrics    *metrics.Collector
	Events     *events.LoggingPublisher
	Cache      *cache.PayloadCache
	Converters *convert.Registry
	Env        *port.Environment
}

// RuntimeOptions overrides parts of the runtime, mostly for tests and the CLI.
type RuntimeOptions struct {
	// LogWriter receives log output. Defaults to stderr.
	LogWriter io.Writer
	// Logger replaces the logger built from the settings.
	Logger ports.Logger
	// Converters are registered ahead of the built-in map decoder.
	Converters []ports.Converter
}

// Environment builds the runtime services described by s and the
// port.Environment wired to them.
func (s Settings) Environment(opts RuntimeOptions) (*Runtime, error) {
	rt := &Runtime{Settings: s, Logger: opts.Logger}
	if rt.Logger == nil {
		l, err := logging.New(logging.Options{
			Writer:        opts.LogWriter,
			Level:         s.LogLevel,
			HumanReadable: s.HumanReadable,
			Layer:         "domain",
		})
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		rt.Logger = l
	}

	envOpts := []port.EnvOption{
		port.WithLogger(rt.Logger),
		port.Interactive(s.Interactive),
		port.RecordMetaData(s.RecordMetaData),
	}

	cacheOpts := []cache.Option{cache.WithLogger(rt.Logger)}
	if s.Metrics.Enabled {
		collector, err := metrics.New(metrics.Config{Namespace: s.Metrics.Namespace, Logger: rt.Logger})
		if err != nil {
			return nil, fmt.Errorf("build metrics: %w", err)
		}
		rt.Metrics = collector
		envOpts = append(envOpts, port.WithMetrics(collector))
		cacheOpts = append(cacheOpts, cache.WithMetrics(collector))
	}

	c, err := cache.New(s.Cache.Capacity, cacheOpts...)
	if err != nil {
		return nil, err
	}
	rt.Cache = c
	envOpts = append(envOpts, port.WithCache(c))

	rt.Events = events.NewLoggingPublisher(rt.Logger.With("component", "events"))
	envOpts = append(envOpts, port.WithEvents(rt.Events))

	rt.Converters = convert.NewRegistry(opts.Converters...)
	rt.Converters.Register(convert.MapDecoder{})
	envOpts = append(envOpts, port.WithConverters(rt.Converters))

	if len(s.QuickFixes.DisallowStages) > 0 {
		envOpts = append(envOpts, port.WithQuickFixFilter(port.DisallowStageTypes(s.QuickFixes.DisallowStages...)))
	}

	rt.Env = port.NewEnvironment(envOpts...)
	return rt, nil
}

// RepairConfig returns the repair configuration for non-interactive use:
// the configured choice answers every prompt.
func (rt *Runtime) RepairConfig(inserter port.FanOutInserter) port.RepairConfig {
	return port.RepairConfig{
		Presenter: port.AutoPresenter{Choice: rt.Settings.RepairChoice()},
		Inserter:  inserter,
		Timeout:   rt.Settings.Repair.Timeout,
	}
}
