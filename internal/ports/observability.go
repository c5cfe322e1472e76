package ports

import "context"

// Standard metric names recorded by the port graph.
const (
	// MetricConnections counts connection attempts by result
	// (connected|noop|busy|scope_mismatch|locked).
	MetricConnections = "portgraph_connections_total"
	// MetricDisconnections counts successful disconnections.
	MetricDisconnections = "portgraph_disconnections_total"
	// MetricDeliveries counts payload and metadata deliveries by kind (data|metadata).
	MetricDeliveries = "portgraph_deliveries_total"
	// MetricMetaDataErrors counts metadata errors recorded on ports by severity.
	MetricMetaDataErrors = "portgraph_metadata_errors_total"
	// MetricCacheLookups counts payload reads by tier (strong|secondary|miss).
	MetricCacheLookups = "portgraph_cache_lookups_total"
	// MetricCacheEvictions counts secondary cache evictions.
	MetricCacheEvictions = "portgraph_cache_evictions_total"
	// MetricRepairs counts guided repairs by choice.
	MetricRepairs = "portgraph_repairs_total"
	// MetricCacheEntries is a gauge of secondary cache occupancy.
	MetricCacheEntries = "portgraph_cache_entries"
	// MetricPropagationSeconds observes the duration of metadata propagation passes.
	MetricPropagationSeconds = "portgraph_metadata_propagation_seconds"
)

// MetricsCollector records quantitative observability signals. Adapters back
// onto Prometheus; the domain only sees this interface.
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}
