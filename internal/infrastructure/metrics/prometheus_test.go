package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

func TestCollectorRecordsSamples(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	ctx := context.Background()

	c.IncCounter(ctx, ports.MetricConnections, map[string]string{"result": "connected", "ignored": "x"})
	c.IncCounter(ctx, ports.MetricConnections, map[string]string{"result": "connected"})
	c.IncCounter(ctx, ports.MetricDisconnections, nil)
	c.SetGauge(ctx, ports.MetricCacheEntries, 7, nil)
	c.ObserveHistogram(ctx, ports.MetricPropagationSeconds, 0.01, nil)
	c.IncCounter(ctx, "portgraph_unknown_total", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.counters[ports.MetricConnections].WithLabelValues("connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.counters[ports.MetricDisconnections].WithLabelValues()))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.gauges[ports.MetricCacheEntries].WithLabelValues()))
	assert.Equal(t, 1, testutil.CollectAndCount(c.histograms[ports.MetricPropagationSeconds]))

	count, err := testutil.GatherAndCount(c.Gatherer(), "portgraph_connections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollectorNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(Config{Namespace: "editor", Registry: reg})
	require.NoError(t, err)
	c.IncCounter(context.Background(), ports.MetricRepairs, map[string]string{"choice": "keep"})

	count, err := testutil.GatherAndCount(reg, "editor_repairs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = New(Config{Namespace: "editor", Registry: reg})
	require.Error(t, err, "duplicate registration")

	_, err = New(Config{Namespace: "bad-name"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestCollectorObservesPortGraph(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	p := stage.NewProcess("metrics", port.NewEnvironment(port.WithMetrics(c)))
	a, err := p.AddStage("a")
	require.NoError(t, err)
	b, err := p.AddStage("b")
	require.NoError(t, err)
	out, err := a.Outputs().CreatePort("out")
	require.NoError(t, err)
	in, err := b.Inputs().CreatePort("in")
	require.NoError(t, err)
	in.AddPrecondition(port.RequireType[int]())

	require.NoError(t, out.ConnectTo(in))
	require.NoError(t, out.ConnectTo(in))
	require.NoError(t, p.PropagateMetaData(context.Background()))

	connections := c.counters[ports.MetricConnections]
	assert.Equal(t, 1.0, testutil.ToFloat64(connections.WithLabelValues("connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connections.WithLabelValues("noop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.counters[ports.MetricMetaDataErrors].WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.histograms[ports.MetricPropagationSeconds]))
}
