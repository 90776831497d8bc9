package middleware

import (
	"context"
	"time"

	"github.com/loomwork/loom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics for pipeline invocations.
type Collector struct {
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	InFlight           prometheus.Gauge
}

// NewCollector creates a collector registered with reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry, or a private
// registry in tests to avoid global state.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loom",
				Name:      "invocations_total",
				Help:      "Total number of pipeline invocations",
			},
			[]string{"function", "kind", "status"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "loom",
				Name:      "invocation_duration_seconds",
				Help:      "Pipeline invocation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"function", "kind"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "loom",
				Name:      "invocations_in_flight",
				Help:      "Number of invocations currently executing",
			},
		),
	}
}

// Metrics returns a middleware that records every invocation in c.
func Metrics(c *Collector) loom.Middleware {
	return func(ctx context.Context, env loom.Env, next loom.Next) (any, error) {
		start := time.Now()
		c.InFlight.Inc()
		defer c.InFlight.Dec()

		out, err := next(ctx, nil)

		function, kind := invocationLabels(ctx)
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.InvocationsTotal.WithLabelValues(function, kind, status).Inc()
		c.InvocationDuration.WithLabelValues(function, kind).Observe(time.Since(start).Seconds())
		return out, err
	}
}

// invocationLabels keeps label cardinality bounded: anonymous callables all
// share one function label.
func invocationLabels(ctx context.Context) (function, kind string) {
	invocation, ok := loom.FromInvocationContext(ctx)
	if !ok {
		return "anonymous", ""
	}
	if invocation.Name == "" {
		return "anonymous", string(invocation.Kind)
	}
	return invocation.Name, string(invocation.Kind)
}
