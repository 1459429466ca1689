// Package metrics exposes Prometheus collectors for runs, tools and streams.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the service metrics behind its own registry so that
// several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	runsStarted    *prometheus.CounterVec
	runsFinished   *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
	proxyFallbacks prometheus.Counter
	activeStreams  prometheus.Gauge
	sessions       prometheus.GaugeFunc
}

// New creates a collector. sessionCount may be nil.
func New(sessionCount func() int) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.runsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safebite_runs_started_total",
		Help: "Runs started, by pipeline mode.",
	}, []string{"mode"})
	c.runsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safebite_runs_finished_total",
		Help: "Runs that reached a terminal state, by outcome.",
	}, []string{"outcome"})
	c.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "safebite_run_duration_seconds",
		Help:    "Wall time from run start to terminal state.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	c.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safebite_tool_calls_total",
		Help: "Tool router invocations, by tool and outcome.",
	}, []string{"tool", "outcome"})
	c.proxyFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "safebite_proxy_fallbacks_total",
		Help: "Remote backend failures that fell back to the local pipeline.",
	})
	c.activeStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "safebite_active_streams",
		Help: "Currently attached stream observers.",
	})

	c.registry.MustRegister(
		c.runsStarted,
		c.runsFinished,
		c.runDuration,
		c.toolCalls,
		c.proxyFallbacks,
		c.activeStreams,
		collectors.NewGoCollector(),
	)

	if sessionCount != nil {
		c.sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "safebite_sessions",
			Help: "Sessions held in memory.",
		}, func() float64 { return float64(sessionCount()) })
		c.registry.MustRegister(c.sessions)
	}
	return c
}

// RunStarted records a run start.
func (c *Collector) RunStarted(mode string) {
	if c == nil {
		return
	}
	c.runsStarted.WithLabelValues(mode).Inc()
}

// RunFinished records a terminal outcome ("final" or "error").
func (c *Collector) RunFinished(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.runsFinished.WithLabelValues(outcome).Inc()
	c.runDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ToolCall records a tool router invocation.
func (c *Collector) ToolCall(tool, outcome string) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// ProxyFallback records a failed delegation to the remote backend.
func (c *Collector) ProxyFallback() {
	if c == nil {
		return
	}
	c.proxyFallbacks.Inc()
}

// StreamOpened increments the attached stream gauge.
func (c *Collector) StreamOpened() {
	if c == nil {
		return
	}
	c.activeStreams.Inc()
}

// StreamClosed decrements the attached stream gauge.
func (c *Collector) StreamClosed() {
	if c == nil {
		return
	}
	c.activeStreams.Dec()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
