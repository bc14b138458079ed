// Package metrics exposes Prometheus metrics for the layout service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "topicweb"

// Load results
const (
	LoadOK     = "ok"
	LoadFailed = "failed"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation
	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
	Alpha        prometheus.Gauge
	Rebuilds     prometheus.Counter
	GraphNodes   prometheus.Gauge
	GraphEdges   prometheus.Gauge

	// Dataset
	DatasetLoads *prometheus.CounterVec

	// Streaming
	StreamClients prometheus.Gauge
	StreamDropped prometheus.Counter

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric registered, plus the Go
// runtime and process collectors
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{registry: reg}
	r.initSimulationMetrics()
	r.initStreamMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initSimulationMetrics() {
	f := promauto.With(r.registry)

	r.Ticks = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_ticks_total",
		Help:      "Total number of simulation steps",
	})
	r.TickDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_tick_duration_seconds",
		Help:      "Time spent computing one simulation step",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016, 0.05, 0.1},
	})
	r.Alpha = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "simulation_alpha",
		Help:      "Current heat of the running simulation",
	})
	r.Rebuilds = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graph_rebuilds_total",
		Help:      "Number of times the graph and simulation were rebuilt",
	})
	r.GraphNodes = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_nodes",
		Help:      "Nodes in the current snapshot",
	})
	r.GraphEdges = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_edges",
		Help:      "Edges in the current snapshot",
	})
	r.DatasetLoads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_loads_total",
		Help:      "Dataset load attempts by result",
	}, []string{"result"})
}

func (r *Registry) initStreamMetrics() {
	f := promauto.With(r.registry)

	r.StreamClients = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Connected frame stream clients",
	})
	r.StreamDropped = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_dropped_clients_total",
		Help:      "Stream clients disconnected for falling behind",
	})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// RecordTick records one simulation step
func (r *Registry) RecordTick(alpha float64, duration time.Duration) {
	r.Ticks.Inc()
	r.TickDuration.Observe(duration.Seconds())
	r.Alpha.Set(alpha)
}

// RecordRebuild records a new snapshot
func (r *Registry) RecordRebuild(nodes, edges int) {
	r.Rebuilds.Inc()
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

// RecordLoad records a dataset load attempt
func (r *Registry) RecordLoad(err error) {
	if err != nil {
		r.DatasetLoads.WithLabelValues(LoadFailed).Inc()
		return
	}
	r.DatasetLoads.WithLabelValues(LoadOK).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Gatherer returns the underlying Prometheus registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
