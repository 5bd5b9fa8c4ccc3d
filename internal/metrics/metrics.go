// Package metrics exposes request, response and queue-depth counters and
// gauges via prometheus client_golang, served over a loopback /metrics
// endpoint when --metrics-addr is set.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the metrics the dispatch core updates. It is safe for
// concurrent use by every connection and compute worker.
type Registry struct {
	RequestsTotal *prometheus.CounterVec
	ResponseBytes prometheus.Histogram
	InflightConns prometheus.Gauge
	QueueDepth    *prometheus.GaugeVec
	registry      *prometheus.Registry
}

// New builds a Registry with its own prometheus.Registry, so multiple test
// instances never collide on the default global registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qhttpd_requests_total",
			Help: "Requests handled, labeled by outcome.",
		}, []string{"outcome"}),
		ResponseBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "qhttpd_response_bytes",
			Help:    "Size of response bodies written to clients.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		InflightConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qhttpd_inflight_connections",
			Help: "Connections currently accepted and not yet closed.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qhttpd_compute_queue_depth",
			Help: "Approximate pending items on a compute worker's input queue.",
		}, []string{"worker"}),
	}
	reg.MustRegister(r.RequestsTotal, r.ResponseBytes, r.InflightConns, r.QueueDepth)
	return r
}

// Serve starts a loopback HTTP server exposing /metrics on addr, returning
// once the listener is bound. Call the returned shutdown func to stop it.
func (r *Registry) Serve(addr string) (shutdown func(context.Context) error, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = err
		}
	}()
	return srv.Shutdown, nil
}
