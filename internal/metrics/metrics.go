// Package metrics exposes the runtime instruments of the gauge engine over
// Prometheus.
package metrics

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the engine's instruments. A nil *Set disables instrumentation.
type Set struct {
	FramesTotal       prometheus.Counter
	FramesSkipped     prometheus.Counter
	RenderSeconds     prometheus.Histogram
	TicksTotal        prometheus.Counter
	RequestsTotal     prometheus.Counter
	RequestsCoalesced prometheus.Counter
}

// New registers the instruments on a fresh registry and returns both.
func New() (*Set, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	s := &Set{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipgauge_frames_total",
			Help: "Frames rendered across all displays.",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipgauge_frames_skipped_total",
			Help: "Frames skipped due to a draw error or panic.",
		}),
		RenderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipgauge_render_seconds",
			Help:    "Wall time of one display frame.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipgauge_ticks_total",
			Help: "Ticks applied to market profiles.",
		}),
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipgauge_render_requests_total",
			Help: "Render requests received.",
		}),
		RequestsCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipgauge_render_requests_coalesced_total",
			Help: "Render requests merged into an already pending frame.",
		}),
	}
	reg.MustRegister(
		s.FramesTotal, s.FramesSkipped, s.RenderSeconds,
		s.TicksTotal, s.RequestsTotal, s.RequestsCoalesced,
	)
	return s, reg
}

// Server exposes a registry on /metrics.
type Server struct {
	addr string
	reg  *prometheus.Registry
}

// NewServer creates a metrics listener on the given port.
func NewServer(port int, reg *prometheus.Registry) *Server {
	return &Server{addr: fmt.Sprintf(":%d", port), reg: reg}
}

// Start serves in the background; errors only surface in logs at shutdown.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(s.addr, mux); err != nil {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
}
