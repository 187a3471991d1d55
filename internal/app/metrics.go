package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dshills/lazyrc/internal/plugin"
)

// Metrics exports activation counters to Prometheus.
//
// Each Metrics owns its registry so several instances can coexist in one
// process.
type Metrics struct {
	registry *prometheus.Registry

	activations *prometheus.CounterVec
	triggers    *prometheus.CounterVec
	bindings    prometheus.Counter
	setup       prometheus.Histogram
	active      prometheus.Gauge

	server *http.Server
}

// NewMetrics creates and registers the lazyrc collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lazyrc",
			Name:      "activations_total",
			Help:      "Extension activations by result.",
		}, []string{"result"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lazyrc",
			Name:      "triggers_total",
			Help:      "Fired triggers by kind.",
		}, []string{"kind"}),
		bindings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lazyrc",
			Name:      "bindings_total",
			Help:      "Trigger bindings added at runtime.",
		}),
		setup: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lazyrc",
			Name:      "activation_duration_seconds",
			Help:      "Time from activation start to Active, including install and dependencies.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lazyrc",
			Name:      "extensions_active",
			Help:      "Extensions currently Active.",
		}),
	}
	m.registry.MustRegister(m.activations, m.triggers, m.bindings, m.setup, m.active)
	return m
}

// Observe records one engine event. It is a plugin.EventHandler.
func (m *Metrics) Observe(event plugin.ManagerEvent) {
	switch event.Type {
	case plugin.EventActivated:
		m.activations.WithLabelValues("activated").Inc()
		m.setup.Observe(event.Duration.Seconds())
		m.active.Inc()
	case plugin.EventFailed:
		m.activations.WithLabelValues("failed").Inc()
	case plugin.EventTriggerFired:
		m.triggers.WithLabelValues(event.Trigger.Kind.String()).Inc()
	case plugin.EventTriggerBound:
		m.bindings.Inc()
	}
}

// Registry returns the Prometheus registry holding the lazyrc collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics in the background. It returns
// the bound address, which differs from addr when addr uses port 0.
func (m *Metrics) Serve(addr string, logger zerolog.Logger) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("address", ln.Addr().String()).Msg("serving metrics")
	return ln.Addr().String(), nil
}

// Close stops the metrics server if it is running.
func (m *Metrics) Close(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown(ctx)
	m.server = nil
	return err
}
