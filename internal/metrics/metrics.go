// Package metrics exposes Prometheus counters for wizard traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const namespace = "insurance_desk"

// Metrics implements engine.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	sessions       *prometheus.GaugeVec
	requests       *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_transitions_total",
				Help:      "Step transitions by flow, operation and result",
			},
			[]string{"flow", "op", "result"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_submissions_total",
				Help:      "Submit attempts by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		submitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wizard_sink_duration_seconds",
				Help:      "Time spent in the persistence sink",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"flow"},
		),
		sessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "wizard_sessions",
				Help:      "Open wizard sessions by flow",
			},
			[]string{"flow"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests by route and status",
			},
			[]string{"route", "status"},
		),
	}

	registry.MustRegister(
		m.transitions,
		m.submissions,
		m.submitDuration,
		m.sessions,
		m.requests,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Transition(flow, op string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.transitions.WithLabelValues(flow, op, result).Inc()
}

func (m *Metrics) Submitted(flow, outcome string, elapsed time.Duration) {
	m.submissions.WithLabelValues(flow, outcome).Inc()
	if elapsed > 0 {
		m.submitDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SessionOpened(flow string) {
	m.sessions.WithLabelValues(flow).Inc()
}

func (m *Metrics) SessionClosed(flow string) {
	m.sessions.WithLabelValues(flow).Dec()
}

func (m *Metrics) Request(route string, status int) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
