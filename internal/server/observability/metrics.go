// Package observability holds the Prometheus metrics of the account
// service and the HTTP handlers exposing them with the health probes.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess            = "success"
	ResultInvalidInput       = "invalid_input"
	ResultDuplicate          = "duplicate"
	ResultInvalidCredentials = "invalid_credentials"
	ResultServerFault        = "server_fault"
)

// Metrics are the account counters. A nil *Metrics records nothing.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Authentications *prometheus.CounterVec
	GateRejections  *prometheus.CounterVec
}

// NewMetrics creates the account counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_accounts_registrations_total",
				Help: "Total number of registration attempts by result",
			},
			[]string{"result"},
		),
		Authentications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_accounts_authentications_total",
				Help: "Total number of authentication attempts by result",
			},
			[]string{"result"},
		),
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_auth_gate_rejections_total",
				Help: "Total number of protected requests rejected by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.Registrations, m.Authentications, m.GateRejections)
	return m
}

func (m *Metrics) ObserveRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAuthentication(result string) {
	if m == nil {
		return
	}
	m.Authentications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveGateRejection(reason string) {
	if m == nil {
		return
	}
	m.GateRejections.WithLabelValues(reason).Inc()
}

// NewRegistry returns a private registry with the Go and process
// collectors and the account metrics registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, NewMetrics(reg)
}

// MetricsHandler serves reg in the Prometheus exposition format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ReadinessChecker reports whether the service can serve requests.
type ReadinessChecker func(ctx context.Context) error

// DatabaseReadiness is ready when p answers a ping within timeout.
func DatabaseReadiness(p Pinger, timeout time.Duration) ReadinessChecker {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return p.PingContext(ctx)
	}
}
