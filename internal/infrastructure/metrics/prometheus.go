// Package metrics adapta ports.Metrics a contadores Prometheus.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/erp-tn-api/internal/application/ports"
)

var _ ports.Metrics = (*Prometheus)(nil)

// Prometheus colectores de numeración y cálculo fiscal.
type Prometheus struct {
	numbersIssued    *prometheus.CounterVec
	numberingFailed  *prometheus.CounterVec
	totalsComputed   *prometheus.CounterVec
	validationFailed *prometheus.CounterVec
}

// New crea y registra los colectores. registerer nil usa el registro por defecto.
func New(registerer prometheus.Registerer, app, env string) *Prometheus {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	app = strings.TrimSpace(app)
	if app == "" {
		app = "erp-tn"
	}
	env = strings.TrimSpace(env)
	if env == "" {
		env = "unknown"
	}
	constLabels := prometheus.Labels{"service": app, "env": env}

	m := &Prometheus{
		numbersIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "numbering_issued_total",
			Help:        "Números de documento emitidos por tipo.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		numberingFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "numbering_failures_total",
			Help:        "Reservas de número fallidas por tipo.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		totalsComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fiscal_totals_computed_total",
			Help:        "Cálculos de totales completados por tipo de documento.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		validationFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fiscal_validation_errors_total",
			Help:        "Entradas rechazadas por el motor fiscal, por campo.",
			ConstLabels: constLabels,
		}, []string{"field"}),
	}
	registerer.MustRegister(m.numbersIssued, m.numberingFailed, m.totalsComputed, m.validationFailed)
	return m
}

func (m *Prometheus) NumberIssued(kind string)     { m.numbersIssued.WithLabelValues(kind).Inc() }
func (m *Prometheus) NumberingFailed(kind string)  { m.numberingFailed.WithLabelValues(kind).Inc() }
func (m *Prometheus) TotalsComputed(kind string)   { m.totalsComputed.WithLabelValues(kind).Inc() }
func (m *Prometheus) ValidationFailed(field string) { m.validationFailed.WithLabelValues(field).Inc() }
