package isolation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa los contadores del aislamiento. Un *Metrics nil no registra nada.
type Metrics struct {
	rejections  *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

// NewMetrics crea y registra los contadores en reg (si reg no es nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zentral",
			Subsystem: "isolation",
			Name:      "cross_tenant_rejections_total",
			Help:      "Escrituras rechazadas por pertenecer a otra empresa.",
		}, []string{"op", "table"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zentral",
			Subsystem: "tenancy",
			Name:      "resolutions_total",
			Help:      "Resoluciones de empresa efectiva por origen.",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.rejections, m.resolutions)
	}
	return m
}

// CrossTenantRejected cuenta un rechazo.
func (m *Metrics) CrossTenantRejected(op, table string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, table).Inc()
}

// TenantResolved cuenta una resolución por origen.
func (m *Metrics) TenantResolved(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

// Rejections expone el contador de rechazos (tests y dashboards).
func (m *Metrics) Rejections() *prometheus.CounterVec { return m.rejections }
