package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics agrupa los colectores del sitio: envíos de formularios, llamadas upstream y validación.
type Metrics struct {
	submissionsTotal  *prometheus.CounterVec
	upstreamTotal     *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	validationFailure *prometheus.CounterVec
	sessionsOpen      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "forms",
			Name:      "submissions_total",
			Help:      "Form submissions sent upstream, by kind and outcome",
		}, []string{"kind", "status"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to the CMS and contact backends",
		}, []string{"resource", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vetclinic",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the CMS and contact backends",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		validationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "forms",
			Name:      "validation_failures_total",
			Help:      "Field errors reported on full-form validation",
		}, []string{"form", "field"}),
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vetclinic",
			Subsystem: "appointments",
			Name:      "sessions_open",
			Help:      "Mounted appointment form sessions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.upstreamTotal, m.upstreamLatency, m.validationFailure, m.sessionsOpen)
	return m
}

func (m *Metrics) ObserveSubmission(kind string, ok bool) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, statusLabel(ok)).Inc()
}

func (m *Metrics) ObserveUpstream(resource string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(resource, statusLabel(ok)).Inc()
	m.upstreamLatency.WithLabelValues(resource).Observe(seconds)
}

func (m *Metrics) ObserveValidationFailure(form, field string) {
	if m == nil {
		return
	}
	m.validationFailure.WithLabelValues(form, field).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpen.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsOpen.Dec()
}

func statusLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
