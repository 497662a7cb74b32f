package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics records status lookups and worker throughput.
type ImportMetrics struct {
	statusRequests *prometheus.CounterVec
	lookupSeconds  *prometheus.HistogramVec
	rowsTotal      *prometheus.CounterVec
	jobsTotal      *prometheus.CounterVec
}

func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	m := &ImportMetrics{
		statusRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_import_status_requests_total",
				Help: "Status lookups by job source and result.",
			},
			[]string{"source", "result"},
		),
		lookupSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_import_status_lookup_seconds",
				Help:    "Latency of job status lookups.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"source"},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_import_rows_total",
				Help: "Imported rows by outcome.",
			},
			[]string{"outcome"},
		),
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_import_jobs_total",
				Help: "Import job attempts by result.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.statusRequests, m.lookupSeconds, m.rowsTotal, m.jobsTotal)
	return m
}

func (m *ImportMetrics) ObserveStatusLookup(source, result string, elapsed time.Duration) {
	m.statusRequests.WithLabelValues(source, result).Inc()
	m.lookupSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *ImportMetrics) AddRows(outcome string, n int64) {
	if n <= 0 {
		return
	}
	m.rowsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *ImportMetrics) ObserveJob(result string) {
	m.jobsTotal.WithLabelValues(result).Inc()
}
