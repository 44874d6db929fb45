package alerts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricReportsTotal          = "fire_alert_reports_total"
	MetricPipelineDuration      = "fire_alert_pipeline_duration_seconds"
	MetricCandidatesTotal       = "fire_alert_candidates_total"
	MetricFilteredTotal         = "fire_alert_filtered_total"
	MetricRecipientsTotal       = "fire_alert_recipients_total"
	MetricDeliveriesTotal       = "fire_alert_deliveries_total"
	MetricDeliveryFailuresTotal = "fire_alert_delivery_failures_total"
	MetricFallbackScansTotal    = "fire_alert_fallback_scans_total"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	reports          *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	candidates       *prometheus.CounterVec
	filtered         *prometheus.CounterVec
	recipients       prometheus.Counter
	deliveries       *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	fallbackScans    *prometheus.CounterVec
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReportsTotal,
				Help: "Fire reports processed, by final status",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPipelineDuration,
				Help:    "Time from trigger to last delivery attempt, by final status",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCandidatesTotal,
				Help: "Candidates collected before filtering, by source",
			},
			[]string{"source"},
		),
		filtered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFilteredTotal,
				Help: "Candidates dropped by the recipient filter, by reason",
			},
			[]string{"reason"},
		),
		recipients: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricRecipientsTotal,
				Help: "Recipients selected across all reports",
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDeliveriesTotal,
				Help: "Push submissions, by outcome",
			},
			[]string{"outcome"},
		),
		deliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDeliveryFailuresTotal,
				Help: "Failed push submissions, by failure reason",
			},
			[]string{"reason"},
		),
		fallbackScans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFallbackScansTotal,
				Help: "User registry fallback scans, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.reports,
		m.duration,
		m.candidates,
		m.filtered,
		m.recipients,
		m.deliveries,
		m.deliveryFailures,
		m.fallbackScans,
	}
}

// Observe records one finished pipeline run.
func (m *Metrics) Observe(r *Result, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}

	status := string(r.Status)
	m.reports.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())

	if r.Candidates > 0 {
		m.candidates.WithLabelValues(string(r.CandidateSource)).Add(float64(r.Candidates))
	}
	if r.UsedFallback {
		outcome := OutcomeSuccess
		if r.FallbackError != "" {
			outcome = OutcomeFailure
		}
		m.fallbackScans.WithLabelValues(outcome).Inc()
	}
	for reason, n := range r.Filtered {
		m.filtered.WithLabelValues(string(reason)).Add(float64(n))
	}

	m.recipients.Add(float64(r.Recipients))

	if r.Sent > 0 {
		m.deliveries.WithLabelValues(OutcomeSuccess).Add(float64(r.Sent))
	}
	if r.Failed > 0 {
		m.deliveries.WithLabelValues(OutcomeFailure).Add(float64(r.Failed))
	}
	for reason, n := range r.FailureReasons {
		m.deliveryFailures.WithLabelValues(string(reason)).Add(float64(n))
	}
}
