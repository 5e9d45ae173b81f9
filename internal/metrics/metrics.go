package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "medwatch"

// Collector is a prometheus.Collector that collects metrics about alert
// evaluation and the HTTP API.
type Collector struct {
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	alertsEmitted      *prometheus.CounterVec
	ruleFailures       *prometheus.CounterVec
	skippedRecords     *prometheus.CounterVec
	missedDoses        prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "evaluations_total",
				Help:      "The number of patient evaluations by outcome.",
			}, []string{"outcome"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "evaluation_duration_seconds",
				Help:      "The time taken to evaluate one patient.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		alertsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "alerts_emitted_total",
				Help:      "The number of alerts created or updated.",
			}, []string{"rule", "severity", "change"},
		),
		ruleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rule_failures_total",
				Help:      "The number of alert rules skipped because their input could not be read.",
			}, []string{"rule"},
		),
		skippedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "skipped_records_total",
				Help:      "The number of incomplete records excluded from evaluation.",
			}, []string{"kind"},
		),
		missedDoses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "doses_marked_missed_total",
				Help:      "The number of overdue doses marked missed by the batch job.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "The number of HTTP requests served.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "The time taken to serve HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.evaluations.Describe(ch)
	c.evaluationDuration.Describe(ch)
	c.alertsEmitted.Describe(ch)
	c.ruleFailures.Describe(ch)
	c.skippedRecords.Describe(ch)
	c.missedDoses.Describe(ch)
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.evaluations.Collect(ch)
	c.evaluationDuration.Collect(ch)
	c.alertsEmitted.Collect(ch)
	c.ruleFailures.Collect(ch)
	c.skippedRecords.Collect(ch)
	c.missedDoses.Collect(ch)
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
}

// ObserveEvaluation records one finished patient evaluation
func (c *Collector) ObserveEvaluation(outcome string, took time.Duration) {
	c.evaluations.WithLabelValues(outcome).Inc()
	c.evaluationDuration.Observe(took.Seconds())
}

// AlertEmitted counts a created or updated alert
func (c *Collector) AlertEmitted(rule, severity string, created bool) {
	change := "updated"
	if created {
		change = "created"
	}
	c.alertsEmitted.WithLabelValues(rule, severity, change).Inc()
}

// RuleFailed counts a rule whose input could not be read
func (c *Collector) RuleFailed(rule string) {
	c.ruleFailures.WithLabelValues(rule).Inc()
}

// RecordsSkipped counts incomplete records of the given kind
func (c *Collector) RecordsSkipped(kind string, n int) {
	if n <= 0 {
		return
	}
	c.skippedRecords.WithLabelValues(kind).Add(float64(n))
}

// DosesMarkedMissed counts doses moved from pending to missed
func (c *Collector) DosesMarkedMissed(n int64) {
	if n <= 0 {
		return
	}
	c.missedDoses.Add(float64(n))
}

// ObserveRequest records one served HTTP request
func (c *Collector) ObserveRequest(method, route, status string, took time.Duration) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
