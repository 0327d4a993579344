// Package metrics exposes Prometheus counters and histograms for the analysis
// pipeline. All methods are safe on a nil *Metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blocksafe"

type Metrics struct {
	analysesTotal   *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec
	oracleTotal     *prometheus.CounterVec
	oracleLatency   *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
	engagements     *prometheus.CounterVec
	engagementTurns prometheus.Histogram
	rateLimited     *prometheus.CounterVec
}

// New registers the collectors on reg, or on the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analyses_total",
			Help:      "Total analyses by mode, scam flag and risk tier",
		}, []string{"mode", "is_scam", "tier"}),
		analysisLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_latency_seconds",
			Help:      "End-to-end latency of a single analysis",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		oracleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total language model calls by operation and outcome",
		}, []string{"operation", "status"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_latency_seconds",
			Help:      "Latency of language model calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"operation"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "cache_lookups_total",
			Help:      "Verdict cache lookups by result",
		}, []string{"result"}),
		engagements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "honeypot",
			Name:      "engagements_total",
			Help:      "Completed honeypot engagements by termination reason",
		}, []string{"reason"}),
		engagementTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "honeypot",
			Name:      "engagement_turns",
			Help:      "Turns completed per honeypot engagement",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 10},
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"window"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.analysesTotal, m.analysisLatency,
		m.oracleTotal, m.oracleLatency,
		m.cacheTotal,
		m.engagements, m.engagementTurns,
		m.rateLimited,
	)
	return m
}

func (m *Metrics) ObserveAnalysis(mode string, isScam bool, tier string, seconds float64) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(mode, strconv.FormatBool(isScam), tier).Inc()
	m.analysisLatency.WithLabelValues(mode).Observe(seconds)
}

// ObserveOracle records one language model call. Satisfies oracle.Observer.
func (m *Metrics) ObserveOracle(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.oracleTotal.WithLabelValues(operation, status).Inc()
	m.oracleLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEngagement(reason string, turns int) {
	if m == nil {
		return
	}
	m.engagements.WithLabelValues(reason).Inc()
	m.engagementTurns.Observe(float64(turns))
}

func (m *Metrics) ObserveRateLimited(window string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(window).Inc()
}
