package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effects_transactions_analyzed_total",
		Help: "Total number of transactions analyzed, by outcome",
	}, []string{"outcome"})

	operationsAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "effects_operations_analyzed_total",
		Help: "Total number of operations analyzed",
	})

	effectsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effects_emitted_total",
		Help: "Total number of effects emitted, by effect type",
	}, []string{"type"})

	analysisErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effects_analysis_errors_total",
		Help: "Total number of failed analyses, by error kind",
	}, []string{"kind"})

	sacLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effects_sac_lookups_total",
		Help: "Asset contract mapping lookups, by resolution source",
	}, []string{"source"})

	analysisDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "effects_analysis_duration_seconds",
		Help:    "Time taken to analyze a transaction",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	sacCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "effects_sac_cache_entries",
		Help: "Number of entries held by the asset contract cache",
	})
)

// IncrementTransactionsAnalyzed counts an analyzed transaction.
// Outcome is "success", "failed", "ephemeral" or "error".
func IncrementTransactionsAnalyzed(outcome string) {
	transactionsAnalyzedTotal.WithLabelValues(outcome).Inc()
}

// AddOperationsAnalyzed adds to the analyzed operation counter
func AddOperationsAnalyzed(count int) {
	operationsAnalyzedTotal.Add(float64(count))
}

// IncrementEffectsEmitted counts one emitted effect of the given type
func IncrementEffectsEmitted(effectType string) {
	effectsEmittedTotal.WithLabelValues(effectType).Inc()
}

// IncrementAnalysisErrors counts a failed analysis
func IncrementAnalysisErrors(kind string) {
	analysisErrorsTotal.WithLabelValues(kind).Inc()
}

// IncrementSACLookups counts an asset contract mapping resolved from
// "tx", "cache", "derived" or "mismatch".
func IncrementSACLookups(source string) {
	sacLookupsTotal.WithLabelValues(source).Inc()
}

// ObserveAnalysisDuration records analysis time for a transaction
func ObserveAnalysisDuration(seconds float64) {
	analysisDurationHistogram.Observe(seconds)
}

// SetSACCacheEntries reports the current cache size
func SetSACCacheEntries(count int) {
	sacCacheEntries.Set(float64(count))
}
