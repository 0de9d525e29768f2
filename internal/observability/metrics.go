package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dashboard data pipeline.
type Metrics struct {
	// Fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: category, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: category

	// Refresh (full pipeline run) metrics.
	RefreshTotal    *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration prometheus.Histogram
	LastRefreshTime prometheus.Gauge
	DegradedMode    prometheus.Gauge // 1 when recovered data is unavailable

	// Cache metrics.
	CacheRequests *prometheus.CounterVec // labels: result={hit,expired,empty}

	// Dataset size after the most recent successful refresh.
	DatasetRows *prometheus.GaugeVec // labels: table={raw,by_country,global}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "fetch_requests_total",
			Help:      "Source table fetches by category and outcome.",
		}, []string{"category", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "fetch_duration_seconds",
			Help:      "Source table fetch duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"category"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "refresh_total",
			Help:      "Full pipeline refreshes by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-reshape-merge refresh.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		LastRefreshTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		DegradedMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "degraded_mode",
			Help:      "1 when the recovered series is unavailable and filled with zeros.",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "cache_requests_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "dataset_rows",
			Help:      "Row counts of the cached dataset by table.",
		}, []string{"table"}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.RefreshTotal,
		m.RefreshDuration,
		m.LastRefreshTime,
		m.DegradedMode,
		m.CacheRequests,
		m.DatasetRows,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "fetch_requests_total"}, []string{"category", "outcome"}),
		FetchDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "covid_dashboard", Name: "fetch_duration_seconds"}, []string{"category"}),
		RefreshTotal:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "refresh_total"}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "covid_dashboard", Name: "refresh_duration_seconds"}),
		LastRefreshTime: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "last_refresh_timestamp_seconds"}),
		DegradedMode:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "degraded_mode"}),
		CacheRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "cache_requests_total"}, []string{"result"}),
		DatasetRows:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "dataset_rows"}, []string{"table"}),
	}
}
