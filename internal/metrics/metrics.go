package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Error stages recorded by ErrorsTotal.
const (
	StageFetch   = "fetch"
	StageAnalyze = "analyze"
	StageJournal = "journal"
	StageCache   = "cache"
)

// Metrics holds all Prometheus metrics for the zone scanner.
type Metrics struct {
	ScansTotal      prometheus.Counter
	ScanDur         prometheus.Histogram
	LastScanUnix    prometheus.Gauge
	AnalysesTotal   *prometheus.CounterVec // labels: timeframe
	AnalysisDur     prometheus.Histogram
	SignalsTotal    *prometheus.CounterVec // labels: timeframe, direction
	DuplicateSkips  prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec // labels: stage
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	HTTPRequests    *prometheus.CounterVec // labels: route, code
	ActiveZoneGauge *prometheus.GaugeVec   // labels: symbol, timeframe, kind
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zonebot_scans_total",
			Help: "Total scan runs over the configured symbols and timeframes",
		}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zonebot_scan_duration_seconds",
			Help:    "Wall time of one full scan run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastScanUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zonebot_last_scan_timestamp_seconds",
			Help: "Unix time the last scan run finished",
		}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zonebot_analyses_total",
			Help: "Engine invocations (by timeframe)",
		}, []string{"timeframe"}),
		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zonebot_analysis_duration_seconds",
			Help:    "Engine compute latency per candle window",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zonebot_signals_total",
			Help: "Actionable signals journaled (by timeframe and direction)",
		}, []string{"timeframe", "direction"}),
		DuplicateSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zonebot_duplicate_signals_skipped_total",
			Help: "Signals skipped because they repeat the latest journaled one",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zonebot_errors_total",
			Help: "Errors by pipeline stage (fetch, analyze, journal, cache)",
		}, []string{"stage"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zonebot_cache_hits_total",
			Help: "Analyses served from the window cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zonebot_cache_misses_total",
			Help: "Analyses computed because the window was not cached",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zonebot_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		ActiveZoneGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zonebot_active_zone_strength",
			Help: "Strength of the active zone per symbol, timeframe and kind (0 when none)",
		}, []string{"symbol", "timeframe", "kind"}),
	}

	reg.MustRegister(
		m.ScansTotal,
		m.ScanDur,
		m.LastScanUnix,
		m.AnalysesTotal,
		m.AnalysisDur,
		m.SignalsTotal,
		m.DuplicateSkips,
		m.ErrorsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.HTTPRequests,
		m.ActiveZoneGauge,
	)

	return m
}

// ObserveScan records a finished scan run.
func (m *Metrics) ObserveScan(started, finished time.Time) {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
	m.ScanDur.Observe(finished.Sub(started).Seconds())
	m.LastScanUnix.Set(float64(finished.Unix()))
}

// ObserveAnalysis records one engine invocation.
func (m *Metrics) ObserveAnalysis(timeframe string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(timeframe).Inc()
	m.AnalysisDur.Observe(d.Seconds())
}

// IncSignal counts a journaled signal.
func (m *Metrics) IncSignal(timeframe, direction string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(timeframe, direction).Inc()
}

// IncDuplicate counts a skipped repeat signal.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateSkips.Inc()
}

// IncError counts an error at the given stage.
func (m *Metrics) IncError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

// IncCache counts a cache lookup.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// IncHTTP counts a served request.
func (m *Metrics) IncHTTP(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}

// SetActiveZone publishes the active zone strength, 0 when there is none.
func (m *Metrics) SetActiveZone(symbol, timeframe, kind string, strength float64) {
	if m == nil {
		return
	}
	m.ActiveZoneGauge.WithLabelValues(symbol, timeframe, kind).Set(strength)
}
