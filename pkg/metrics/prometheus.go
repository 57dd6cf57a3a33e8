package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain/repository.Metrics using Prometheus.
type Recorder struct {
	tickersScanned *prometheus.CounterVec
	tickersFailed  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	signalScore    *prometheus.GaugeVec
	fetchLatency   *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tickersScanned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetaharvest_tickers_scanned_total",
				Help: "Total number of tickers successfully scanned",
			},
			[]string{"ticker"},
		),
		tickersFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetaharvest_tickers_failed_total",
				Help: "Total number of per-ticker scan failures",
			},
			[]string{"ticker", "reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetaharvest_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind"},
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "thetaharvest_scan_duration_seconds",
				Help:    "Duration of full universe scans in seconds",
				Buckets: []float64{5, 10, 30, 60, 120, 300, 600},
			},
		),
		signalScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thetaharvest_signal_score",
				Help: "Latest signal score per ticker",
			},
			[]string{"ticker"},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thetaharvest_fetch_duration_seconds",
				Help:    "Latency of upstream data fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}

// RecordTickerScanned counts a successful per-ticker scan.
func (r *Recorder) RecordTickerScanned(ticker string) {
	r.tickersScanned.WithLabelValues(ticker).Inc()
}

// RecordTickerFailed counts a per-ticker scan failure.
func (r *Recorder) RecordTickerFailed(ticker, reason string) {
	r.tickersFailed.WithLabelValues(ticker, reason).Inc()
}

// RecordScanDuration records a full scan duration in seconds.
func (r *Recorder) RecordScanDuration(seconds float64) {
	r.scanDuration.Observe(seconds)
}

// RecordScore publishes the latest score for a ticker.
func (r *Recorder) RecordScore(ticker string, score float64) {
	r.signalScore.WithLabelValues(ticker).Set(score)
}

// RecordFetchLatency records an upstream fetch latency.
func (r *Recorder) RecordFetchLatency(endpoint string, seconds float64) {
	r.fetchLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordError counts an error by kind.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
