// Package metrics provides Prometheus metrics for the prediction engine.
//
// Every recording method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Alias1177/football-predictor/models"
)

// Result labels shared by forecast, review and pass item counters
const (
	ResultSaved   = "saved"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Metrics collects and exposes engine metrics on its own registry
type Metrics struct {
	registry *prometheus.Registry

	// Forecast metrics
	ForecastsTotal     *prometheus.CounterVec
	ForecastConfidence *prometheus.HistogramVec

	// Review metrics
	ReviewsTotal   *prometheus.CounterVec
	ReviewAccuracy prometheus.Histogram
	MarketHits     *prometheus.CounterVec

	// Scheduler metrics
	PassRuns     *prometheus.CounterVec
	PassItems    *prometheus.CounterVec
	PassDuration *prometheus.HistogramVec
	LastPass     *prometheus.GaugeVec

	// Feed metrics
	FeedSyncs   *prometheus.CounterVec
	FeedMatches prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ForecastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_forecasts_total",
				Help: "Forecast attempts by result",
			},
			[]string{"result"},
		),
		ForecastConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predictor_forecast_confidence",
				Help:    "Confidence of saved forecasts per market",
				Buckets: prometheus.LinearBuckets(50, 5, 9), // 50 to 90
			},
			[]string{"market"},
		),

		ReviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_reviews_total",
				Help: "Review attempts by result",
			},
			[]string{"result"},
		),
		ReviewAccuracy: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "predictor_review_accuracy",
				Help:    "Aggregate accuracy of reviewed predictions",
				Buckets: []float64{0, 25, 50, 75, 100},
			},
		),
		MarketHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_market_hits_total",
				Help: "Correct calls per market among reviewed predictions",
			},
			[]string{"market"},
		),

		PassRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_pass_runs_total",
				Help: "Scheduler passes by job",
			},
			[]string{"job", "kind"},
		),
		PassItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_pass_items_total",
				Help: "Matches handled by scheduler passes",
			},
			[]string{"job", "result"},
		),
		PassDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predictor_pass_duration_seconds",
				Help:    "Scheduler pass duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"job"},
		),
		LastPass: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predictor_last_pass_timestamp_seconds",
				Help: "Unix time the job last finished",
			},
			[]string{"job"},
		),

		FeedSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_feed_syncs_total",
				Help: "Feed synchronisations by status",
			},
			[]string{"status"},
		),
		FeedMatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "predictor_feed_matches_total",
				Help: "Matches upserted from the feed",
			},
		),
	}

	m.registerAll()
	return m
}

func (m *Metrics) registerAll() {
	m.registry.MustRegister(
		m.ForecastsTotal,
		m.ForecastConfidence,
		m.ReviewsTotal,
		m.ReviewAccuracy,
		m.MarketHits,
		m.PassRuns,
		m.PassItems,
		m.PassDuration,
		m.LastPass,
		m.FeedSyncs,
		m.FeedMatches,
	)
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordForecast counts a forecast attempt; f is observed only when saved
func (m *Metrics) RecordForecast(result string, f *models.Forecast) {
	if m == nil {
		return
	}
	m.ForecastsTotal.WithLabelValues(result).Inc()
	if f == nil || result != ResultSaved {
		return
	}
	m.ForecastConfidence.WithLabelValues("winner").Observe(f.WinnerConfidence)
	m.ForecastConfidence.WithLabelValues("handicap").Observe(f.HandicapConfidence)
	m.ForecastConfidence.WithLabelValues("totals").Observe(f.TotalsConfidence)
}

// RecordReview counts a review attempt; r is observed only when saved
func (m *Metrics) RecordReview(result string, r *models.Review) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(result).Inc()
	if r == nil || result != ResultSaved {
		return
	}
	m.ReviewAccuracy.Observe(r.Accuracy)
	for market, ok := range map[string]bool{
		"winner":   r.WinnerCorrect,
		"handicap": r.HandicapCorrect,
		"totals":   r.TotalsCorrect,
		"score":    r.ScoreCorrect,
	} {
		if ok {
			m.MarketHits.WithLabelValues(market).Inc()
		}
	}
}

// RecordPass records one finished scheduler pass
func (m *Metrics) RecordPass(job, kind string, succeeded, failed, skipped int, duration time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.PassRuns.WithLabelValues(job, kind).Inc()
	m.PassItems.WithLabelValues(job, ResultSaved).Add(float64(succeeded))
	m.PassItems.WithLabelValues(job, ResultFailed).Add(float64(failed))
	m.PassItems.WithLabelValues(job, ResultSkipped).Add(float64(skipped))
	m.PassDuration.WithLabelValues(job).Observe(duration.Seconds())
	m.LastPass.WithLabelValues(job).Set(float64(finished.Unix()))
}

// RecordFeedSync records a feed synchronisation
func (m *Metrics) RecordFeedSync(err error, matches int) {
	if m == nil {
		return
	}
	if err != nil {
		m.FeedSyncs.WithLabelValues("error").Inc()
		return
	}
	m.FeedSyncs.WithLabelValues("ok").Inc()
	m.FeedMatches.Add(float64(matches))
}
