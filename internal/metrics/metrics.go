// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scraperPagesTotal          *prometheus.CounterVec
	scraperFetchDurationSecond *prometheus.HistogramVec
	scraperTasksTotal          *prometheus.CounterVec
	scraperReviewsSkippedTotal prometheus.Counter
	scraperRecordsWrittenTotal prometheus.Counter
	scraperRateLimitDelays     prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total pages fetched, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		scraperFetchDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		scraperTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_tasks_total",
				Help: "Total extraction tasks finished, labeled by status.",
			},
			[]string{"status"},
		)

		scraperReviewsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_reviews_skipped_total",
				Help: "Total malformed review entries skipped during extraction.",
			},
		)

		scraperRecordsWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_records_written_total",
				Help: "Total property records appended to the results sink.",
			},
		)

		scraperRateLimitDelays = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delays_seconds",
				Help:    "Histogram of dispatcher rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a raw URL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// IncFetchOutcome counts one fetch attempt by outcome. Failed attempts
// only increment the counter; the latency histogram receives no sample
// for them, so it reflects completed fetches exclusively.
func IncFetchOutcome(site string, outcome string) {
	if scraperPagesTotal == nil {
		return
	}
	scraperPagesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveFetchDuration records the latency of one completed fetch.
func ObserveFetchDuration(site string, duration time.Duration) {
	if scraperFetchDurationSecond == nil {
		return
	}
	scraperFetchDurationSecond.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// ObserveTask records one finished extraction task.
func ObserveTask(status string) {
	if scraperTasksTotal == nil {
		return
	}
	scraperTasksTotal.WithLabelValues(status).Inc()
}

// IncReviewsSkipped counts one skipped review entry.
func IncReviewsSkipped() {
	if scraperReviewsSkippedTotal == nil {
		return
	}
	scraperReviewsSkippedTotal.Inc()
}

// IncRecordsWritten counts one persisted property record.
func IncRecordsWritten() {
	if scraperRecordsWrittenTotal == nil {
		return
	}
	scraperRecordsWrittenTotal.Inc()
}

// ObserveRateLimitDelay records how long a submission waited on the
// dispatcher's limiter.
func ObserveRateLimitDelay(duration time.Duration) {
	if scraperRateLimitDelays == nil {
		return
	}
	scraperRateLimitDelays.Observe(duration.Seconds())
}
