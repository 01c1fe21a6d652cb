// Package metrics provides Prometheus metrics for the social feed.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts Graph API calls by platform and outcome.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream platform requests",
		},
		[]string{"platform", "status"},
	)

	// UpstreamDuration measures Graph API call duration, retries included.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "socialfeed",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream platform requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	// InvalidPosts counts upstream entries dropped during normalization.
	InvalidPosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "invalid_posts_total",
			Help:      "Total number of upstream posts dropped by validation",
		},
		[]string{"platform"},
	)

	// FeedRequests counts served feed responses by outcome.
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "feed_requests_total",
			Help:      "Total number of feed responses by outcome",
		},
		[]string{"outcome"},
	)

	// Refreshes counts cache refresh attempts.
	Refreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "refreshes_total",
			Help:      "Total number of cache refreshes",
		},
		[]string{"status"},
	)

	// CachedPosts tracks the number of posts currently cached.
	CachedPosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "socialfeed",
			Name:      "cached_posts",
			Help:      "Number of posts held in the feed cache",
		},
	)
)

// Feed response outcomes.
const (
	OutcomeUnconfigured = "unconfigured"
	OutcomeCached       = "cached"
	OutcomeFresh        = "fresh"
	OutcomeStale        = "stale"
	OutcomeFault        = "fault"
)

// RecordUpstream records one upstream call.
func RecordUpstream(platform string, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamRequests.WithLabelValues(platform, status).Inc()
	UpstreamDuration.WithLabelValues(platform).Observe(took.Seconds())
}

// RecordInvalidPost records a dropped upstream entry.
func RecordInvalidPost(platform string) {
	InvalidPosts.WithLabelValues(platform).Inc()
}

// RecordFeedRequest records a served feed response.
func RecordFeedRequest(outcome string) {
	FeedRequests.WithLabelValues(outcome).Inc()
}

// RecordRefresh records a refresh and, on success, the new cache size.
func RecordRefresh(err error, posts int) {
	if err != nil {
		Refreshes.WithLabelValues("fault").Inc()
		return
	}
	Refreshes.WithLabelValues("ok").Inc()
	CachedPosts.Set(float64(posts))
}
