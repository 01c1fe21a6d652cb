// internal/app/feed_handler.go
package app

import (
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"socialfeed/internal/metrics"
	"socialfeed/internal/social"
)

const (
	notConfiguredMessage = "Social feed API not configured. Add FB_ACCESS_TOKEN to environment variables."
	fetchFailedMessage   = "Failed to fetch social feed"
)

// FeedSource is the orchestrator surface the handlers depend on.
type FeedSource interface {
	Feed(ctx context.Context) FeedResult
	Snapshot() []social.Post
}

// FeedResponse is the JSON envelope of the social feed endpoint.
type FeedResponse struct {
	Configured bool          `json:"configured"`
	Cached     *bool         `json:"cached,omitempty"`
	Message    string        `json:"message,omitempty"`
	Error      string        `json:"error,omitempty"`
	Posts      []social.Post `json:"posts"`
}

// FeedHandler serves the merged social feed as JSON.
type FeedHandler struct {
	Source     FeedSource
	Configured bool
	Logger     *zap.Logger
}

// NewFeedHandler creates a FeedHandler. configured is false when no
// credential was provisioned.
func NewFeedHandler(source FeedSource, configured bool, log *zap.Logger) *FeedHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedHandler{Source: source, Configured: configured, Logger: log}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	if !h.Configured {
		metrics.RecordFeedRequest(metrics.OutcomeUnconfigured)
		writeJSON(w, http.StatusOK, FeedResponse{
			Configured: false,
			Message:    notConfiguredMessage,
			Posts:      []social.Post{},
		})
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.Logger.Error("Social feed handler panic", zap.Any("panic", rec))
			sentry.CurrentHub().Recover(rec)
			metrics.RecordFeedRequest(metrics.OutcomeFault)
			writeJSON(w, http.StatusInternalServerError, FeedResponse{
				Configured: true,
				Error:      fetchFailedMessage,
				Posts:      h.snapshot(),
			})
		}
	}()

	res := h.Source.Feed(r.Context())
	if res.Err != nil {
		metrics.RecordFeedRequest(metrics.OutcomeStale)
		writeJSON(w, http.StatusOK, FeedResponse{
			Configured: true,
			Error:      fetchFailedMessage,
			Posts:      nonNil(res.Posts),
		})
		return
	}

	outcome := metrics.OutcomeFresh
	if res.Cached {
		outcome = metrics.OutcomeCached
	}
	metrics.RecordFeedRequest(outcome)

	cached := res.Cached
	writeJSON(w, http.StatusOK, FeedResponse{
		Configured: true,
		Cached:     &cached,
		Posts:      nonNil(res.Posts),
	})
}

// snapshot reads the stale cache for the fault path and never panics itself.
func (h *FeedHandler) snapshot() (posts []social.Post) {
	defer func() {
		if recover() != nil {
			posts = []social.Post{}
		}
	}()
	return nonNil(h.Source.Snapshot())
}

func nonNil(posts []social.Post) []social.Post {
	if posts == nil {
		return []social.Post{}
	}
	return posts
}
