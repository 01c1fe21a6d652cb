package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"socialfeed/internal/metrics"
	"socialfeed/internal/social"
)

// ErrRefreshPanic wraps a panic recovered from the refresh pipeline.
var ErrRefreshPanic = errors.New("feed refresh panicked")

const refreshKey = "feed"

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	// Fetchers lists only the platforms that are configured.
	Fetchers       []social.Fetcher
	Cache          *FeedCache
	TTL            time.Duration
	MaxPosts       int
	RefreshTimeout time.Duration
	Logger         *zap.Logger
}

// FeedResult is what the orchestrator hands to the HTTP layer. When Err is
// set, Posts holds the last good cache.
type FeedResult struct {
	Posts  []social.Post
	Cached bool
	Err    error
}

// Aggregator serves the merged feed from the cache and refreshes it from the
// platforms when it goes stale.
type Aggregator struct {
	fetchers       []social.Fetcher
	cache          *FeedCache
	ttl            time.Duration
	maxPosts       int
	refreshTimeout time.Duration
	log            *zap.Logger
	group          singleflight.Group
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	if opts.Cache == nil {
		opts.Cache = NewFeedCache(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 15 * time.Second
	}
	return &Aggregator{
		fetchers:       opts.Fetchers,
		cache:          opts.Cache,
		ttl:            opts.TTL,
		maxPosts:       opts.MaxPosts,
		refreshTimeout: opts.RefreshTimeout,
		log:            opts.Logger,
	}
}

// Feed returns the cached feed while it is fresh and non-empty, otherwise
// refreshes it. A failed refresh yields the previous cache with Err set.
func (a *Aggregator) Feed(ctx context.Context) FeedResult {
	posts, age := a.cache.Get()
	if len(posts) > 0 && age < a.ttl {
		return FeedResult{Posts: posts, Cached: true}
	}

	fresh, err := a.Refresh(ctx)
	if err != nil {
		stale, _ := a.cache.Get()
		a.log.Warn("Serving stale feed", zap.Int("posts", len(stale)), zap.Error(err))
		return FeedResult{Posts: stale, Err: err}
	}
	return FeedResult{Posts: fresh}
}

// Refresh fetches every configured platform, merges the results and
// overwrites the cache. Concurrent callers share one refresh, which runs
// detached from any single caller's cancellation.
func (a *Aggregator) Refresh(ctx context.Context) ([]social.Post, error) {
	ch := a.group.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.refreshTimeout)
		defer cancel()
		return a.refresh(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]social.Post), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for refresh: %w", ctx.Err())
	}
}

// Snapshot returns the cached posts regardless of age.
func (a *Aggregator) Snapshot() []social.Post {
	posts, _ := a.cache.Get()
	return posts
}

func (a *Aggregator) refresh(ctx context.Context) (posts []social.Post, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			posts, err = nil, fmt.Errorf("%w: %v", ErrRefreshPanic, r)
		}
		metrics.RecordRefresh(err, len(posts))
		if err != nil {
			a.log.Error("Social feed error", zap.Error(err))
			sentry.CaptureException(err)
		}
	}()

	results := make([]social.Result, len(a.fetchers))
	var g errgroup.Group
	for i, f := range a.fetchers {
		i, f := i, f
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s fetcher: %v", ErrRefreshPanic, f.Platform(), r)
				}
			}()
			results[i] = f.Fetch(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	posts = social.Merge(a.maxPosts, results...)
	a.cache.Set(posts)

	a.log.Info("Feed refreshed",
		zap.Int("platforms", len(a.fetchers)),
		zap.Int("posts", len(posts)),
		zap.Duration("took", time.Since(start)),
	)
	return posts, nil
}
