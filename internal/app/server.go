// internal/app/server.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"socialfeed/internal/config"
	"socialfeed/internal/fetch"
	"socialfeed/internal/ratelimit"
	"socialfeed/internal/social"
)

const userAgent = "socialfeed/1.0 (+https://github.com/socialfeed)"

// Options carries process-level collaborators for NewServer.
type Options struct {
	Logger *zap.Logger
	// Clock drives cache ages and the scheduler; nil means the real clock.
	Clock clockwork.Clock
}

// Server is the application server.
type Server struct {
	cfg        *config.Config
	log        *zap.Logger
	clock      clockwork.Clock
	cache      *FeedCache
	aggregator *Aggregator
	limiter    *ratelimit.InMemoryLimiter
	scheduler  gocron.Scheduler
	mux        *http.ServeMux
	handler    http.Handler
}

// NewServer wires the fetchers, cache, orchestrator and routes from cfg.
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	hc := fetch.NewClient(fetch.ClientOptions{
		Timeout:   cfg.Upstream.Timeout,
		UserAgent: userAgent,
		RetryMax:  cfg.Upstream.RetryMax,
		Logger:    opts.Logger.Named("upstream"),
	})

	cache := NewFeedCache(opts.Clock)
	agg := NewAggregator(AggregatorOptions{
		Fetchers:       newFetchers(cfg, hc, opts.Logger),
		Cache:          cache,
		TTL:            cfg.Feed.CacheTTL,
		MaxPosts:       cfg.Feed.MaxPosts,
		RefreshTimeout: cfg.Feed.RefreshTimeout,
		Logger:         opts.Logger.Named("aggregator"),
	})

	s := &Server{
		cfg:        cfg,
		log:        opts.Logger,
		clock:      opts.Clock,
		cache:      cache,
		aggregator: agg,
		mux:        http.NewServeMux(),
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = ratelimit.NewInMemoryLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, opts.Clock)
	}

	s.registerRoutes()

	var h http.Handler = s.mux
	if s.limiter != nil {
		h = withRateLimit(s.limiter, cfg.RateLimit.TrustedProxies, h)
	}
	s.handler = withRequestLogging(s.log, withCommonHeaders(h))
	return s, nil
}

// newFetchers builds a fetcher for every platform whose account is set. No
// credential means no fetchers at all.
func newFetchers(cfg *config.Config, hc *fetch.Client, log *zap.Logger) []social.Fetcher {
	if !cfg.Configured() {
		return nil
	}
	graph := social.GraphOptions{
		Client:  hc,
		BaseURL: cfg.Graph.BaseURL,
		Token:   cfg.Graph.AccessToken,
		Limit:   cfg.Feed.PlatformLimit,
		Timeout: cfg.Upstream.Timeout,
		Logger:  log.Named("social"),
	}

	var fetchers []social.Fetcher
	if cfg.Graph.PageID != "" {
		fetchers = append(fetchers, social.NewFacebookFetcher(graph, cfg.Graph.PageID))
	}
	if cfg.Graph.IGUserID != "" {
		fetchers = append(fetchers, social.NewInstagramFetcher(graph, cfg.Graph.IGUserID))
	}
	return fetchers
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Aggregator exposes the feed orchestrator.
func (s *Server) Aggregator() *Aggregator {
	return s.aggregator
}

// Run starts the HTTP server and background jobs and blocks until ctx is
// cancelled, then shuts both down.
func (s *Server) Run(ctx context.Context, addr string) error {
	sched, err := s.newScheduler()
	if err != nil {
		return err
	}
	s.scheduler = sched
	sched.Start()

	h := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.Feed.RefreshTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", zap.String("addr", addr), zap.Bool("configured", s.cfg.Configured()))
		if err := h.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = sched.Shutdown()
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Shutdown(); err != nil {
		s.log.Warn("Scheduler shutdown failed", zap.Error(err))
	}
	return h.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle(feedPath, NewFeedHandler(s.aggregator, s.cfg.Configured(), s.log.Named("feed")))
	s.mux.Handle("GET /api/social-feed.rss", &RSSHandler{
		Source:     s.aggregator,
		Configured: s.cfg.Configured(),
		Title:      s.cfg.Feed.Title,
		Link:       s.cfg.Feed.Link,
		Logger:     s.log.Named("rss"),
		Now:        s.clock.Now,
	})
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /{$}", s.handleHome)
}

// handleHome serves a short index of the available endpoints.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	const homeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Social Feed</title>
</head>
<body>
	<h1>Social Feed</h1>
	<ul>
		<li><a href="/api/social-feed">/api/social-feed</a> - latest Facebook and Instagram posts (JSON)</li>
		<li><a href="/api/social-feed.rss">/api/social-feed.rss</a> - the same posts as RSS (<a href="/api/social-feed.rss?format=atom">Atom</a>)</li>
		<li><a href="/health">/health</a> - health check</li>
	</ul>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(homeHTML))
}

// handleHealth returns JSON health information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "ok",
		"service":    "socialfeed",
		"configured": s.cfg.Configured(),
		"cache_size": s.cache.Size(),
		"timestamp":  s.clock.Now().UTC().Format(time.RFC3339),
	}
	if fetchedAt := s.cache.FetchedAt(); !fetchedAt.IsZero() {
		health["fetched_at"] = fetchedAt.UTC().Format(time.RFC3339)
		health["cache_age_seconds"] = int(s.clock.Since(fetchedAt).Seconds())
	}
	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
