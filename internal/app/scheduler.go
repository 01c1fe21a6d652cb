package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterMaxIdle         = 30 * time.Minute
)

// newScheduler registers the background jobs: rate limiter eviction and, if
// FEED_WARM_INTERVAL is set, periodic cache pre-warming.
func (s *Server) newScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(schedulerLogger{s: s.log.Named("scheduler").Sugar()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	if s.limiter != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(limiterCleanupInterval),
			gocron.NewTask(func() {
				if n := s.limiter.Cleanup(limiterMaxIdle); n > 0 {
					s.log.Debug("Rate limiter cleaned", zap.Int("removed", n), zap.Int("tracked", s.limiter.Len()))
				}
			}),
			gocron.WithName("limiter-cleanup"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add limiter cleanup job: %w", err)
		}
	}

	if s.cfg.Configured() && s.cfg.Feed.WarmInterval > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(s.cfg.Feed.WarmInterval),
			gocron.NewTask(s.warmCache),
			gocron.WithName("feed-warmer"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add feed warmer job: %w", err)
		}
	}

	return sched, nil
}

func (s *Server) warmCache() {
	posts, err := s.aggregator.Refresh(context.Background())
	if err != nil {
		s.log.Warn("Cache warm-up failed", zap.Error(err))
		return
	}
	s.log.Debug("Cache warmed", zap.Int("posts", len(posts)))
}

// schedulerLogger adapts zap to gocron.Logger.
type schedulerLogger struct {
	s *zap.SugaredLogger
}

func (l schedulerLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l schedulerLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
func (l schedulerLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l schedulerLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
