// FILE: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"socialfeed/internal/app"
	"socialfeed/internal/config"
	"socialfeed/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "", "HTTP listen address (default :$PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr == "" {
		*addr = cfg.Addr()
	}

	logger.InitLogger(cfg.App.Env)
	defer logger.Sync()

	if cfg.App.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.App.SentryDSN,
			Environment: cfg.App.Env,
		}); err != nil {
			logger.Log.Warn("Sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if !cfg.Configured() {
		logger.Log.Warn("FB_ACCESS_TOKEN not set; social feed will report configured=false")
	}

	srv, err := app.NewServer(cfg, app.Options{Logger: logger.Log})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, *addr); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	return nil
}
