// Сервис пуш-уведомлений: слушает ленты history и messages, восстанавливает контекст
// события по ссылкам между коллекциями и отправляет одно уведомление на событие.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/notifier/internal/config"
	"github.com/notifier/internal/feed"
	"github.com/notifier/internal/handler"
	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/middleware"
	"github.com/notifier/internal/pipeline"
	"github.com/notifier/internal/push"
	"github.com/notifier/internal/resolver"
	"github.com/notifier/internal/startup"
	"github.com/notifier/internal/storage"
)

func main() {
	code := run()
	logger.Flush(2 * time.Second)
	os.Exit(code)
}

// run возвращает код выхода: 1 — не удалось стартовать или сервис упал.
func run() int {
	logger.SetPrefix("notifier")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external store required)")
	genVAPID := flag.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *genVAPID {
		keys, err := push.GenerateVAPIDKeys()
		if err != nil {
			logger.Errorf("generate VAPID: %v", err)
			return 1
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", keys.PublicKey, keys.PrivateKey)
		return 0
	}

	logger.Info("starting notifier service")
	cfg := config.Load()

	if *dev {
		embeddedDB, err := startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			return 1
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	deps, err := build(initCtx, cfg)
	initCancel()
	if err != nil {
		logger.Errorf("startup: %v", err)
		return 1
	}
	defer deps.close()

	// Подписки живут всё время работы процесса.
	feedCtx, feedCancel := context.WithCancel(context.Background())
	pipe := pipeline.New(
		resolver.New(deps.store, cfg.Store.LookupTimeout),
		push.NewDispatcher(deps.provider, deps.journal, cfg.Push.SendTimeout),
		cfg.Push.Icon,
	)
	subs := []*feed.Subscription{
		feed.New(deps.store, storage.CollectionHistory, pipe.HandleHistory),
		feed.New(deps.store, storage.CollectionMessages, pipe.HandleMessage),
	}
	var feedWg sync.WaitGroup
	feedErr := make(chan error, len(subs))
	for _, s := range subs {
		feedWg.Add(1)
		go func() {
			defer feedWg.Done()
			if err := s.Run(feedCtx); err != nil {
				feedErr <- fmt.Errorf("subscribe %s: %w", s.Collection(), err)
			}
		}()
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	if deps.hub != nil {
		hubWg.Add(1)
		go func() {
			defer hubWg.Done()
			deps.hub.Run(hubCtx)
		}()
	}

	routes := handler.Routes{
		Health:             handler.NewHealthHandler(deps.provider.Name(), subs...),
		Dispatches:         handler.NewDispatchHandler(deps.journal),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		InternalSecret:     cfg.InternalSecret,
	}
	if deps.vapid != nil {
		routes.Config = handler.NewConfigHandler(deps.vapid.PublicKey)
		routes.Topics = handler.NewTopicHandler(deps.topics)
	}
	if deps.hub != nil {
		routes.WS = handler.NewWSHandler(deps.hub, cfg.CORSAllowedOrigins)
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.NewRouter(routes),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s", cfg.ServerAddr)
		srvErr <- srv.ListenAndServe()
	}()

	if deps.retention != nil {
		deps.retention.Start()
	}
	startup.NotifyReady()
	watchdogCtx, watchdogCancel := context.WithCancel(context.Background())
	go startup.RunWatchdog(watchdogCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			exitCode = 1
		}
	case err := <-feedErr:
		logger.Errorf("%v", err)
		exitCode = 1
	}
	startup.NotifyStopping()
	watchdogCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")

	feedCancel()
	feedWg.Wait()
	logger.Info("subscriptions closed")
	if !pipe.Drain(cfg.ShutdownTimeout) {
		logger.Errorf("in-flight notifications not finished in %v", cfg.ShutdownTimeout)
	}

	hubCancel()
	hubWg.Wait()
	if deps.retention != nil {
		deps.retention.Stop()
	}
	logger.Info("notifier stopped")
	return exitCode
}
