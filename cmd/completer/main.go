package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/completer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/events"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/redis"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		stop()
		slog.Error("completer service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("completer service stopped")
}

// run serves until ctx is done and returns once every client it opened has
// been closed.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting completer service", "port", cfg.Server.Port, "index_dir", cfg.Corpus.IndexDir)

	m := metrics.New()
	checker := health.NewChecker()
	checker.Register("index_dir", health.DirCheck(cfg.Corpus.IndexDir))

	loaderOpts := []completer.LoaderOption{completer.WithMetrics(m)}
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, shared index cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			loaderOpts = append(loaderOpts, completer.WithCache(redisClient, cfg.Redis.CacheTTL))
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			slog.Info("shared index cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	loader := completer.NewLoader(cfg.Corpus.IndexDir, loaderOpts...)

	handlerOpts := []completer.HandlerOption{completer.WithHandlerMetrics(m)}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, listing indexes from disk", "error", err)
		} else {
			defer db.Close()
			handlerOpts = append(handlerOpts, completer.WithCatalog(catalog.New(db)))
			checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDegraded))
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests)
		defer producer.Close()
		handlerOpts = append(handlerOpts, completer.WithReindexPublisher(producer))

		group := cfg.Kafka.ConsumerGroup + "-completer-" + hostname()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, group,
			kafka.JSONHandler(func(ctx context.Context, ev events.IndexEvent) error {
				return loader.HandleIndexEvent(ctx, ev)
			}),
		)
		g.Go(func() error {
			return consumer.Start(gctx)
		})
		slog.Info("consuming index events", "topic", cfg.Kafka.Topics.IndexComplete, "group", group)
	}

	h := completer.NewHandler(loader, cfg.Server.DefaultLimit, cfg.Server.MaxResults, handlerOpts...)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      completer.NewRouter(h, checker, m, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return m.Serve(gctx, cfg.Metrics.Port)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		slog.Info("completer service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "local"
	}
	return name
}
