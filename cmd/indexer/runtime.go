package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/events"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/postgres"
	"github.com/spf13/cobra"
)

// runtime bundles the index and its optional sinks for one command run.
type runtime struct {
	cfg      *config.Config
	idx      *indexer.Index
	metrics  *metrics.Metrics
	notifier *events.Notifier
	closers  []func() error
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("db-dir"); v != "" {
		cfg.Corpus.DBDir = v
	}
	if v, _ := cmd.Flags().GetString("index-dir"); v != "" {
		cfg.Corpus.IndexDir = v
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// newRuntime wires the index with a metrics listener and, when enabled, the
// Kafka notifier and the Postgres catalog.
func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg, metrics: metrics.New()}
	opts := []indexer.Option{
		indexer.WithBuiltins(cfg.Corpus.Builtins...),
		indexer.WithListener(func(s indexer.Summary) {
			rt.metrics.ObserveIndexed(s.Keywords, s.Tables, s.Duration)
		}),
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		rt.closers = append(rt.closers, producer.Close)
		rt.notifier = events.NewNotifier(ctx, producer, rt.metrics)
		opts = append(opts, indexer.WithListener(rt.notifier.OnIndexed))
		slog.Info("publishing index events", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		store := catalog.New(db)
		if err := store.Migrate(ctx); err != nil {
			rt.close()
			return nil, err
		}
		opts = append(opts, indexer.WithListener(store.Listener(ctx)))
		slog.Info("recording indexes in catalog", "database", cfg.Postgres.Database)
	}

	idx, err := indexer.New(cfg.Corpus.IndexDir, opts...)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.idx = idx
	return rt, nil
}

// indexAll indexes the whole corpus and announces completion. Failed tables
// are counted; the joined error is returned after the run.
func (rt *runtime) indexAll() error {
	err := rt.idx.IndexAllTables(rt.cfg.Corpus.DBDir)
	rt.countFailures(err)
	if rt.notifier != nil {
		rt.notifier.CorpusIndexed(rt.idx.CacheLen())
	}
	return err
}

func (rt *runtime) countFailures(err error) {
	if err == nil {
		return
	}
	n := 1
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		n = len(joined.Unwrap())
	}
	rt.metrics.TablesIndexedTotal.WithLabelValues("error").Add(float64(n))
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}
