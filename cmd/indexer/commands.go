package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/completion"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/events"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/kafka"
	"github.com/spf13/cobra"
)

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()
	start := time.Now()

	if len(args) == 0 {
		err := rt.indexAll()
		fmt.Fprintf(out, "indexed %d tables from %s in %v\n", rt.idx.CacheLen(), cfg.Corpus.DBDir, time.Since(start).Round(time.Millisecond))
		return err
	}

	tableName := args[0]
	if err := rt.idx.AddBuiltinToQueue(cfg.Corpus.DBDir); err != nil {
		return err
	}
	rec, err := rt.idx.CreateIndexForTable(cfg.Corpus.DBDir, tableName)
	if err != nil {
		rt.countFailures(err)
		return err
	}
	fmt.Fprintf(out, "%s: %d keywords, %d variables, %d tables -> %s\n",
		tableName, len(rec.Keywords), len(rec.Variables), len(rec.Tables), rt.idx.IndexPath(tableName))
	return nil
}

func runRelink(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	tableName := args[0]
	_, _, tables, err := rt.idx.GetDataFromCreatedIndex(rt.idx.IndexPath(tableName))
	if err != nil {
		return fmt.Errorf("reading previous index for %s: %w", tableName, err)
	}
	others := make([]string, 0, len(tables))
	for _, t := range tables {
		if t != tableName {
			others = append(others, t)
		}
	}

	if err := rt.idx.AddBuiltinToQueue(cfg.Corpus.DBDir); err != nil {
		return err
	}
	queued := rt.idx.AddTableToIndex(others, cfg.Corpus.DBDir)
	rec, err := rt.idx.CreateIndexForTable(cfg.Corpus.DBDir, tableName)
	if err != nil {
		rt.countFailures(err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: requeued %d of %d tables, now %d keywords from %d tables\n",
		tableName, queued, len(others), len(rec.Keywords), len(rec.Tables))
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tableName := args[0]
	prefix := ""
	if len(args) > 1 {
		prefix = args[1]
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	mode := completion.ModeForPrefix(prefix)
	if modeFlag != "auto" {
		parsed, ok := completion.ParseVarMode(modeFlag)
		if !ok {
			return fmt.Errorf("unknown mode %q", modeFlag)
		}
		mode = parsed
	}

	data, err := completion.LoadData(filepath.Join(cfg.Corpus.IndexDir, indexer.IndexFileName(tableName)))
	if err != nil {
		return err
	}
	items := completion.Matcher{Mode: mode, Limit: limit}.Complete(data, prefix)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	for _, it := range items {
		fmt.Fprintf(out, "%s\t%s\n", it.Trigger, it.Hint)
	}
	return nil
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("listen needs kafka.enabled")
	}
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if cfg.Metrics.Enabled {
		go func() {
			if err := rt.metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	if skip, _ := cmd.Flags().GetBool("skip-initial"); !skip {
		if err := rt.indexAll(); err != nil {
			slog.Error("initial indexing incomplete", "error", err)
		}
	}

	reindexer := events.NewReindexer(rt.idx, cfg.Corpus.DBDir, rt.notifier, rt.metrics)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests, "",
		kafka.JSONHandler(func(ctx context.Context, req events.ReindexRequest) error {
			if err := reindexer.Handle(ctx, req); err != nil {
				slog.Error("reindex failed", "table", req.Table, "error", err)
			}
			return nil
		}),
	)

	slog.Info("indexer listening for reindex requests",
		"topic", cfg.Kafka.Topics.ReindexRequests,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("consumer error: %w", err)
	}
	slog.Info("indexer stopped")
	return nil
}
