package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
)

// Reindexer applies ReindexRequests to an Index. Requests must be handled
// one at a time, which the Kafka consumer loop guarantees.
type Reindexer struct {
	idx      *indexer.Index
	dbDir    string
	notifier *Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewReindexer creates a Reindexer. notifier and m may be nil.
func NewReindexer(idx *indexer.Index, dbDir string, notifier *Notifier, m *metrics.Metrics) *Reindexer {
	return &Reindexer{
		idx:      idx,
		dbDir:    dbDir,
		notifier: notifier,
		metrics:  m,
		logger:   slog.Default().With("component", "reindexer"),
	}
}

// Handle rebuilds the requested table, or the whole corpus from scratch.
// Rebuilding one table does not refresh other indexes that merged it.
func (r *Reindexer) Handle(ctx context.Context, req ReindexRequest) error {
	start := time.Now()
	var err error
	if req.Table == "" {
		err = r.all()
	} else {
		err = r.table(req.Table)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.ReindexRequestTotal.WithLabelValues(req.Scope(), status).Inc()
	}
	r.logger.Info("reindex request handled",
		"scope", req.Scope(),
		"table", req.Table,
		"requested_by", req.RequestedBy,
		"status", status,
		"duration", time.Since(start),
	)
	return err
}

func (r *Reindexer) all() error {
	r.idx.Reset()
	err := r.idx.IndexAllTables(r.dbDir)
	if r.notifier != nil {
		r.notifier.CorpusIndexed(r.idx.CacheLen())
	}
	return err
}

func (r *Reindexer) table(tableName string) error {
	r.idx.Invalidate(tableName)
	if err := r.idx.AddBuiltinToQueue(r.dbDir); err != nil {
		return err
	}
	if _, err := r.idx.CreateIndexForTable(r.dbDir, tableName); err != nil {
		return fmt.Errorf("reindexing %s: %w", tableName, err)
	}
	return nil
}
