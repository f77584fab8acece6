package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
)

// Publisher writes one keyed JSON message; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Notifier publishes an IndexEvent for every persisted index. Publish
// failures are logged and counted but never fail indexing.
type Notifier struct {
	ctx     context.Context
	pub     Publisher
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. ctx bounds every publish; m may be nil.
func NewNotifier(ctx context.Context, pub Publisher, m *metrics.Metrics) *Notifier {
	return &Notifier{
		ctx:     ctx,
		pub:     pub,
		timeout: 5 * time.Second,
		metrics: m,
		now:     time.Now,
		logger:  slog.Default().With("component", "index-notifier"),
	}
}

// OnIndexed has the indexer.Listener signature.
func (n *Notifier) OnIndexed(s indexer.Summary) {
	n.publish(s.TableName, FromSummary(s, n.now()))
}

// CorpusIndexed announces the end of a full run so consumers can drop every
// cached index at once.
func (n *Notifier) CorpusIndexed(tables int) {
	n.publish("", IndexEvent{Type: EventCorpusIndexed, Tables: tables, Timestamp: n.now().UTC()})
}

func (n *Notifier) publish(key string, ev IndexEvent) {
	ctx, cancel := context.WithTimeout(n.ctx, n.timeout)
	defer cancel()
	status := "ok"
	if err := n.pub.Publish(ctx, key, ev); err != nil {
		status = "error"
		n.logger.Warn("index event not published", "type", ev.Type, "table", ev.Table, "error", err)
	}
	if n.metrics != nil {
		n.metrics.EventsPublished.WithLabelValues(status).Inc()
	}
}
