// Package events defines the Kafka payloads exchanged between the indexer and
// the completer, and the notifier that publishes them as indexes are written.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
)

type EventType string

const (
	EventIndexComplete EventType = "index_complete"
	EventCorpusIndexed EventType = "corpus_indexed"
)

// IndexEvent announces that a table's index file was (re)written. Consumers
// drop any cached copy of Table.
type IndexEvent struct {
	Type      EventType `json:"type"`
	Table     string    `json:"table,omitempty"`
	IndexPath string    `json:"index_path,omitempty"`
	Keywords  int       `json:"keywords"`
	Variables int       `json:"variables"`
	Tables    int       `json:"tables"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// FromSummary converts an indexer summary into an index_complete event.
func FromSummary(s indexer.Summary, now time.Time) IndexEvent {
	return IndexEvent{
		Type:      EventIndexComplete,
		Table:     s.TableName,
		IndexPath: s.IndexPath,
		Keywords:  s.Keywords,
		Variables: s.Variables,
		Tables:    s.Tables,
		LatencyMs: s.Duration.Milliseconds(),
		Timestamp: now.UTC(),
	}
}

// ReindexRequest asks a listening indexer to rebuild one table, or the whole
// corpus when Table is empty.
type ReindexRequest struct {
	Table       string    `json:"table,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Scope is "all" for corpus requests and "table" otherwise.
func (r ReindexRequest) Scope() string {
	if r.Table == "" {
		return "all"
	}
	return "table"
}
