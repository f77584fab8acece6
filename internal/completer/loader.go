// Package completer serves completion queries over HTTP. Index files written
// by the indexer are loaded on demand and kept in memory, with Redis as an
// optional shared tier between completer replicas.
package completer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/completion"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/events"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

// Cache is the shared byte cache in front of the index files. *redis.Client
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Loader resolves a table name to its completion data.
type Loader struct {
	indexDir string
	cache    Cache
	ttl      time.Duration
	breaker  *resilience.CircuitBreaker
	metrics  *metrics.Metrics
	group    singleflight.Group
	logger   *slog.Logger

	mu     sync.RWMutex
	memory map[string]*completion.Data

	memoryHits atomic.Int64
	cacheHits  atomic.Int64
	misses     atomic.Int64
}

type LoaderOption func(*Loader)

// WithCache puts a shared cache between memory and disk.
func WithCache(c Cache, ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cache = c
		l.ttl = ttl
	}
}

func WithMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a Loader over the index files in indexDir.
func NewLoader(indexDir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		indexDir: indexDir,
		memory:   make(map[string]*completion.Data),
		logger:   slog.Default().With("component", "index-loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.breaker = resilience.NewCircuitBreaker("index-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			if l.metrics != nil {
				l.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return l
}

func cacheKey(tableName string) string {
	return pkgredis.Key("index", tableName)
}

// ValidateTableName rejects names that could escape the index directory.
func ValidateTableName(tableName string) error {
	if tableName == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "table is required")
	}
	if tableName == "." || tableName == ".." || strings.ContainsAny(tableName, `/\`) {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid table name %q", tableName)
	}
	return nil
}

// Load returns the completion data for tableName, trying memory, the shared
// cache and finally the index file.
func (l *Loader) Load(ctx context.Context, tableName string) (*completion.Data, error) {
	if err := ValidateTableName(tableName); err != nil {
		return nil, err
	}
	if data, ok := l.fromMemory(tableName); ok {
		l.memoryHits.Add(1)
		l.observeHit("memory")
		return data, nil
	}

	val, err, _ := l.group.Do(tableName, func() (any, error) {
		if data, ok := l.fromMemory(tableName); ok {
			return data, nil
		}
		raw, fromCache := l.fromCache(ctx, tableName)
		if fromCache {
			l.cacheHits.Add(1)
			l.observeHit("redis")
		} else {
			var err error
			raw, err = os.ReadFile(l.path(tableName))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil, apperrors.Newf(apperrors.ErrIndexNotLoaded, http.StatusNotFound, "no index for table %s", tableName)
				}
				return nil, fmt.Errorf("reading index for %s: %w", tableName, err)
			}
			l.misses.Add(1)
			if l.metrics != nil {
				l.metrics.IndexCacheMissesTotal.Inc()
			}
		}

		rec, err := indexer.DecodeIndex(raw)
		if err != nil {
			if fromCache {
				l.dropCached(ctx, tableName)
			}
			return nil, fmt.Errorf("loading index for %s: %w", tableName, err)
		}
		if !fromCache {
			l.toCache(ctx, tableName, raw)
		}

		data := completion.DataFromRecord(rec)
		l.mu.Lock()
		l.memory[tableName] = data
		l.mu.Unlock()
		l.logger.Debug("index loaded", "table", tableName, "keywords", len(data.Keywords), "from_cache", fromCache)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*completion.Data), nil
}

func (l *Loader) path(tableName string) string {
	return filepath.Join(l.indexDir, indexer.IndexFileName(tableName))
}

func (l *Loader) fromMemory(tableName string) (*completion.Data, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, ok := l.memory[tableName]
	return data, ok
}

func (l *Loader) fromCache(ctx context.Context, tableName string) ([]byte, bool) {
	if l.cache == nil {
		return nil, false
	}
	var raw []byte
	err := l.breaker.Execute(func() error {
		var err error
		raw, err = l.cache.Get(ctx, cacheKey(tableName))
		if errors.Is(err, pkgredis.ErrMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		l.logger.Warn("index cache get failed", "table", tableName, "error", err)
		return nil, false
	}
	return raw, raw != nil
}

func (l *Loader) toCache(ctx context.Context, tableName string, raw []byte) {
	if l.cache == nil {
		return
	}
	err := l.breaker.Execute(func() error {
		return l.cache.Set(ctx, cacheKey(tableName), raw, l.ttl)
	})
	if err != nil {
		l.logger.Warn("index cache set failed", "table", tableName, "error", err)
	}
}

func (l *Loader) dropCached(ctx context.Context, tableName string) {
	if l.cache == nil {
		return
	}
	err := l.breaker.Execute(func() error {
		return l.cache.Del(ctx, cacheKey(tableName))
	})
	if err != nil {
		l.logger.Warn("index cache delete failed", "table", tableName, "error", err)
	}
}

func (l *Loader) observeHit(tier string) {
	if l.metrics != nil {
		l.metrics.IndexCacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

// Invalidate drops tableName from every tier so the next Load rereads the
// index file.
func (l *Loader) Invalidate(ctx context.Context, tableName string) {
	l.mu.Lock()
	delete(l.memory, tableName)
	l.mu.Unlock()
	l.dropCached(ctx, tableName)
}

// InvalidateAll empties memory and removes every cached index from the shared
// cache, returning the number of shared keys deleted.
func (l *Loader) InvalidateAll(ctx context.Context) (int64, error) {
	l.mu.Lock()
	l.memory = make(map[string]*completion.Data)
	l.mu.Unlock()
	if l.cache == nil {
		return 0, nil
	}
	var deleted int64
	err := l.breaker.Execute(func() error {
		var err error
		deleted, err = l.cache.FlushByPattern(ctx, cacheKey("*"))
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating index cache: %w", err)
	}
	l.logger.Info("index cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// HandleIndexEvent reacts to indexer announcements. A rewritten table is
// dropped; a full corpus run drops everything.
func (l *Loader) HandleIndexEvent(ctx context.Context, ev events.IndexEvent) error {
	switch ev.Type {
	case events.EventIndexComplete:
		if ev.Table == "" {
			return fmt.Errorf("index event without table: %w", apperrors.ErrMalformedData)
		}
		l.Invalidate(ctx, ev.Table)
		l.logger.Debug("index invalidated by event", "table", ev.Table)
	case events.EventCorpusIndexed:
		if _, err := l.InvalidateAll(ctx); err != nil {
			return err
		}
	default:
		l.logger.Warn("ignoring unknown index event", "type", ev.Type)
	}
	return nil
}

// Stats summarises loader activity.
type Stats struct {
	Loaded       int    `json:"loaded"`
	MemoryHits   int64  `json:"memory_hits"`
	CacheHits    int64  `json:"cache_hits"`
	Misses       int64  `json:"misses"`
	CacheEnabled bool   `json:"cache_enabled"`
	BreakerState string `json:"breaker_state"`
}

func (l *Loader) Stats() Stats {
	l.mu.RLock()
	loaded := len(l.memory)
	l.mu.RUnlock()
	return Stats{
		Loaded:       loaded,
		MemoryHits:   l.memoryHits.Load(),
		CacheHits:    l.cacheHits.Load(),
		Misses:       l.misses.Load(),
		CacheEnabled: l.cache != nil,
		BreakerState: l.breaker.State().String(),
	}
}

// ListIndexes returns the table names that have an index file, sorted.
func (l *Loader) ListIndexes() ([]string, error) {
	entries, err := os.ReadDir(l.indexDir)
	if err != nil {
		return nil, fmt.Errorf("listing index directory: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, indexer.IndexFilePrefix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		names = append(names, strings.TrimPrefix(name, indexer.IndexFilePrefix))
	}
	sort.Strings(names)
	return names, nil
}
