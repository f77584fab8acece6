// Package postgres opens the lib/pq connection pool used by the index catalog
// and applies its schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/resilience"
	_ "github.com/lib/pq"
)

// Client is a pooled connection. The embedded *sql.DB is used directly for
// queries.
type Client struct {
	*sql.DB
}

var connectRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 250 * time.Millisecond}

// New opens a pool sized from cfg. The first ping is retried briefly so a
// database that is still starting does not fail the process.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = resilience.Retry(ctx, "postgres-connect", connectRetry, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{DB: db}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.PingContext(ctx)
}

// Migrate runs statements in order in a single transaction. Each must be safe
// to repeat.
func (c *Client) Migrate(ctx context.Context, statements ...string) error {
	tx, err := c.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}
