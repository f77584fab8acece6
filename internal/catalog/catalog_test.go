package catalog

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/table"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("skipping: TEST_POSTGRES_HOST not set")
	}
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(config.PostgresConfig{
		Host:            os.Getenv("TEST_POSTGRES_HOST"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "keyword_index_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "keyword_index"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEntryFromSummary(t *testing.T) {
	name := table.LibTableName("BuiltIn")
	e := EntryFromSummary(indexer.Summary{
		TableName: name,
		IndexPath: "/idx/index-" + name,
		Keywords:  3,
		Variables: 4,
		Tables:    1,
		Duration:  2 * time.Millisecond,
	})

	assert.Equal(t, Entry{
		Table:      name,
		ObjectName: "BuiltIn",
		IndexPath:  "/idx/index-" + name,
		Keywords:   3,
		Variables:  4,
		Tables:     1,
		DurationMs: 2,
	}, e)
}

func TestStoreRoundTrip(t *testing.T) {
	store := New(skipIfNoPostgres(t))
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	name := table.LibTableName("CatalogTestLibrary")
	t.Cleanup(func() { store.Delete(ctx, name) })

	store.Listener(ctx)(indexer.Summary{TableName: name, IndexPath: "/a", Keywords: 1, Tables: 1})
	require.NoError(t, store.Record(ctx, Entry{Table: name, ObjectName: "CatalogTestLibrary", IndexPath: "/b", Keywords: 7, Tables: 2}))

	got, err := store.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "/b", got.IndexPath)
	assert.Equal(t, 7, got.Keywords)
	assert.False(t, got.IndexedAt.IsZero())

	list, err := store.List(ctx, 1000)
	require.NoError(t, err)
	found := false
	for _, e := range list {
		found = found || e.Table == name
	}
	assert.True(t, found)

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Get(ctx, name)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
