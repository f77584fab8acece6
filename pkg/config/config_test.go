package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".keyword-index/db", cfg.Corpus.DBDir)
	assert.Equal(t, ".keyword-index/index", cfg.Corpus.IndexDir)
	assert.Equal(t, []string{"BuiltIn"}, cfg.Corpus.Builtins)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
	assert.Equal(t, "index.complete", cfg.Kafka.Topics.IndexComplete)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 50, cfg.Server.DefaultLimit)
	assert.Equal(t, 500, cfg.Server.MaxResults)
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)

	assert.Equal(t, *defaultConfig(), *cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
corpus:
  dbDir: /tmp/db
  indexDir: /tmp/index
  builtins: [BuiltIn, Collections]
redis:
  enabled: true
  cacheTTL: 30s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/db", cfg.Corpus.DBDir)
	assert.Equal(t, "/tmp/index", cfg.Corpus.IndexDir)
	assert.Equal(t, []string{"BuiltIn", "Collections"}, cfg.Corpus.Builtins)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KI_CORPUS_DB_DIR", "/env/db")
	t.Setenv("KI_KAFKA_ENABLED", "true")
	t.Setenv("KI_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("KI_SERVER_PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/env/db", cfg.Corpus.DBDir)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Corpus.IndexDir = ""
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}
