package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "ki:index:BuiltIn-x.json", Key("index", "BuiltIn-x.json"))
	assert.Equal(t, "ki:index:*", Key("index", "*"))
}

// skipIfNoRedis connects to TEST_REDIS_ADDR or skips.
func skipIfNoRedis(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("skipping: TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(config.RedisConfig{Addr: addr, PoolSize: 2})
	if err != nil {
		t.Skipf("skipping: redis unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientRoundTrip(t *testing.T) {
	c := skipIfNoRedis(t)
	ctx := context.Background()
	key := Key("test", t.Name())

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, key, []byte(`{"keyword":[]}`), time.Minute))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"keyword":[]}`, string(got))

	n, err := c.FlushByPattern(ctx, Key("test", "*"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)
}
