package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realty/catalog/internal/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "realty:catalog", Key())
	assert.Equal(t, "realty:catalog:saved:abc", Key("saved", "abc"))
	assert.Equal(t, "realty:catalog:saved", Key(":saved:", ""))
	assert.Equal(t, "realty:catalog:catalogctl:", Prefix("catalogctl"))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 3})
	assert.Equal(t, Options{Addr: "redis:6379", Password: "pw", DB: 3}, opts)
}

func TestConnect_EmptyAddr(t *testing.T) {
	rdb, err := Connect(context.Background(), Options{})
	assert.Error(t, err)
	assert.Nil(t, rdb)
	assert.NoError(t, Close(nil))
}

func TestConnect_Unreachable(t *testing.T) {
	// Nothing listens on the discard port.
	rdb, err := Connect(context.Background(), Options{Addr: "127.0.0.1:9", DialTimeout: 500 * time.Millisecond})
	assert.ErrorContains(t, err, "127.0.0.1:9")
	assert.Nil(t, rdb)
}

func TestConnect_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping Redis test")
	}
	rdb, err := Connect(context.Background(), Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	require.NoError(t, err)
	defer Close(rdb)

	ctx := context.Background()
	key := Key("test", t.Name())
	require.NoError(t, rdb.Set(ctx, key, "1", time.Minute).Err())
	defer rdb.Del(ctx, key)
	assert.Equal(t, "1", rdb.Get(ctx, key).Val())
}
