// Package cache connects the catalog to Redis and names the keys it owns
// there. Asynq keeps its own queue keys; everything else the catalog writes
// lives under Namespace.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"realty/catalog/internal/config"
	"realty/catalog/internal/logging"
)

// Namespace prefixes every catalog-owned Redis key.
const Namespace = "realty:catalog"

// DefaultDialTimeout bounds the initial PING when Options leaves it unset.
const DefaultDialTimeout = 5 * time.Second

// Key joins parts under Namespace, e.g. Key("saved", "abc") is
// "realty:catalog:saved:abc". Empty parts are dropped.
func Key(parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, Namespace)
	for _, p := range parts {
		if p = strings.Trim(p, ":"); p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, ":")
}

// Prefix is Key with a trailing separator, for stores that append their own
// key to it.
func Prefix(parts ...string) string {
	return Key(parts...) + ":"
}

// Options selects the Redis instance backing the image queue and saved searches.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// OptionsFromConfig reads the REDIS_* settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func (o Options) client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
}

// Connect dials Redis and returns once it answers PING.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	rdb := opts.client()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s did not answer: %w", opts.Addr, err)
	}

	logging.L().Info().Str("addr", opts.Addr).Int("db", opts.DB).Str("namespace", Namespace).Msg("redis ready")
	return rdb, nil
}

// Close releases rdb; a nil client is a no-op.
func Close(rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil {
		return fmt.Errorf("closing redis: %w", err)
	}
	return nil
}
