package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortcutURL/config"
)

const (
	defaultPingTimeout = 5 * time.Second
	dialTimeout        = 3 * time.Second
	ioTimeout          = 500 * time.Millisecond
)

// NewClient builds a redis client using app config and verifies connectivity via PING.
// Short IO timeouts keep a slow Redis from stalling rate-limited requests.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(Options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", rdb.Options().Addr, err)
	}

	return rdb, nil
}

// Options translates cfg into client options with local defaults.
func Options(cfg config.RedisConfig) *redis.Options {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}
