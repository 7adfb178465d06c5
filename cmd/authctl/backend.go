package main

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	backendSQLite    = "sqlite"
	backendRedis     = "redis"
	backendMiniredis = "miniredis"
	backendTiered    = "tiered"
)

// openStore returns the configured backend and a cleanup func that releases
// every handle it opened.
func openStore(ctx context.Context, cfg cliConfig, log zerolog.Logger) (kv.Store, func(), error) {
	switch cfg.Backend {
	case backendSQLite:
		db, err := kv.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil

	case backendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: ping redis: %v", kv.ErrUnavailable, err)
		}
		return kv.NewRedis(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil

	case backendMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		log.Info().Str("addr", mr.Addr()).Msg("using in-process miniredis; state is lost on exit")
		return kv.NewRedis(client, cfg.RedisPrefix), func() {
			_ = client.Close()
			mr.Close()
		}, nil

	case backendTiered:
		db, err := kv.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		store, err := kv.NewTiered(kv.TieredConfig{
			Secure:        kv.NewRedis(client, cfg.RedisPrefix),
			Fallback:      db,
			AllowFallback: cfg.AllowFallback,
			Logger:        log,
		})
		if err != nil {
			_ = client.Close()
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() {
			_ = client.Close()
			_ = db.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
