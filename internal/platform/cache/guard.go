// Package cache provides a short-lived submission guard backed by Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Talha654/overlayPix-backend/pkg/config"
)

const keyNamespace = "overlaypix"

// ErrInFlight is returned when another request holds the key.
var ErrInFlight = errors.New("request already in flight")

// Guard rejects concurrent duplicate submissions keyed by an idempotency token.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type setNXer interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisGuard struct {
	store setNXer
	log   *zap.SugaredLogger
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := fmt.Sprintf("%s:guard:%s", keyNamespace, key)
	ok, err := g.store.SetNX(ctx, full, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		// redis is an optimisation; the database constraints still hold
		g.log.Warnw("guard acquire failed, continuing without guard", "key", full, "err", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrInFlight
	}
	return func() {
		if err := g.store.Del(context.Background(), full).Err(); err != nil {
			g.log.Warnw("guard release failed", "key", full, "err", err)
		}
	}, nil
}

// NopGuard always grants the key.
type NopGuard struct{}

func (NopGuard) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

func New(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) Guard {
	if cfg.Redis.Addr == "" {
		log.Infow("redis not configured, submission guard disabled")
		return NopGuard{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warnw("redis ping failed", "addr", cfg.Redis.Addr, "err", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return &RedisGuard{store: client, log: log}
}

var Module = fx.Options(
	fx.Provide(New),
)
