// Package rate implementa rate limiting de ventana fija por (sujeto, acción).
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el veredicto de una consulta al limiter.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration // resto de la ventana cuando se rechaza
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter admite hasta max hits por key dentro de una ventana fija.
// La ventana resetea estrictamente en el borde (aproximación aceptada,
// no es un sliding log).
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (Result, error)
}

// RedisLimiter: ventana fija con INCR + EXPIRE. El contador es atómico y
// compartido entre instancias, por eso es el limiter de producción.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
}

func NewRedisLimiter(client *rdb.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	hits := incr.Val()
	allowed := hits <= int64(max)
	remaining := int64(max) - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl.Val(),
	}
	if !allowed {
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(window.Seconds())) * time.Second
		}
	}
	return res, nil
}
