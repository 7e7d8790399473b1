package connect

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

// nonceTTL cubre con margen el TTL del state firmado.
const nonceTTL = stateTTL + time.Minute

// MemoryNonceStore: uso único dentro de una instancia (go-cache.Add es
// atómico: falla si la clave ya existe).
type MemoryNonceStore struct {
	c *gocache.Cache
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{c: gocache.New(nonceTTL, time.Minute)}
}

func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) bool {
	return s.c.Add("nonce:"+nonce, struct{}{}, nonceTTL) == nil
}

// RedisNonceStore: uso único compartido entre instancias vía SETNX.
type RedisNonceStore struct {
	client *rdb.Client
	prefix string
}

func NewRedisNonceStore(client *rdb.Client, prefix string) *RedisNonceStore {
	if prefix == "" {
		prefix = "nonce:"
	}
	return &RedisNonceStore{client: client, prefix: prefix}
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) bool {
	ok, err := s.client.SetNX(ctx, s.prefix+nonce, 1, nonceTTL).Result()
	if err != nil {
		// si redis no responde preferimos rechazar el state antes que
		// permitir un replay
		return false
	}
	return ok
}
