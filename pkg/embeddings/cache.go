package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheKey derives a stable cache key from model and text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// RedisCache stores vectors in Redis as little-endian float32 bytes.
// All failures degrade to cache misses.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache creates a RedisCache over an existing client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.L().Debug("embeddings: cache get failed", zap.Error(err))
		}
		return nil, false
	}
	vec := decodeVector(raw)
	if vec == nil {
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, encodeVector(vec), ttl).Err(); err != nil {
		zap.L().Debug("embeddings: cache set failed", zap.Error(err))
	}
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) []float32 {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
