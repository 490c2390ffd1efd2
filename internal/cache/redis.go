package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache fronts the synthesis provider for text-only requests: repeated
// playback of the same text/voice/speed skips the model entirely. The cache
// is optional; when Redis is unreachable the service runs without it.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// SynthesisKey derives a cache key from the synthesis inputs. The text is
// hashed so arbitrary-length utterances produce bounded keys.
func SynthesisKey(text, voiceID string, speed float64) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("tts:%s:%s:%.2f", voiceID, hex.EncodeToString(sum[:8]), speed)
}
