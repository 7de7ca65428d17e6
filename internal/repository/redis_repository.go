package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NewRedisRepository stores each slot as one JSON string. A zero ttl keeps
// slots until they are deleted.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisRepository struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisRepository) GetCart(ctx context.Context, key string) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeLines(data)
}

func (r *RedisRepository) SaveCart(ctx context.Context, key string, lines []domain.CartLine) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, string(data), r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisRepository) DeleteCart(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *RedisRepository) ttl() time.Duration {
	if r.baseTTL <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}
