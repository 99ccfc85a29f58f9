package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/logger"
)

type Service struct {
	client *redis.Client
}

// NewService connects using REDIS_URL. It returns nil when Redis is not
// configured or not reachable so callers can fall back to memory.
func NewService() *Service {
	url := config.GetRedisURL()

	if url == "" {
		log.Warn().Str("component", logger.REDIS).Msg("Redis URL not configured - service will be unavailable")
		return nil
	}

	s, err := Connect(context.Background(), url, config.GetRedisPassword())
	if err != nil {
		log.Error().
			Str("component", logger.REDIS).
			Err(err).
			Str("addr", url).
			Msg("Failed to establish Redis connection")
		return nil
	}
	return s
}

// Connect dials addr and verifies the connection with a PING
func Connect(ctx context.Context, addr, password string) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &Service{client: client}, nil
}

// RPush appends values to the list at key and refreshes its expiration
func (s *Service) RPush(ctx context.Context, key string, expiration time.Duration, values ...interface{}) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if expiration > 0 {
		pipe.Expire(ctx, key, expiration)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().
			Str("component", logger.REDIS).
			Err(err).
			Str("key", key).
			Dur("expiration", expiration).
			Msg("Critical Redis RPUSH operation failed")
		return err
	}
	return nil
}

// LRange returns the whole list stored at key
func (s *Service) LRange(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		log.Error().
			Str("component", logger.REDIS).
			Err(err).
			Str("key", key).
			Msg("Critical Redis LRANGE operation failed")
		return nil, err
	}
	return vals, nil
}

// Delete removes a key from Redis
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Ping checks if Redis is accessible
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Service) Close() error {
	return s.client.Close()
}
