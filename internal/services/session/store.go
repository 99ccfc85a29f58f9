package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/infrastructure/redis"
)

const historyKeyPrefix = "lumina:session:"

// Store keeps the committed exchanges of each session
type Store interface {
	Append(ctx context.Context, sessionID string, exchange models.Exchange) error
	List(ctx context.Context, sessionID string) ([]models.Exchange, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
	ttl          time.Duration
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Exchange
}

func NewRedisStore(redisService *redis.Service, ttl time.Duration) *RedisStore {
	return &RedisStore{redisService: redisService, ttl: ttl}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]models.Exchange),
	}
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID + ":history"
}

// Redis Store implementation
func (rs *RedisStore) Append(ctx context.Context, sessionID string, exchange models.Exchange) error {
	data, err := json.Marshal(exchange)
	if err != nil {
		return err
	}

	return rs.redisService.RPush(ctx, historyKey(sessionID), rs.ttl, string(data))
}

func (rs *RedisStore) List(ctx context.Context, sessionID string) ([]models.Exchange, error) {
	items, err := rs.redisService.LRange(ctx, historyKey(sessionID))
	if err != nil {
		return nil, err
	}

	exchanges := make([]models.Exchange, 0, len(items))
	for _, item := range items {
		var ex models.Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			return nil, fmt.Errorf("decode history of %s: %w", sessionID, err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, historyKey(sessionID))
}

// Memory Store implementation
func (ms *MemoryStore) Append(ctx context.Context, sessionID string, exchange models.Exchange) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[sessionID] = append(ms.sessions[sessionID], exchange)
	return nil
}

func (ms *MemoryStore) List(ctx context.Context, sessionID string) ([]models.Exchange, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	stored := ms.sessions[sessionID]
	out := make([]models.Exchange, len(stored))
	copy(out, stored)
	return out, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}
