package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/domain/chat"
	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/infrastructure/redis"
	"github.com/deepgram/lumina/internal/logger"
)

var (
	ErrSessionInit  = errors.New("session initialization failed")
	ErrHandleClosed = errors.New("session handle is closed")
)

// Handle is one conversation context with the remote model
type Handle struct {
	mu          sync.Mutex
	id          string
	model       string
	instruction string
	store       Store
	closed      bool
}

var _ chat.Session = &Handle{}

func (h *Handle) ID() string                { return h.id }
func (h *Handle) Model() string             { return h.model }
func (h *Handle) SystemInstruction() string { return h.instruction }

// History returns the exchanges committed so far
func (h *Handle) History(ctx context.Context) ([]models.Exchange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	return h.store.List(ctx, h.id)
}

// Commit records a completed exchange so later turns see it as context
func (h *Handle) Commit(ctx context.Context, exchange models.Exchange) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	return h.store.Append(ctx, h.id, exchange)
}

func (h *Handle) close() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	wasOpen := !h.closed
	h.closed = true
	return wasOpen
}

// Closed reports whether the handle was replaced by a reset
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type Service struct {
	store       Store
	model       string
	instruction string
}

// NewService picks the Redis store when Redis is reachable, memory otherwise
func NewService(redisService *redis.Service, ttl time.Duration, model, instruction string) *Service {
	var store Store
	if redisService != nil {
		// Test Redis connection
		ctx := context.Background()
		if err := redisService.Ping(ctx); err != nil {
			log.Warn().Str("component", logger.SESSION).Err(err).Msg("Redis unreachable, keeping session history in memory")
			store = NewMemoryStore()
		} else {
			store = NewRedisStore(redisService, ttl)
		}
	} else {
		store = NewMemoryStore()
	}

	return NewServiceWithStore(store, model, instruction)
}

func NewServiceWithStore(store Store, model, instruction string) *Service {
	return &Service{store: store, model: model, instruction: instruction}
}

// Init creates a new handle scoped to the configured model and instruction
func (s *Service) Init(ctx context.Context) (*Handle, error) {
	if s.model == "" {
		return nil, fmt.Errorf("%w: model identifier is not configured", ErrSessionInit)
	}
	if s.instruction == "" {
		return nil, fmt.Errorf("%w: system instruction is not configured", ErrSessionInit)
	}

	h := &Handle{
		id:          uuid.New().String(),
		model:       s.model,
		instruction: s.instruction,
		store:       s.store,
	}

	log.Info().
		Str("component", logger.SESSION).
		Str("session_id", h.id).
		Str("model", h.model).
		Msg("Session initialised")

	return h, nil
}

// Reset closes old, drops its stored history and returns a fresh handle
func (s *Service) Reset(ctx context.Context, old *Handle) (*Handle, error) {
	next, err := s.Init(ctx)
	if err != nil {
		return nil, err
	}

	if old != nil && old.close() {
		if err := s.store.Delete(ctx, old.id); err != nil {
			log.Warn().
				Str("component", logger.SESSION).
				Err(err).
				Str("session_id", old.id).
				Msg("Failed to delete history of replaced session")
		}
	}

	return next, nil
}
