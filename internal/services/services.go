package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/connections"
	domainchat "github.com/deepgram/lumina/internal/domain/chat"
	"github.com/deepgram/lumina/internal/infrastructure/openai"
	"github.com/deepgram/lumina/internal/infrastructure/redis"
	"github.com/deepgram/lumina/internal/logger"
	"github.com/deepgram/lumina/internal/services/chat"
	"github.com/deepgram/lumina/internal/services/compose"
	"github.com/deepgram/lumina/internal/services/session"
	"github.com/deepgram/lumina/internal/services/transport"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	redisService      *redis.Service
	sessionService    *session.Service
	reconciler        *chat.Reconciler
	composeBuffer     *compose.Buffer
	connectionManager *connections.Manager
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	log.Info().Str("component", logger.SERVICE).Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()

	// Initialize OpenAI service (required)
	openAIService := openai.NewService()
	if openAIService == nil {
		return nil, fmt.Errorf("failed to initialize OpenAI service: OPENAI_KEY is required")
	}

	tr, err := transport.NewOpenAITransport(openAIService.GetClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transport: %w", err)
	}

	return NewServices(redisService, tr)
}

// NewServices wires the chat stack around the given transport. redisService may be nil.
func NewServices(redisService *redis.Service, tr domainchat.Transport) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	sessionService := session.NewService(
		redisService,
		config.GetSessionTTL(),
		config.GetModelName(),
		config.GetSystemInstruction(),
	)

	handle, err := sessionService.Init(context.Background())
	if err != nil {
		log.Error().Str("component", logger.SERVICE).Err(err).Msg("Failed to initialize chat session - required for message processing")
		return nil, fmt.Errorf("failed to initialize chat session: %w", err)
	}

	reconciler := chat.NewReconciler(handle, sessionService, tr, chat.DefaultOptions())

	log.Info().
		Str("component", logger.SERVICE).
		Bool("redis", redisService != nil).
		Str("session_id", handle.ID()).
		Msg("All services initialized successfully")

	return &Services{
		redisService:      redisService,
		sessionService:    sessionService,
		reconciler:        reconciler,
		composeBuffer:     compose.NewBuffer(),
		connectionManager: connections.NewManager(connections.DefaultTimeouts),
	}, nil
}

// GetReconciler returns the stream reconciler that owns the transcript
func (s *Services) GetReconciler() *chat.Reconciler {
	return s.reconciler
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetComposeBuffer returns the shared compose buffer
func (s *Services) GetComposeBuffer() *compose.Buffer {
	return s.composeBuffer
}

// GetConnectionManager returns the websocket connection manager
func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connectionManager
}

// Shutdown waits for streaming turns, closes websockets and releases Redis
func (s *Services) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.reconciler.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Str("component", logger.SERVICE).Msg("Shutdown deadline reached with a turn still streaming")
	}

	s.connectionManager.CloseAll("server shutting down")

	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Error().Str("component", logger.SERVICE).Err(err).Msg("Failed to close Redis connection")
		}
	}
}
