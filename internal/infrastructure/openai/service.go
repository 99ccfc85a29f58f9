package openai

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/logger"
)

type Service struct {
	mu     sync.RWMutex
	client *openai.Client
}

// NewService builds a client for the configured OpenAI compatible endpoint.
// It returns nil when no key is configured.
func NewService() *Service {
	log.Info().Str("component", logger.SERVICE).Msg("Initialising OpenAI service")
	key := config.GetOpenAIKey()

	if key == "" {
		log.Warn().Str("component", logger.SERVICE).Msg("OpenAI service not configured - OPENAI_KEY missing")
		return nil
	}

	return NewServiceWithBaseURL(key, config.GetOpenAIBaseURL())
}

func NewServiceWithBaseURL(key, baseURL string) *Service {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Service{
		client: openai.NewClientWithConfig(cfg),
	}
}

func (s *Service) GetClient() *openai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}
