package config

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/logger"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"oauth_token": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_OAUTH_TOKEN", 30), // 30 requests per minute
			Window:  time.Minute,
		},
		"chat_submit": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_CHAT_SUBMIT", 60), // 60 requests per minute
			Window:  time.Minute,
		},
		"chat_reset": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_CHAT_RESET", 20),
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("component", logger.CONFIG).Str("key", key).Msg("No rate limit config found")
	return RateLimitConfig{Enabled: false}
}
