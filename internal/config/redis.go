package config

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/logger"
)

func GetRedisURL() string {
	value := GetEnvOrDefault("REDIS_URL", "")
	if value == "" {
		log.Debug().Str("component", logger.CONFIG).Msg("REDIS_URL not set, session history stays in memory")
	}
	return value
}

func GetRedisPassword() string {
	return GetEnvOrDefault("REDIS_PASSWORD", "")
}

// GetSessionTTL returns how long a session's history is kept in the store
func GetSessionTTL() time.Duration {
	return parseEnvDuration("SESSION_TTL", 24*time.Hour)
}
