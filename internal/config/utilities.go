package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/logger"
)

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseEnvInt(key string, defaultValue int) int {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		log.Warn().
			Str("component", logger.CONFIG).
			Str("key", key).
			Int("default", defaultValue).
			Msg("Invalid integer value, using default")
		return defaultValue
	}

	return parsed
}

func parseEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		log.Warn().
			Str("component", logger.CONFIG).
			Str("key", key).
			Dur("default", defaultValue).
			Msg("Invalid duration value, using default")
		return defaultValue
	}

	return parsed
}
