package config

import (
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/logger"
)

const (
	// DefaultOpenAIBaseURL points at the OpenAI compatible Gemini endpoint
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModelName     = "gemini-2.5-flash"
)

// GetOpenAIKey returns the API key for the completion endpoint
func GetOpenAIKey() string {
	value := GetEnvOrDefault("OPENAI_KEY", "")
	if value == "" {
		log.Warn().Str("component", logger.CONFIG).Msg("OPENAI_KEY environment variable not set")
	}
	return value
}

// GetOpenAIBaseURL returns the base URL of the OpenAI compatible endpoint
func GetOpenAIBaseURL() string {
	return GetEnvOrDefault("OPENAI_BASE_URL", DefaultOpenAIBaseURL)
}

// GetModelName returns the model identifier sent with every turn
func GetModelName() string {
	return GetEnvOrDefault("MODEL_NAME", DefaultModelName)
}
