package config

import (
	"sync"
	"time"
)

var (
	jwtSecretMu sync.RWMutex
	// JWTSecret is the secret key used to sign access tokens
	// In production, this should be loaded from environment variables
	JWTSecret = []byte(GetEnvOrDefault("JWT_SECRET", "your-256-bit-secret"))
)

// SetJWTSecret temporarily changes the JWT secret and returns a function to restore it
// This is primarily used for testing
func SetJWTSecret(secret []byte) func() {
	jwtSecretMu.Lock()
	previous := JWTSecret
	JWTSecret = secret
	jwtSecretMu.Unlock()

	return func() {
		jwtSecretMu.Lock()
		JWTSecret = previous
		jwtSecretMu.Unlock()
	}
}

// GetJWTSecret returns the current JWT secret in a thread-safe manner
func GetJWTSecret() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return JWTSecret
}

// GetTokenLifetime returns how long issued access tokens stay valid
func GetTokenLifetime() time.Duration {
	return parseEnvDuration("TOKEN_LIFETIME", 15*time.Minute)
}
