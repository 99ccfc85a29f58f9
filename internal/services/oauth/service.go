package oauth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/logger"
)

const (
	GrantAnonymous = "anonymous"
	ClientBrowser  = "browser"

	ScopeChatRead  = "chat:read"
	ScopeChatWrite = "chat:write"
)

// ExtractToken reads a bearer token from the Authorization header, falling back
// to the access_token query parameter browsers use for websocket upgrades.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token
		}
		log.Debug().Str("component", logger.OAUTH).Msg("No Authorization header found")
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		log.Warn().Str("component", logger.OAUTH).Msg("Malformed Authorization header")
		return ""
	}

	return parts[1]
}

type TokenValidationResult struct {
	Valid      bool
	ClientType string
	GrantType  string
	ExpiresAt  time.Time
	Scopes     []string
}

type CustomClaims struct {
	jwt.RegisteredClaims
	ClientType string   `json:"ctp"`
	GrantType  string   `json:"gty"`
	Scopes     []string `json:"scp"`
}

// IssueToken signs an anonymous browser token valid for lifetime
func IssueToken(lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		ClientType: ClientBrowser,
		GrantType:  GrantAnonymous,
		Scopes:     []string{ScopeChatRead, ScopeChatWrite},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string) TokenValidationResult {
	result := TokenValidationResult{Valid: false}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.GetJWTSecret(), nil
	})

	if err != nil {
		log.Warn().Str("component", logger.OAUTH).Err(err).Msg("Failed to parse token")
		return result
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		if claims.ClientType == "" {
			log.Warn().Str("component", logger.OAUTH).Msg("Missing client type in token")
			return result
		}

		if claims.GrantType != GrantAnonymous {
			log.Warn().Str("component", logger.OAUTH).Str("grant_type", claims.GrantType).Msg("Invalid grant type in token")
			return result
		}

		result.Valid = true
		result.ClientType = claims.ClientType
		result.GrantType = claims.GrantType
		result.ExpiresAt = claims.ExpiresAt.Time
		result.Scopes = claims.Scopes
		return result
	}

	log.Warn().Str("component", logger.OAUTH).Msg("Invalid token claims")
	return result
}
