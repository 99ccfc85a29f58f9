package oauth

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/logger"
	"github.com/deepgram/lumina/internal/services/oauth"
	"github.com/deepgram/lumina/pkg/httpext"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type TokenRequest struct {
	GrantType string `json:"grant_type"`
}

// HandleToken issues an access token for the anonymous grant
func HandleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.GrantType != oauth.GrantAnonymous {
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            "unsupported_grant_type",
			ErrorDescription: "only the anonymous grant is supported",
		})
		return
	}

	lifetime := config.GetTokenLifetime()
	tokenString, err := oauth.IssueToken(lifetime)
	if err != nil {
		log.Error().Str("component", logger.OAUTH).Err(err).Msg("Failed to issue token")
		httpext.JsonError(w, "Error creating token", http.StatusInternalServerError)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int(lifetime.Seconds()),
	})
}
