package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/services/oauth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func signedToken(t *testing.T, grant string, scopes []string) string {
	t.Helper()
	claims := oauth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
		ClientType:       oauth.ClientBrowser,
		GrantType:        grant,
		Scopes:           scopes,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.GetJWTSecret())
	require.NoError(t, err)
	return s
}

func TestRequireAuthAndScope(t *testing.T) {
	restore := config.SetJWTSecret([]byte("middleware-secret"))
	defer restore()

	handler := RequireAuth([]string{oauth.GrantAnonymous})(RequireScope(oauth.ScopeChatWrite)(okHandler))

	fullToken, err := oauth.IssueToken(time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{name: "valid token", authHeader: "Bearer " + fullToken, expectedStatus: http.StatusOK},
		{name: "missing token", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "missing scope", authHeader: "Bearer " + signedToken(t, oauth.GrantAnonymous, []string{oauth.ScopeChatRead}), expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/chat/transcript", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRequireAuthRejectsGrant(t *testing.T) {
	restore := config.SetJWTSecret([]byte("middleware-secret"))
	defer restore()

	token, err := oauth.IssueToken(time.Minute)
	require.NoError(t, err)

	handler := RequireAuth([]string{"client_credentials"})(okHandler)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireScopeWithoutAuth(t *testing.T) {
	w := httptest.NewRecorder()
	RequireScope(oauth.ScopeChatWrite)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimit(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_CHAT_RESET", "2")

	handler := RateLimit("chat_reset")(okHandler)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/v1/chat/reset", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "false")

	handler := RateLimit("chat_reset")(okHandler)
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/chat/reset", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
