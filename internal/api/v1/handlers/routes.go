package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	v1chat "github.com/deepgram/lumina/internal/api/v1/handlers/chat"
	v1oauth "github.com/deepgram/lumina/internal/api/v1/handlers/oauth"
	v1ws "github.com/deepgram/lumina/internal/api/v1/handlers/websocket"
	v1mware "github.com/deepgram/lumina/internal/api/v1/middleware"
	"github.com/deepgram/lumina/internal/services"
	"github.com/deepgram/lumina/internal/services/oauth"
)

func RegisterV1Routes(router *mux.Router, services *services.Services) {
	// v1 routes
	v1 := router.PathPrefix("/v1").Subrouter()

	// OAuth v1 routes (no auth required)
	v1oauthRouter := v1.PathPrefix("/oauth").Subrouter()
	v1oauthRouter.Handle("/token", v1mware.RateLimit("oauth_token")(http.HandlerFunc(v1oauth.HandleToken))).Methods("POST")

	// Protected v1 routes (require auth)
	v1protectedRouter := v1.NewRoute().Subrouter()
	v1protectedRouter.Use(v1mware.RequireAuth([]string{oauth.GrantAnonymous}))

	reconciler := services.GetReconciler()

	v1protectedRouter.Handle("/ws", v1mware.RequireScope(oauth.ScopeChatWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1ws.HandleTranscriptStream(reconciler, services.GetComposeBuffer(), services.GetConnectionManager(), w, r)
	}))).Methods("GET")

	// Protected v1 chat routes
	v1chatRouter := v1protectedRouter.PathPrefix("/chat").Subrouter()
	v1chatRouter.Handle("/transcript", v1mware.RequireScope(oauth.ScopeChatRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleTranscript(reconciler, w, r)
	}))).Methods("GET")

	v1chatWriteRouter := v1chatRouter.NewRoute().Subrouter()
	v1chatWriteRouter.Use(v1mware.RequireScope(oauth.ScopeChatWrite))
	v1chatWriteRouter.Handle("/messages", v1mware.RateLimit("chat_submit")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleSubmit(reconciler, w, r)
	}))).Methods("POST")
	v1chatWriteRouter.Handle("/reset", v1mware.RateLimit("chat_reset")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v1chat.HandleReset(reconciler, w, r)
	}))).Methods("POST")
}
