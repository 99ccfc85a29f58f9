package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	v1handlers "github.com/deepgram/lumina/internal/api/v1/handlers"
	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/logger"
	"github.com/deepgram/lumina/internal/services"
)

func main() {
	logger.Setup(os.Stderr)

	svcs, err := services.InitializeServices()
	if err != nil {
		log.Fatal().Str("component", logger.APP).Err(err).Msg("Failed to initialize services")
	}

	server := &http.Server{
		Addr:              config.GetListenAddr(),
		Handler:           setupRouter(svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("component", logger.APP).Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Str("component", logger.APP).Err(err).Msg("ListenAndServe error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Str("component", logger.APP).Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Str("component", logger.APP).Err(err).Msg("Server shutdown failed")
	}
	svcs.Shutdown(ctx)
}

func setupRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	v1handlers.RegisterV1Routes(r, svcs)
	return r
}
