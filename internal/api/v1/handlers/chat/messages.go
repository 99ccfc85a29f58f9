package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/logger"
	chatsvc "github.com/deepgram/lumina/internal/services/chat"
	"github.com/deepgram/lumina/internal/services/transcript"
	"github.com/deepgram/lumina/pkg/httpext"
)

// Conversation is the part of the reconciler the HTTP surface drives
type Conversation interface {
	Start(ctx context.Context, text string) (string, error)
	Reset(ctx context.Context) error
	Snapshot() transcript.Snapshot
}

type SubmitRequest struct {
	Text string `json:"text"`
}

type SubmitResponse struct {
	Accepted  bool   `json:"accepted"`
	MessageID string `json:"message_id,omitempty"`
}

type TranscriptResponse struct {
	Version   uint64           `json:"version"`
	Messages  []models.Message `json:"messages"`
	Streaming bool             `json:"streaming"`
}

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

func NewTranscriptResponse(snap transcript.Snapshot) TranscriptResponse {
	return TranscriptResponse{
		Version:   snap.Version,
		Messages:  snap.Messages,
		Streaming: snap.Streaming(),
	}
}

func HandleTranscript(conv Conversation, w http.ResponseWriter, r *http.Request) {
	httpext.JsonResponse(w, http.StatusOK, NewTranscriptResponse(conv.Snapshot()))
}

// HandleSubmit starts a turn and answers before the reply has streamed
func HandleSubmit(conv Conversation, w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Str("component", logger.HANDLER).Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	maxLen := config.GetMaxSubmissionLength()
	if err := validate.Var(req.Text, fmt.Sprintf("max=%d", maxLen)); err != nil {
		log.Warn().Str("component", logger.HANDLER).Int("length", len(req.Text)).Msg("Submission too long")
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: fmt.Sprintf("text must be at most %d characters", maxLen),
		})
		return
	}

	id, err := conv.Start(r.Context(), req.Text)
	switch {
	case errors.Is(err, chatsvc.ErrEmptySubmission):
		httpext.JsonResponse(w, http.StatusOK, SubmitResponse{Accepted: false})
		return
	case errors.Is(err, chatsvc.ErrTurnInFlight):
		httpext.JsonError(w, "A reply is still streaming", http.StatusConflict)
		return
	case err != nil:
		log.Error().Str("component", logger.HANDLER).Err(err).Msg("Failed to start turn")
		httpext.JsonError(w, "Failed to start turn", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("component", logger.HANDLER).
		Str("client_ip", r.RemoteAddr).
		Str("message_id", id).
		Msg("Turn accepted")

	httpext.JsonResponse(w, http.StatusAccepted, SubmitResponse{Accepted: true, MessageID: id})
}

func HandleReset(conv Conversation, w http.ResponseWriter, r *http.Request) {
	if err := conv.Reset(r.Context()); err != nil {
		log.Error().Str("component", logger.HANDLER).Err(err).Msg("Failed to reset conversation")
		httpext.JsonError(w, "Failed to reset conversation", http.StatusInternalServerError)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, NewTranscriptResponse(conv.Snapshot()))
}
