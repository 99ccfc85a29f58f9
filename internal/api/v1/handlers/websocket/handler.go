package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/connections"
	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/logger"
	"github.com/deepgram/lumina/internal/services/chat"
	"github.com/deepgram/lumina/internal/services/compose"
	"github.com/deepgram/lumina/internal/services/transcript"
)

const (
	FrameTranscript = "transcript"
	FrameSubmit     = "submit"
	FrameReset      = "reset"
	FrameCompose    = "compose"
	FrameDictation  = "dictation"
	FrameError      = "error"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
)

// InboundFrame is a command sent by the browser
type InboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// OutboundFrame is either a transcript snapshot, the compose buffer or an error
type OutboundFrame struct {
	Type      string           `json:"type"`
	Version   uint64           `json:"version,omitempty"`
	Messages  []models.Message `json:"messages,omitempty"`
	Streaming bool             `json:"streaming,omitempty"`
	Text      string           `json:"text,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func transcriptFrame(snap transcript.Snapshot) OutboundFrame {
	messages := snap.Messages
	if messages == nil {
		messages = []models.Message{}
	}
	return OutboundFrame{
		Type:      FrameTranscript,
		Version:   snap.Version,
		Messages:  messages,
		Streaming: snap.Streaming(),
	}
}

// HandleTranscriptStream pushes every transcript change to the client and
// accepts submit, reset, compose and dictation commands.
func HandleTranscriptStream(reconciler *chat.Reconciler, buffer *compose.Buffer, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", logger.WEBSOCKET).Err(err).Msg("Could not upgrade connection")
		return
	}

	info := manager.AddConnection(conn)
	defer func() {
		manager.RemoveConnection(conn)
		conn.Close()
	}()

	l := logger.For(logger.WEBSOCKET).With().Str("connection_id", info.ID).Logger()
	l.Info().Msg("Transcript stream opened")

	timeouts := manager.GetTimeouts()

	// Set up ping/pong handlers
	conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(timeouts.WriteWait)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	updates, unsubscribe := reconciler.Transcript().Subscribe()
	defer unsubscribe()

	replies := make(chan OutboundFrame, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(conn, timeouts, updates, replies, done)
	}()

	reply := func(f OutboundFrame) {
		select {
		case replies <- f:
		case <-writerDone:
		}
	}

	ctx := context.WithoutCancel(r.Context())

	// Message handling loop
	for {
		var frame InboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn().Err(err).Msg("Unexpected websocket closure")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))

		switch frame.Type {
		case FrameSubmit:
			handleSubmit(ctx, reconciler, buffer, frame.Text, reply)
		case FrameReset:
			if err := reconciler.Reset(ctx); err != nil {
				reply(OutboundFrame{Type: FrameError, Error: "Failed to reset conversation"})
			}
		case FrameCompose:
			buffer.Set(frame.Text)
			reply(OutboundFrame{Type: FrameCompose, Text: buffer.Text()})
		case FrameDictation:
			reply(OutboundFrame{Type: FrameCompose, Text: buffer.Append(frame.Text)})
		default:
			l.Debug().Str("type", frame.Type).Msg("Ignoring unknown frame")
			reply(OutboundFrame{Type: FrameError, Error: "Unknown frame type"})
		}
	}

	l.Info().Msg("Transcript stream closed")
}

// handleSubmit sends frame text, or the compose buffer when the frame has none.
// The buffer is only cleared once the submission is accepted.
func handleSubmit(ctx context.Context, reconciler *chat.Reconciler, buffer *compose.Buffer, text string, reply func(OutboundFrame)) {
	fromBuffer := text == ""
	if fromBuffer {
		text = buffer.Text()
	}

	_, err := reconciler.Start(ctx, text)
	switch {
	case errors.Is(err, chat.ErrEmptySubmission):
		return
	case errors.Is(err, chat.ErrTurnInFlight):
		reply(OutboundFrame{Type: FrameError, Error: "A reply is still streaming"})
		return
	case err != nil:
		log.Error().Str("component", logger.WEBSOCKET).Err(err).Msg("Failed to start turn")
		reply(OutboundFrame{Type: FrameError, Error: "Failed to start turn"})
		return
	}

	if fromBuffer && buffer.ClearIf(text) {
		reply(OutboundFrame{Type: FrameCompose, Text: ""})
	}
}

// writeLoop is the only writer of data frames on conn
func writeLoop(conn *websocket.Conn, timeouts connections.TimeoutConfig, updates <-chan transcript.Snapshot, replies <-chan OutboundFrame, done <-chan struct{}) {
	write := func(f OutboundFrame) bool {
		conn.SetWriteDeadline(time.Now().Add(timeouts.WriteWait))
		if err := conn.WriteJSON(f); err != nil {
			log.Debug().Str("component", logger.WEBSOCKET).Err(err).Msg("Failed to write frame")
			conn.Close()
			return false
		}
		return true
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if !write(transcriptFrame(snap)) {
				return
			}
		case f := <-replies:
			if !write(f) {
				return
			}
		case <-done:
			return
		}
	}
}
