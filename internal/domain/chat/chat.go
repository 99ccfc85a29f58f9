// Package chat holds the contracts between the stream reconciler and the
// remote model collaborator.
package chat

import (
	"context"

	"github.com/deepgram/lumina/internal/domain/chat/models"
)

// Session is the read side of a session handle the transport needs to build a request
type Session interface {
	ID() string
	Model() string
	SystemInstruction() string
	History(ctx context.Context) ([]models.Exchange, error)
}

// FragmentSequence is a lazy, finite, non-restartable sequence of reply fragments.
// Next returns io.EOF once the reply is complete; any other error is a fault.
type FragmentSequence interface {
	Next() (string, error)
	Close() error
}

// Transport issues one model call per user turn
type Transport interface {
	SendStream(ctx context.Context, session Session, userText string) (FragmentSequence, error)
}
