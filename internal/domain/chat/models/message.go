package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one transcript entry
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"streaming"`
	Errored   bool      `json:"errored"`
}

// NewUserMessage creates a finished message authored by the user
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewPlaceholder creates the empty model message a turn streams into
func NewPlaceholder() Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleModel,
		Timestamp: time.Now(),
		Streaming: true,
	}
}

// NewModelMessage creates a finished model message, used for greetings
func NewModelMessage(text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleModel,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage creates the model message shown when a turn fails
func NewErrorMessage(text string) Message {
	msg := NewModelMessage(text)
	msg.Errored = true
	return msg
}

// Exchange is one committed user/model pair in a session's history
type Exchange struct {
	User  string `json:"user"`
	Model string `json:"model"`
}
