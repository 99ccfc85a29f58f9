package transcript

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/logger"
)

var (
	ErrInvariantViolation = errors.New("transcript invariant violation")
	ErrNotFound           = errors.New("message not found")
	ErrNotStreaming       = errors.New("message is not streaming")
)

// Snapshot is a read-only view of the transcript at one version
type Snapshot struct {
	Version  uint64           `json:"version"`
	Messages []models.Message `json:"messages"`
}

// Streaming reports whether a reply is still being appended
func (s Snapshot) Streaming() bool {
	for _, m := range s.Messages {
		if m.Streaming {
			return true
		}
	}
	return false
}

// State owns the ordered message log. Every mutation publishes a new
// snapshot to subscribers.
type State struct {
	mu          sync.RWMutex
	messages    []models.Message
	version     uint64
	subscribers map[int]chan Snapshot
	nextSubID   int
}

func NewState(seed *models.Message) *State {
	s := &State{subscribers: make(map[int]chan Snapshot)}
	if seed != nil {
		s.messages = []models.Message{*seed}
	}
	return s
}

// Append adds a message at the end of the transcript
func (s *State) Append(msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == msg.ID {
			return fmt.Errorf("%w: duplicate message id %s", ErrInvariantViolation, msg.ID)
		}
		if msg.Streaming && m.Streaming {
			return fmt.Errorf("%w: message %s is already streaming", ErrInvariantViolation, m.ID)
		}
	}
	if msg.Streaming && msg.Errored {
		return fmt.Errorf("%w: message %s is both streaming and errored", ErrInvariantViolation, msg.ID)
	}

	next := make([]models.Message, len(s.messages), len(s.messages)+1)
	copy(next, s.messages)
	s.messages = append(next, msg)
	s.publishLocked()
	return nil
}

// UpdateText replaces the text of the streaming message with id
func (s *State) UpdateText(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	current := s.messages[i]
	if !current.Streaming {
		return fmt.Errorf("%w: %s", ErrNotStreaming, id)
	}
	if !strings.HasPrefix(text, current.Text) {
		return fmt.Errorf("%w: text of %s would regress", ErrInvariantViolation, id)
	}
	if text == current.Text {
		return nil
	}

	s.replaceLocked(i, func(m *models.Message) { m.Text = text })
	return nil
}

// Finalize freezes the message with id. Calling it again with the same text is a no-op.
func (s *State) Finalize(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	current := s.messages[i]
	if !current.Streaming {
		if current.Text == text {
			return nil
		}
		return fmt.Errorf("%w: %s is already final", ErrInvariantViolation, id)
	}
	if !strings.HasPrefix(text, current.Text) {
		return fmt.Errorf("%w: final text of %s would regress", ErrInvariantViolation, id)
	}

	s.replaceLocked(i, func(m *models.Message) {
		m.Text = text
		m.Streaming = false
	})
	return nil
}

// ReplaceWithError removes a placeholder that never received text and appends
// an errored model message in its place.
func (s *State) ReplaceWithError(id, errorText string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Message{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	current := s.messages[i]
	if !current.Streaming {
		return models.Message{}, fmt.Errorf("%w: %s", ErrNotStreaming, id)
	}
	if current.Text != "" {
		return models.Message{}, fmt.Errorf("%w: %s already has text", ErrInvariantViolation, id)
	}

	errMsg := models.NewErrorMessage(errorText)
	next := make([]models.Message, 0, len(s.messages))
	next = append(next, s.messages[:i]...)
	next = append(next, s.messages[i+1:]...)
	s.messages = append(next, errMsg)
	s.publishLocked()
	return errMsg, nil
}

// Reset replaces the whole transcript with nothing or a single seed message
func (s *State) Reset(seed *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seed != nil {
		s.messages = []models.Message{*seed}
	} else {
		s.messages = nil
	}
	s.publishLocked()
}

// Get returns the message with id
func (s *State) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Message{}, false
	}
	return s.messages[i], true
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate versions. The returned func unsubscribes.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *State) indexLocked(id string) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// replaceLocked copies the slice so snapshots handed out earlier never change
func (s *State) replaceLocked(i int, mutate func(m *models.Message)) {
	next := make([]models.Message, len(s.messages))
	copy(next, s.messages)
	mutate(&next[i])
	s.messages = next
	s.publishLocked()
}

func (s *State) snapshotLocked() Snapshot {
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return Snapshot{Version: s.version, Messages: out}
}

func (s *State) publishLocked() {
	s.version++
	if len(s.subscribers) == 0 {
		return
	}

	snap := s.snapshotLocked()
	for id, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot the reader has not picked up yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
				log.Warn().Str("component", logger.TRANSCRIPT).Int("subscriber", id).Msg("Dropped transcript snapshot")
			}
		}
	}
}
