// Package chattest provides a scripted chat.Transport for tests.
package chattest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/deepgram/lumina/internal/domain/chat"
	"github.com/deepgram/lumina/internal/domain/chat/models"
)

// ErrScripted is the default fault injected by scripts
var ErrScripted = errors.New("chattest: scripted fault")

// Script describes how one turn behaves
type Script struct {
	// SendErr fails the initial SendStream call
	SendErr error
	// Fragments are yielded in order
	Fragments []string
	// Err, when set, is returned after all fragments instead of io.EOF
	Err error
	// Panic makes Next panic after all fragments
	Panic bool
	// Gate, when set, must receive once before every Next call returns
	Gate chan struct{}
}

// Call records one SendStream invocation
type Call struct {
	SessionID string
	Model     string
	Text      string
	History   []models.Exchange
}

// Transport replays scripts in the order they were pushed.
// Once the queue is empty it yields an empty reply.
type Transport struct {
	mu      sync.Mutex
	scripts []Script
	calls   []Call
}

var _ chat.Transport = &Transport{}

func New(scripts ...Script) *Transport {
	return &Transport{scripts: scripts}
}

// Push queues a script for the next turn
func (t *Transport) Push(s Script) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts = append(t.scripts, s)
}

func (t *Transport) SendStream(ctx context.Context, session chat.Session, userText string) (chat.FragmentSequence, error) {
	history, err := session.History(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.calls = append(t.calls, Call{
		SessionID: session.ID(),
		Model:     session.Model(),
		Text:      userText,
		History:   history,
	})
	var s Script
	if len(t.scripts) > 0 {
		s = t.scripts[0]
		t.scripts = t.scripts[1:]
	}
	t.mu.Unlock()

	if s.SendErr != nil {
		return nil, s.SendErr
	}
	return &Sequence{script: s}, nil
}

// Calls returns a copy of the recorded calls
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// Sequence is the fragment sequence produced by a Script
type Sequence struct {
	mu     sync.Mutex
	script Script
	next   int
	closed bool
}

func (s *Sequence) Next() (string, error) {
	if s.script.Gate != nil {
		<-s.script.Gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", io.ErrClosedPipe
	}
	if s.next < len(s.script.Fragments) {
		frag := s.script.Fragments[s.next]
		s.next++
		return frag, nil
	}
	if s.script.Panic {
		panic("chattest: scripted panic")
	}
	if s.script.Err != nil {
		return "", s.script.Err
	}
	return "", io.EOF
}

func (s *Sequence) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether the consumer released the sequence
func (s *Sequence) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
