package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/domain/chat"
	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/logger"
	"github.com/deepgram/lumina/internal/services/session"
	"github.com/deepgram/lumina/internal/services/transcript"
)

var (
	ErrEmptySubmission = errors.New("submission is empty")
	ErrTurnInFlight    = errors.New("a reply is still streaming")
	ErrTransportPanic  = errors.New("transport panicked")

	errStale = errors.New("turn is stale")
)

// TurnState is the lifecycle position of the most recent turn
type TurnState string

const (
	TurnIdle                  TurnState = "idle"
	TurnAwaitingFirstFragment TurnState = "awaiting_first_fragment"
	TurnStreaming             TurnState = "streaming"
	TurnFinalized             TurnState = "finalized"
	TurnFailed                TurnState = "failed"
	TurnDiscarded             TurnState = "discarded"
)

// Sessions creates and replaces session handles
type Sessions interface {
	Init(ctx context.Context) (*session.Handle, error)
	Reset(ctx context.Context, old *session.Handle) (*session.Handle, error)
}

type Options struct {
	Greeting      string
	ResetGreeting string
	ErrorText     string
}

func DefaultOptions() Options {
	return Options{
		Greeting:      config.Greeting,
		ResetGreeting: config.ResetGreeting,
		ErrorText:     config.ErrorReplyText,
	}
}

// Reconciler turns a user submission and the fragment stream that answers it
// into transcript mutations. One turn runs at a time.
type Reconciler struct {
	sessions   Sessions
	transport  chat.Transport
	transcript *transcript.State
	opts       Options

	mu         sync.Mutex
	handle     *session.Handle
	generation uint64
	inFlight   bool
	state      TurnState

	wg sync.WaitGroup
}

type turn struct {
	generation    uint64
	handle        *session.Handle
	userText      string
	placeholderID string
	text          string
	received      int
}

// NewReconciler seeds the transcript with the greeting. handle may be nil, in
// which case one is created on the first submission.
func NewReconciler(handle *session.Handle, sessions Sessions, transport chat.Transport, opts Options) *Reconciler {
	var seed *models.Message
	if opts.Greeting != "" {
		greeting := models.NewModelMessage(opts.Greeting)
		seed = &greeting
	}
	if opts.ErrorText == "" {
		opts.ErrorText = config.ErrorReplyText
	}

	return &Reconciler{
		sessions:   sessions,
		transport:  transport,
		transcript: transcript.NewState(seed),
		opts:       opts,
		handle:     handle,
		state:      TurnIdle,
	}
}

func (r *Reconciler) Transcript() *transcript.State {
	return r.transcript
}

// State returns the state of the most recent turn
func (r *Reconciler) State() TurnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// SessionID returns the id of the current handle, or "" before the first turn
func (r *Reconciler) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return ""
	}
	return r.handle.ID()
}

// Submit runs a whole turn and returns its terminal state
func (r *Reconciler) Submit(ctx context.Context, text string) (TurnState, error) {
	t, err := r.begin(ctx, text)
	if err != nil {
		return "", err
	}
	r.wg.Add(1)
	defer r.wg.Done()
	return r.drive(ctx, t), nil
}

// Start appends the user message and placeholder, then streams the reply in the
// background. The stream outlives ctx cancellation. Returns the placeholder id.
func (r *Reconciler) Start(ctx context.Context, text string) (string, error) {
	t, err := r.begin(ctx, text)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.drive(context.WithoutCancel(ctx), t)
	}()

	return t.placeholderID, nil
}

// Wait blocks until every turn started so far has reached a terminal state
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Reset replaces the session handle and reseeds the transcript. A turn still
// streaming is abandoned; its late fragments are ignored.
func (r *Reconciler) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.sessions.Reset(ctx, r.handle)
	if err != nil {
		log.Error().Str("component", logger.CHAT).Err(err).Msg("Failed to reset conversation")
		return fmt.Errorf("failed to reset conversation: %w", err)
	}

	if r.inFlight {
		log.Info().Str("component", logger.CHAT).Uint64("generation", r.generation).Msg("Abandoning in-flight turn")
	}

	r.handle = next
	r.generation++
	r.inFlight = false
	r.state = TurnIdle

	var seed *models.Message
	if r.opts.ResetGreeting != "" {
		greeting := models.NewModelMessage(r.opts.ResetGreeting)
		seed = &greeting
	}
	r.transcript.Reset(seed)
	return nil
}

func (r *Reconciler) begin(ctx context.Context, text string) (*turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptySubmission
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight {
		return nil, ErrTurnInFlight
	}
	if r.handle == nil {
		h, err := r.sessions.Init(ctx)
		if err != nil {
			return nil, err
		}
		r.handle = h
	}

	user := models.NewUserMessage(trimmed)
	placeholder := models.NewPlaceholder()
	if err := r.transcript.Append(user); err != nil {
		return nil, err
	}
	if err := r.transcript.Append(placeholder); err != nil {
		return nil, err
	}

	r.inFlight = true
	r.state = TurnAwaitingFirstFragment

	log.Debug().
		Str("component", logger.CHAT).
		Str("session_id", r.handle.ID()).
		Str("placeholder_id", placeholder.ID).
		Msg("Turn started")

	return &turn{
		generation:    r.generation,
		handle:        r.handle,
		userText:      trimmed,
		placeholderID: placeholder.ID,
	}, nil
}

func (r *Reconciler) drive(ctx context.Context, t *turn) (state TurnState) {
	defer func() {
		if p := recover(); p != nil {
			state = r.fail(t, fmt.Errorf("%w: %v", ErrTransportPanic, p))
		}
	}()

	seq, err := r.transport.SendStream(ctx, t.handle, t.userText)
	if err != nil {
		return r.fail(t, err)
	}
	defer seq.Close()

	for {
		fragment, err := seq.Next()
		if errors.Is(err, io.EOF) {
			return r.finalize(ctx, t)
		}
		if err != nil {
			return r.fail(t, err)
		}
		if fragment == "" {
			continue
		}

		if err := r.apply(t, fragment); err != nil {
			if errors.Is(err, errStale) {
				return TurnDiscarded
			}
			return r.fail(t, err)
		}
	}
}

func (r *Reconciler) apply(t *turn, fragment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staleLocked(t) {
		return errStale
	}

	next := t.text + fragment
	if err := r.transcript.UpdateText(t.placeholderID, next); err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			return errStale
		}
		return err
	}
	t.text = next
	t.received++
	r.state = TurnStreaming
	return nil
}

func (r *Reconciler) finalize(ctx context.Context, t *turn) TurnState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staleLocked(t) {
		return TurnDiscarded
	}

	if err := r.transcript.Finalize(t.placeholderID, t.text); err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			return TurnDiscarded
		}
		return r.failLocked(t, err)
	}

	if err := t.handle.Commit(ctx, models.Exchange{User: t.userText, Model: t.text}); err != nil {
		log.Warn().
			Str("component", logger.CHAT).
			Err(err).
			Str("session_id", t.handle.ID()).
			Msg("Failed to commit exchange to session history")
	}

	r.inFlight = false
	r.state = TurnFinalized

	log.Debug().
		Str("component", logger.CHAT).
		Str("placeholder_id", t.placeholderID).
		Int("fragments", t.received).
		Msg("Turn finalized")

	return TurnFinalized
}

func (r *Reconciler) fail(t *turn, cause error) TurnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failLocked(t, cause)
}

// failLocked leaves any partial reply in place and shows the error text after it
func (r *Reconciler) failLocked(t *turn, cause error) TurnState {
	if r.staleLocked(t) {
		return TurnDiscarded
	}

	log.Error().
		Str("component", logger.CHAT).
		Err(cause).
		Str("placeholder_id", t.placeholderID).
		Int("fragments", t.received).
		Msg("Turn failed")

	if t.received == 0 {
		if _, err := r.transcript.ReplaceWithError(t.placeholderID, r.opts.ErrorText); err != nil {
			if errors.Is(err, transcript.ErrNotFound) {
				return TurnDiscarded
			}
			log.Error().Str("component", logger.CHAT).Err(err).Msg("Failed to replace placeholder with error")
		}
	} else {
		if err := r.transcript.Finalize(t.placeholderID, t.text); err != nil {
			log.Error().Str("component", logger.CHAT).Err(err).Msg("Failed to finalize partial reply")
		}
		if err := r.transcript.Append(models.NewErrorMessage(r.opts.ErrorText)); err != nil {
			log.Error().Str("component", logger.CHAT).Err(err).Msg("Failed to append error message")
		}
	}

	r.inFlight = false
	r.state = TurnFailed
	return TurnFailed
}

func (r *Reconciler) staleLocked(t *turn) bool {
	if t.generation == r.generation {
		return false
	}
	log.Debug().
		Str("component", logger.CHAT).
		Str("placeholder_id", t.placeholderID).
		Msg("Dropping update for a turn abandoned by reset")
	return true
}

// Snapshot returns the current transcript
func (r *Reconciler) Snapshot() transcript.Snapshot {
	return r.transcript.Snapshot()
}
