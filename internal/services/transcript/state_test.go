package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/lumina/internal/domain/chat/models"
)

func streamingCount(s Snapshot) int {
	n := 0
	for _, m := range s.Messages {
		if m.Streaming {
			n++
		}
	}
	return n
}

func TestNewStateSeed(t *testing.T) {
	seed := models.NewModelMessage("hello")
	s := NewState(&seed)

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "hello", snap.Messages[0].Text)

	empty := NewState(nil)
	assert.Empty(t, empty.Snapshot().Messages)
}

func TestAppendRejectsSecondStreamingMessage(t *testing.T) {
	s := NewState(nil)
	first := models.NewPlaceholder()
	require.NoError(t, s.Append(first))

	err := s.Append(models.NewPlaceholder())
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 1, streamingCount(s.Snapshot()))
	assert.Len(t, s.Snapshot().Messages, 1)

	// a finished message can still be appended
	require.NoError(t, s.Append(models.NewUserMessage("hi")))
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	s := NewState(nil)
	msg := models.NewUserMessage("hi")
	require.NoError(t, s.Append(msg))
	require.ErrorIs(t, s.Append(msg), ErrInvariantViolation)
}

func TestUpdateText(t *testing.T) {
	s := NewState(nil)
	user := models.NewUserMessage("Hello")
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(user))
	require.NoError(t, s.Append(placeholder))

	require.NoError(t, s.UpdateText(placeholder.ID, "Hi"))
	require.NoError(t, s.UpdateText(placeholder.ID, "Hi there"))

	got, ok := s.Get(placeholder.ID)
	require.True(t, ok)
	assert.Equal(t, "Hi there", got.Text)
	assert.True(t, got.Streaming)
	assert.Equal(t, placeholder.Timestamp, got.Timestamp)

	unchanged, _ := s.Get(user.ID)
	assert.Equal(t, user, unchanged)

	t.Run("regression is rejected", func(t *testing.T) {
		require.ErrorIs(t, s.UpdateText(placeholder.ID, "Hi"), ErrInvariantViolation)
		got, _ := s.Get(placeholder.ID)
		assert.Equal(t, "Hi there", got.Text)
	})

	t.Run("unknown id", func(t *testing.T) {
		require.ErrorIs(t, s.UpdateText("missing", "x"), ErrNotFound)
	})

	t.Run("finished message", func(t *testing.T) {
		require.ErrorIs(t, s.UpdateText(user.ID, "Hello again"), ErrNotStreaming)
	})
}

func TestFinalize(t *testing.T) {
	s := NewState(nil)
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(placeholder))
	require.NoError(t, s.UpdateText(placeholder.ID, "Hi"))

	require.NoError(t, s.Finalize(placeholder.ID, "Hi there!"))
	got, _ := s.Get(placeholder.ID)
	assert.Equal(t, "Hi there!", got.Text)
	assert.False(t, got.Streaming)
	assert.False(t, got.Errored)

	// idempotent with identical arguments
	require.NoError(t, s.Finalize(placeholder.ID, "Hi there!"))
	// frozen afterwards
	require.ErrorIs(t, s.Finalize(placeholder.ID, "Hi"), ErrInvariantViolation)
	require.ErrorIs(t, s.UpdateText(placeholder.ID, "Hi there!!"), ErrNotStreaming)

	require.ErrorIs(t, s.Finalize("missing", ""), ErrNotFound)
}

func TestFinalizeRejectsRegression(t *testing.T) {
	s := NewState(nil)
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(placeholder))
	require.NoError(t, s.UpdateText(placeholder.ID, "Once upon"))

	require.ErrorIs(t, s.Finalize(placeholder.ID, "Once"), ErrInvariantViolation)
	got, _ := s.Get(placeholder.ID)
	assert.True(t, got.Streaming)
}

func TestReplaceWithError(t *testing.T) {
	s := NewState(nil)
	user := models.NewUserMessage("Ping")
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(user))
	require.NoError(t, s.Append(placeholder))

	errMsg, err := s.ReplaceWithError(placeholder.ID, "failed")
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, user.ID, snap.Messages[0].ID)
	assert.Equal(t, errMsg.ID, snap.Messages[1].ID)
	assert.NotEqual(t, placeholder.ID, errMsg.ID)
	assert.Equal(t, models.RoleModel, snap.Messages[1].Role)
	assert.True(t, snap.Messages[1].Errored)
	assert.False(t, snap.Messages[1].Streaming)
	assert.Equal(t, "failed", snap.Messages[1].Text)

	_, ok := s.Get(placeholder.ID)
	assert.False(t, ok)
}

func TestReplaceWithErrorKeepsPartialText(t *testing.T) {
	s := NewState(nil)
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(placeholder))
	require.NoError(t, s.UpdateText(placeholder.ID, "Once"))

	_, err := s.ReplaceWithError(placeholder.ID, "failed")
	require.ErrorIs(t, err, ErrInvariantViolation)

	got, ok := s.Get(placeholder.ID)
	require.True(t, ok)
	assert.Equal(t, "Once", got.Text)
}

func TestReset(t *testing.T) {
	s := NewState(nil)
	require.NoError(t, s.Append(models.NewUserMessage("a")))
	require.NoError(t, s.Append(models.NewPlaceholder()))

	before := s.Snapshot()

	seed := models.NewModelMessage("cleared")
	s.Reset(&seed)
	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, seed.ID, snap.Messages[0].ID)
	assert.Greater(t, snap.Version, before.Version)

	// earlier snapshots are not mutated by later changes
	assert.Len(t, before.Messages, 2)

	s.Reset(nil)
	assert.Empty(t, s.Snapshot().Messages)
}

func TestSubscribeSeesMonotonicText(t *testing.T) {
	s := NewState(nil)
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(placeholder))

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	initial := <-ch
	require.Len(t, initial.Messages, 1)

	var lastVersion uint64 = initial.Version
	lastText := ""
	acc := ""
	for _, frag := range []string{"a", "b", "c", "d"} {
		acc += frag
		require.NoError(t, s.UpdateText(placeholder.ID, acc))

		snap := <-ch
		assert.Greater(t, snap.Version, lastVersion)
		assert.GreaterOrEqual(t, len(snap.Messages[0].Text), len(lastText))
		lastVersion = snap.Version
		lastText = snap.Messages[0].Text
	}
	assert.Equal(t, "abcd", lastText)
}

func TestSubscribeLatestWins(t *testing.T) {
	s := NewState(nil)
	placeholder := models.NewPlaceholder()
	require.NoError(t, s.Append(placeholder))

	ch, unsubscribe := s.Subscribe()

	require.NoError(t, s.UpdateText(placeholder.ID, "a"))
	require.NoError(t, s.UpdateText(placeholder.ID, "ab"))
	require.NoError(t, s.Finalize(placeholder.ID, "abc"))

	snap := <-ch
	assert.Equal(t, "abc", snap.Messages[0].Text)
	assert.False(t, snap.Streaming())

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)

	// unsubscribing twice is safe
	unsubscribe()
}
