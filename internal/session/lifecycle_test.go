package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoQuestions() []Question {
	return []Question{
		{ID: uuid.New(), Text: "first", Type: TypeText, CorrectAnswer: "a", Points: 1},
		{ID: uuid.New(), Text: "second", Type: TypeText, CorrectAnswer: "b", Points: 1},
	}
}

func TestLifecycleAdvanceWalksSequence(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())
	assert.Equal(t, PhaseIdle, l.phase)
	assert.Equal(t, -1, l.index)

	q, err := l.advance()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "first", q.Text)
	assert.Equal(t, 0, l.index)
	assert.Equal(t, PhaseBroadcasting, l.phase)

	// Cannot advance past a question that is still on air.
	_, err = l.advance()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = l.reveal()
	require.NoError(t, err)
	assert.Equal(t, PhaseRevealed, l.phase)

	q, err = l.advance()
	require.NoError(t, err)
	assert.Equal(t, "second", q.Text)
	assert.Equal(t, 1, l.index)
}

func TestLifecycleCompleteAfterLastQuestion(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())

	for i := 0; i < 2; i++ {
		q, err := l.advance()
		require.NoError(t, err)
		require.NotNil(t, q)
		_, err = l.reveal()
		require.NoError(t, err)
	}

	q, err := l.advance()
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.Equal(t, PhaseComplete, l.phase)

	// Complete is terminal.
	_, err = l.advance()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = l.reveal()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycleRevealRequiresBroadcasting(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())

	_, err := l.reveal()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = l.advance()
	require.NoError(t, err)
	_, err = l.reveal()
	require.NoError(t, err)

	// Double reveal of the same question is rejected.
	_, err = l.reveal()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycleOnAir(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())

	_, on := l.onAir()
	assert.False(t, on)

	q, err := l.advance()
	require.NoError(t, err)
	onAir, on := l.onAir()
	assert.True(t, on)
	assert.Equal(t, q.ID, onAir.ID)

	_, err = l.reveal()
	require.NoError(t, err)
	_, on = l.onAir()
	assert.False(t, on)
}

func TestLifecycleCountdownTicksDownThenExpires(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())
	l.tickEvery = time.Millisecond

	_, err := l.advance()
	require.NoError(t, err)

	var mu sync.Mutex
	var ticks []int
	expired := make(chan uint64, 1)

	l.startCountdown(3,
		func(gen uint64, remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func(gen uint64) { expired <- gen },
	)

	select {
	case gen := <-expired:
		assert.Equal(t, l.generation, gen)
	case <-time.After(time.Second):
		t.Fatal("countdown never expired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1}, ticks)
}

func TestLifecycleStopCountdownCancelsTimer(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())
	l.tickEvery = time.Millisecond

	_, err := l.advance()
	require.NoError(t, err)

	expired := make(chan struct{}, 1)
	l.startCountdown(1000, func(uint64, int) {}, func(uint64) { close(expired) })
	l.stopCountdown()
	assert.Nil(t, l.cancel)

	select {
	case <-expired:
		t.Fatal("cancelled countdown still expired")
	case <-time.After(20 * time.Millisecond):
	}

	// Idempotent.
	l.stopCountdown()
}

func TestLifecycleGenerationIncrementsPerBroadcast(t *testing.T) {
	l := newQuestionLifecycle(twoQuestions())
	start := l.generation

	_, err := l.advance()
	require.NoError(t, err)
	assert.Equal(t, start+1, l.generation)

	_, err = l.reveal()
	require.NoError(t, err)
	_, err = l.advance()
	require.NoError(t, err)
	assert.Equal(t, start+2, l.generation)
}
