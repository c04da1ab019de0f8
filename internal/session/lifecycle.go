package session

import (
	"context"
	"time"
)

// questionLifecycle drives one session's Idle -> Broadcasting -> Revealed
// cycle over a fixed question sequence, and owns the countdown timer for the
// question on air. State transitions run under the orchestrator lock; the
// countdown goroutine re-enters through orchestrator callbacks that reacquire
// it, so a cancelled or superseded timer can never tick or reveal.
type questionLifecycle struct {
	phase     string
	questions []Question
	index     int

	// generation increments on every broadcast. Timer callbacks carry the
	// generation they were armed with; a mismatch means the timer is stale.
	generation uint64

	// cancel is the single owned timer handle. Replaced on every broadcast,
	// never stacked; nulled out on cancel rather than left to fire into a
	// no-op so churned sessions do not leak countdown goroutines.
	cancel context.CancelFunc

	tickEvery time.Duration
}

func newQuestionLifecycle(questions []Question) *questionLifecycle {
	return &questionLifecycle{
		phase:     PhaseIdle,
		questions: questions,
		index:     -1,
		tickEvery: time.Second,
	}
}

// advance moves the sequence to the next question. Valid from Idle or
// Revealed. Returns (nil, nil) once the sequence is exhausted, after
// transitioning to Complete.
func (l *questionLifecycle) advance() (*Question, error) {
	if l.phase != PhaseIdle && l.phase != PhaseRevealed {
		return nil, ErrInvalidTransition
	}
	l.stopCountdown()
	l.index++
	l.generation++
	if l.index >= len(l.questions) {
		l.phase = PhaseComplete
		return nil, nil
	}
	l.phase = PhaseBroadcasting
	return &l.questions[l.index], nil
}

// reveal closes the question on air. Valid only from Broadcasting. Cancelling
// the countdown here is what guarantees a timed question reveals exactly once.
func (l *questionLifecycle) reveal() (*Question, error) {
	if l.phase != PhaseBroadcasting {
		return nil, ErrInvalidTransition
	}
	l.stopCountdown()
	l.phase = PhaseRevealed
	return &l.questions[l.index], nil
}

// onAir returns the broadcasting question, or false in any other phase.
func (l *questionLifecycle) onAir() (*Question, bool) {
	if l.phase != PhaseBroadcasting {
		return nil, false
	}
	return &l.questions[l.index], true
}

// startCountdown arms the owned timer for the question on air. onTick fires
// once per second with the seconds remaining; onExpire fires once when the
// countdown reaches zero. Both receive the arming generation so the
// orchestrator can discard callbacks from a superseded timer.
func (l *questionLifecycle) startCountdown(seconds int, onTick func(gen uint64, remaining int), onExpire func(gen uint64)) {
	l.stopCountdown()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	gen := l.generation

	go func() {
		ticker := time.NewTicker(l.tickEvery)
		defer ticker.Stop()
		remaining := seconds
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining--
				if remaining <= 0 {
					onExpire(gen)
					return
				}
				onTick(gen, remaining)
			}
		}
	}()
}

// stopCountdown cancels and releases the timer handle. Idempotent.
func (l *questionLifecycle) stopCountdown() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
