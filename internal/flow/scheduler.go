package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/safeline/helpline/internal/models"
)

// TurnScheduler arbitrates the conversational floor for one call.
//
// While the assistant is speaking, caller utterances are buffered in a
// single latest-wins slot instead of being processed, so a caller who talks
// over a prompt has their final correction honored and earlier fragments
// dropped. When the floor is idle, stray utterances are discarded.
type TurnScheduler struct {
	mu sync.Mutex

	phase        models.TurnPhase
	pending      string
	hasPending   bool
	lastPromptAt time.Time

	speaker   Speaker
	deliver   func(utterance string)
	nudgeText string

	speakTimeout    time.Duration
	responseTimeout time.Duration

	cancelSpeak context.CancelFunc
	speakSeq    int
}

// NewTurnScheduler creates a scheduler that plays prompts through speaker and
// hands accepted caller utterances to deliver.
func NewTurnScheduler(speaker Speaker, cfg Config, deliver func(utterance string)) *TurnScheduler {
	return &TurnScheduler{
		phase:           models.PhaseIdle,
		speaker:         speaker,
		deliver:         deliver,
		nudgeText:       "Are you still there? Please go ahead whenever you're ready.",
		speakTimeout:    cfg.SpeakTimeout,
		responseTimeout: cfg.ResponseTimeout,
	}
}

// Phase returns the current floor state.
func (t *TurnScheduler) Phase() models.TurnPhase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Speak plays a prompt asynchronously. A prompt issued while another is
// still playing supersedes it: the older playback is cancelled and its
// completion ignored.
func (t *TurnScheduler) Speak(ctx context.Context, text string) {
	t.mu.Lock()
	if t.cancelSpeak != nil {
		t.cancelSpeak()
	}
	t.speakSeq++
	seq := t.speakSeq
	speakCtx, cancel := context.WithTimeout(ctx, t.speakTimeout)
	t.cancelSpeak = cancel
	t.phase = models.PhaseSpeaking
	t.mu.Unlock()

	go func() {
		defer cancel()
		if err := t.speaker.Speak(speakCtx, text); err != nil {
			slog.Warn("prompt playback failed", "error", err)
		}
		t.finishSpeak(seq)
	}()
}

// finishSpeak transitions speaking -> waiting and drains the buffered
// utterance, if any. Stale completions from superseded prompts are ignored.
func (t *TurnScheduler) finishSpeak(seq int) {
	t.mu.Lock()
	if seq != t.speakSeq {
		t.mu.Unlock()
		return
	}
	t.phase = models.PhaseWaiting
	t.lastPromptAt = time.Now()
	if !t.hasPending {
		t.mu.Unlock()
		return
	}
	utterance := t.pending
	t.pending = ""
	t.hasPending = false
	t.phase = models.PhaseIdle
	t.mu.Unlock()
	t.deliver(utterance)
}

// HandleUtterance routes one caller utterance according to the floor state:
// buffered while speaking (latest wins), delivered while waiting, discarded
// while idle.
func (t *TurnScheduler) HandleUtterance(utterance string) {
	t.mu.Lock()
	switch t.phase {
	case models.PhaseSpeaking:
		t.pending = utterance
		t.hasPending = true
		t.mu.Unlock()
	case models.PhaseWaiting:
		t.phase = models.PhaseIdle
		t.mu.Unlock()
		t.deliver(utterance)
	default:
		t.mu.Unlock()
		slog.Debug("utterance discarded outside a turn", "utterance", utterance)
	}
}

// RunWatchdog re-prompts a silent caller. It blocks until ctx is cancelled.
func (t *TurnScheduler) RunWatchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			stalled := t.phase == models.PhaseWaiting && time.Since(t.lastPromptAt) > t.responseTimeout
			t.mu.Unlock()
			if stalled {
				slog.Debug("caller silent past response timeout, nudging")
				t.Speak(ctx, t.nudgeText)
			}
		}
	}
}
