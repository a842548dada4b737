// Package flow implements the conversation engine for incident intake calls.
//
// A Session drives one call: it walks the caller through a fixed sequence of
// intake steps (name, emergency check, phone, email, description, date,
// confirmation), extracts structured fields from transcribed utterances, and
// hands the finished record to a Finalizer for persistence and SMS follow-up.
// A TurnScheduler arbitrates who holds the floor so that caller speech
// arriving mid-prompt is buffered rather than lost.
package flow

import (
	"context"
	"strings"
	"time"

	"github.com/safeline/helpline/internal/extract"
)

// Speaker delivers one assistant utterance to the caller. Implementations
// block until playback finishes or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Transcriber supplies finalized caller utterances for one call.
type Transcriber interface {
	// Start begins transcription. It must be called before Transcripts.
	Start(ctx context.Context) error
	// Transcripts returns the channel of finalized utterances. The channel
	// closes when the caller hangs up or Stop is called.
	Transcripts() <-chan string
	// Stop ends transcription and releases resources.
	Stop() error
}

// Config holds the tunable parameters of a call session.
type Config struct {
	// MaxFieldAttempts is how many failed extraction attempts a step absorbs
	// before the session degrades the field and moves on.
	MaxFieldAttempts int

	// ResponseTimeout is how long the session waits for the caller to answer
	// before the watchdog re-prompts.
	ResponseTimeout time.Duration

	// WatchdogInterval is how often the watchdog checks for a stalled turn.
	WatchdogInterval time.Duration

	// SpeakTimeout bounds a single prompt playback.
	SpeakTimeout time.Duration

	// CallTimeLimit bounds the whole call; when it expires the session saves
	// whatever it has.
	CallTimeLimit time.Duration

	// DigitTurnLimit bounds how many turns digit-by-digit phone collection
	// may take before the session gives up on the number.
	DigitTurnLimit int

	// MinPhoneDigits is the shortest digit string accepted as a phone number
	// when digit-by-digit collection ends early.
	MinPhoneDigits int

	// AskConsent controls whether the recording-consent step runs.
	AskConsent bool

	// CollectPhone controls whether the phone step runs. Deployments where
	// the caller ID is trusted can skip it.
	CollectPhone bool

	// EmergencyNumber is spoken to the caller during escalation.
	EmergencyNumber string

	// ExtraEmergencyKeywords extends the built-in emergency keyword list.
	ExtraEmergencyKeywords []string
}

// DefaultConfig returns the production defaults for a call session.
func DefaultConfig() Config {
	return Config{
		MaxFieldAttempts: 2,
		ResponseTimeout:  28 * time.Second,
		WatchdogInterval: 5 * time.Second,
		SpeakTimeout:     8 * time.Second,
		CallTimeLimit:    5 * time.Minute,
		DigitTurnLimit:   12,
		MinPhoneDigits:   7,
		AskConsent:       true,
		CollectPhone:     true,
		EmergencyNumber:  "112",
	}
}

// emergencyWords are single words that mark an utterance as describing an
// ongoing emergency. Matched on word boundaries so "moneyed" does not trip.
var emergencyWords = []string{
	"bank", "money", "transfer", "ongoing", "threatening", "ransom",
	"house", "kill", "threat", "danger", "emergency", "immediate",
}

// emergencyPhrases are multi-word emergency markers, matched as substrings.
// The list must not overlap the session's own emergency question: a phrase
// like "right now" would make the natural answer "no, not right now"
// escalate.
var emergencyPhrases = []string{
	"help now",
}

// IsEmergencyUtterance reports whether an utterance signals an ongoing
// emergency, using the built-in keyword list plus any extras from cfg.
func (cfg Config) IsEmergencyUtterance(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, w := range emergencyWords {
		if extract.ContainsWord(lower, w) {
			return true
		}
	}
	for _, p := range emergencyPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, k := range cfg.ExtraEmergencyKeywords {
		k = strings.ToLower(k)
		if strings.Contains(k, " ") {
			if strings.Contains(lower, k) {
				return true
			}
		} else if extract.ContainsWord(lower, k) {
			return true
		}
	}
	return false
}
