// Package models defines the core data structures for the SafeLine helpline.
//
// It includes the case record built up during a call and the per-call
// dialogue state, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// CrimeType classifies the reported incident.
type CrimeType string

const (
	CrimeTypeScam       CrimeType = "scam"
	CrimeTypePhishing   CrimeType = "phishing"
	CrimeTypeHarassment CrimeType = "harassment"
	CrimeTypeHacking    CrimeType = "hacking"
	CrimeTypeDoxxing    CrimeType = "doxxing"
	CrimeTypeFraud      CrimeType = "fraud"
	CrimeTypeOther      CrimeType = "other"
)

// CrimeTypes lists all categories in declaration order. Classification
// ties are broken by this order.
var CrimeTypes = []CrimeType{
	CrimeTypeScam,
	CrimeTypePhishing,
	CrimeTypeHarassment,
	CrimeTypeHacking,
	CrimeTypeDoxxing,
	CrimeTypeFraud,
	CrimeTypeOther,
}

// IsValidCrimeType checks if the given crime type is one of the known categories.
func IsValidCrimeType(ct CrimeType) bool {
	for _, known := range CrimeTypes {
		if ct == known {
			return true
		}
	}
	return false
}

// Step identifies the current position in the intake dialogue.
type Step string

const (
	StepGreeting       Step = "greeting"
	StepConsent        Step = "consent"
	StepName           Step = "name"
	StepEmergencyCheck Step = "emergency_check"
	StepPhone          Step = "phone"
	// StepPhoneDigits is the digit-by-digit fallback entered after whole-utterance
	// phone extraction has exhausted its attempts.
	StepPhoneDigits  Step = "phone_digits"
	StepEmail        Step = "email"
	StepDescription  Step = "description"
	StepDate         Step = "date"
	StepConfirmation Step = "confirmation"
	// StepSaved is terminal. Once reached, all further input is discarded.
	StepSaved Step = "saved"
)

// TurnPhase captures whose turn it is. Exactly one phase holds at a time;
// the speaking/waiting flag pair is folded into this enum.
type TurnPhase int

const (
	// PhaseIdle means no question is outstanding; stray input is discarded.
	PhaseIdle TurnPhase = iota
	// PhaseSpeaking means TTS is in flight; caller input is buffered.
	PhaseSpeaking
	// PhaseWaiting means a prompt has been delivered and the caller may answer.
	PhaseWaiting
)

func (p TurnPhase) String() string {
	switch p {
	case PhaseSpeaking:
		return "speaking"
	case PhaseWaiting:
		return "waiting"
	default:
		return "idle"
	}
}

// NotProvided is the explicit placeholder recorded when the caller skips a
// field. It is distinct from the empty string (never asked / never answered);
// both map to NULL at the store boundary.
const NotProvided = "not provided"

// Error variables for better error handling and testability.
var (
	ErrCaseIncomplete = errors.New("case record is missing required fields")
	ErrCaseNotFound   = errors.New("case not found")
	ErrAlreadySaved   = errors.New("case already saved")
)

// CaseRecord is the single mutable aggregate describing one caller's report.
// It is mutated field by field as the dialogue advances and becomes immutable
// the moment it is persisted.
type CaseRecord struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	CrimeType    CrimeType `json:"crime_type"`
	IncidentDate string    `json:"incident_date"` // ISO-8601 date or best-effort text
	Description  string    `json:"description"`
	AmountLost   *float64  `json:"amount_lost,omitempty"`
	EvidenceRef  string    `json:"evidence,omitempty"`
	IsEmergency  bool      `json:"is_emergency"`
	Consent      bool      `json:"consent_recorded"`
	Transcript   string    `json:"transcript,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// AppendTranscript adds one line to the append-only transcript log.
func (c *CaseRecord) AppendTranscript(speaker, text string) {
	if text == "" {
		return
	}
	c.Transcript += speaker + ": " + text + "\n"
}

// MarkEmergency sets the sticky emergency flag. It never resets.
func (c *CaseRecord) MarkEmergency() {
	c.IsEmergency = true
}

// HasUsablePhone reports whether the phone field holds a real number rather
// than the skip placeholder or nothing.
func (c *CaseRecord) HasUsablePhone() bool {
	return c.Phone != "" && c.Phone != NotProvided && len(c.Phone) >= 7
}

// Fields flattens the record into the map consumed by the case store.
// Unset and placeholder values are omitted so optional columns end up NULL
// rather than holding data that looks real.
func (c *CaseRecord) Fields() map[string]any {
	fields := make(map[string]any)
	put := func(key, val string) {
		if val != "" && val != NotProvided {
			fields[key] = val
		}
	}
	put("name", c.Name)
	put("phone", c.Phone)
	put("email", c.Email)
	put("crime_type", string(c.CrimeType))
	put("incident_date", c.IncidentDate)
	put("description", c.Description)
	put("evidence", c.EvidenceRef)
	put("transcript", c.Transcript)
	if c.AmountLost != nil {
		fields["amount_lost"] = *c.AmountLost
	}
	fields["is_emergency"] = c.IsEmergency
	fields["consent_recorded"] = c.Consent
	return fields
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope for all JSON API responses.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message.
func SuccessWithMessage(message string, result any) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// DialogueState is the per-call session state driven by the conversation
// state machine. It is created when the caller connects and discarded when
// the call ends.
type DialogueState struct {
	CurrentStep Step
	// Attempts counts consecutive extraction failures for the field currently
	// being collected. Reset on every successful capture and on entering a
	// new step; only one field is collected at a time so a single counter
	// suffices.
	Attempts int
	// DigitBuffer accumulates digits while in StepPhoneDigits.
	DigitBuffer string
	// DigitTurns counts turns spent in digit-by-digit collection.
	DigitTurns int
	// CaseSaved is the terminal latch. Once true it never returns to false.
	CaseSaved bool
	StartedAt time.Time
}

// NewDialogueState returns the state for a freshly connected call.
func NewDialogueState() *DialogueState {
	return &DialogueState{
		CurrentStep: StepGreeting,
		StartedAt:   time.Now(),
	}
}

// EnterStep moves to a new step and resets the per-field bookkeeping.
func (d *DialogueState) EnterStep(step Step) {
	d.CurrentStep = step
	d.Attempts = 0
	if step != StepPhoneDigits {
		d.DigitBuffer = ""
		d.DigitTurns = 0
	}
}
