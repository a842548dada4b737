package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/safeline/helpline/internal/classify"
	"github.com/safeline/helpline/internal/extract"
	"github.com/safeline/helpline/internal/models"
)

// Session drives the intake dialogue for one call.
//
// All state mutation happens in processUtterance under the session mutex;
// the turn scheduler guarantees utterances arrive one at a time.
type Session struct {
	mu sync.Mutex

	cfg        Config
	callID     string
	rec        *models.CaseRecord
	state      *models.DialogueState
	sched      *TurnScheduler
	classifier *classify.Classifier
	finalizer  *Finalizer

	now   func() time.Time
	ended bool

	ctx      context.Context
	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates a session for one call. classifier and finalizer must
// be non-nil.
func NewSession(callID string, cfg Config, speaker Speaker, classifier *classify.Classifier, finalizer *Finalizer) *Session {
	s := &Session{
		cfg:        cfg,
		callID:     callID,
		rec:        &models.CaseRecord{},
		state:      models.NewDialogueState(),
		classifier: classifier,
		finalizer:  finalizer,
		now:        time.Now,
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	s.sched = NewTurnScheduler(speaker, cfg, s.processUtterance)
	return s
}

// Case returns the record being built. Callers must not mutate it while the
// session is running.
func (s *Session) Case() *models.CaseRecord { return s.rec }

// State returns the dialogue state, for inspection after the call ends.
func (s *Session) State() *models.DialogueState { return s.state }

// Run executes the call: it starts transcription, speaks the greeting, and
// consumes utterances until the caller hangs up, the case is saved, or the
// call time limit expires.
func (s *Session) Run(ctx context.Context, tr Transcriber) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeLimit)
	defer cancel()
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := tr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start transcription: %w", err)
	}
	defer tr.Stop()

	go s.sched.RunWatchdog(ctx, s.cfg.WatchdogInterval)

	s.mu.Lock()
	s.speak("Hello, you have reached SafeLine, the cybercrime helpline. How can I help you today?")
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			slog.Info("call time limit reached", "call_id", s.callID)
			s.finishEarly()
			return nil
		case <-s.done:
			return nil
		case utterance, ok := <-tr.Transcripts():
			if !ok {
				slog.Info("caller hung up", "call_id", s.callID)
				s.finishEarly()
				return nil
			}
			s.sched.HandleUtterance(utterance)
		}
	}
}

// finishEarly saves whatever was gathered when a call ends without reaching
// the confirmation step.
func (s *Session) finishEarly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.state.CaseSaved {
		return
	}
	s.ended = true
	if s.rec.Name != "" || s.rec.Description != "" || s.rec.IsEmergency {
		s.finalizer.SavePartial(s.ctx, s.rec)
		if s.rec.ID != "" {
			s.state.CaseSaved = true
		}
	}
}

// processUtterance is the single entry point for caller input. It is invoked
// by the turn scheduler with exactly one utterance at a time.
func (s *Session) processUtterance(utterance string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Terminal latch: once saved or ended, input is discarded.
	if s.state.CaseSaved || s.ended {
		slog.Debug("utterance after call end discarded", "call_id", s.callID)
		return
	}

	utterance = strings.TrimSpace(utterance)
	s.rec.AppendTranscript("caller", utterance)

	if utterance == "" {
		// Not an answer attempt; repeat the question without consuming a retry.
		s.speak(s.promptFor(s.state.CurrentStep))
		return
	}

	// Emergency keywords escalate from any step except the free-text
	// description, where words like "money" describe the incident rather
	// than signalling live danger.
	if s.state.CurrentStep != models.StepDescription && s.cfg.IsEmergencyUtterance(utterance) {
		s.escalate()
		return
	}

	switch s.state.CurrentStep {
	case models.StepGreeting:
		s.advance(s.stepAfterGreeting())
	case models.StepConsent:
		s.handleConsent(utterance)
	case models.StepName:
		s.handleName(utterance)
	case models.StepEmergencyCheck:
		s.handleEmergencyCheck(utterance)
	case models.StepPhone:
		s.handlePhone(utterance)
	case models.StepPhoneDigits:
		s.handlePhoneDigits(utterance)
	case models.StepEmail:
		s.handleEmail(utterance)
	case models.StepDescription:
		s.handleDescription(utterance)
	case models.StepDate:
		s.handleDate(utterance)
	case models.StepConfirmation:
		s.handleConfirmation(utterance)
	default:
		// Unknown state, e.g. after a bad restore. Start over rather than
		// dropping the call.
		slog.Warn("session in unknown step, restarting intake", "call_id", s.callID, "step", s.state.CurrentStep)
		s.state = models.NewDialogueState()
		s.advance(s.stepAfterGreeting())
	}
}

func (s *Session) stepAfterGreeting() models.Step {
	if s.cfg.AskConsent {
		return models.StepConsent
	}
	return models.StepName
}

func (s *Session) stepAfterEmergencyCheck() models.Step {
	if s.cfg.CollectPhone {
		return models.StepPhone
	}
	return models.StepEmail
}

func (s *Session) handleConsent(utterance string) {
	switch {
	case extract.IsAffirmative(utterance):
		s.rec.Consent = true
		s.advance(models.StepName)
	case extract.IsNegative(utterance):
		s.rec.Consent = false
		s.advance(models.StepName)
	default:
		s.retryOrDegrade("I didn't catch that. Is it okay if this call is recorded? Please say yes or no.", func() {
			s.rec.Consent = false
			s.advance(models.StepName)
		})
	}
}

func (s *Session) handleName(utterance string) {
	if name, ok := extract.Name(utterance); ok {
		s.rec.Name = name
		s.advance(models.StepEmergencyCheck)
		return
	}
	s.retryOrDegrade("Sorry, I didn't get your name. Could you please tell me your full name?", func() {
		// Accept the caller's words verbatim rather than holding up the call.
		s.rec.Name = utterance
		s.advance(models.StepEmergencyCheck)
	})
}

func (s *Session) handleEmergencyCheck(utterance string) {
	switch {
	case extract.IsAffirmative(utterance):
		s.escalate()
	case extract.IsNegative(utterance):
		s.advance(s.stepAfterEmergencyCheck())
	default:
		s.retryOrDegrade("Just to check: is this an emergency happening right now? Please say yes or no.", func() {
			s.advance(s.stepAfterEmergencyCheck())
		})
	}
}

func (s *Session) handlePhone(utterance string) {
	if extract.IsSkipRequest(utterance) {
		s.rec.Phone = models.NotProvided
		s.advance(models.StepEmail)
		return
	}
	if phone, ok := extract.Phone(utterance); ok {
		s.rec.Phone = phone
		s.advance(models.StepEmail)
		return
	}
	s.retryOrDegrade("Sorry, I couldn't catch the number. Could you repeat your phone number?", func() {
		// Fall back to collecting the number one digit at a time.
		s.state.EnterStep(models.StepPhoneDigits)
		s.speak("Let's try it one digit at a time. Please say the first digit of your phone number.")
	})
}

func (s *Session) handlePhoneDigits(utterance string) {
	s.state.DigitTurns++
	if extract.IsSkipRequest(utterance) || strings.Contains(strings.ToLower(utterance), "done") {
		s.finishPhoneDigits()
		return
	}
	if digits := extract.Digits(utterance); digits != "" {
		s.state.DigitBuffer += digits
	} else {
		s.speak("Sorry, I didn't hear a digit. Please say the next digit of your phone number.")
		if s.state.DigitTurns >= s.cfg.DigitTurnLimit {
			s.finishPhoneDigits()
		}
		return
	}
	if len(s.state.DigitBuffer) >= 10 || s.state.DigitTurns >= s.cfg.DigitTurnLimit {
		s.finishPhoneDigits()
		return
	}
	s.speak(fmt.Sprintf("Got %d digits so far. Please continue.", len(s.state.DigitBuffer)))
}

// finishPhoneDigits accepts the buffered digits if there are enough of them,
// otherwise records the phone as not provided.
func (s *Session) finishPhoneDigits() {
	digits := s.state.DigitBuffer
	if len(digits) > 10 {
		digits = digits[:10]
	}
	if len(digits) >= s.cfg.MinPhoneDigits {
		s.rec.Phone = digits
	} else {
		s.rec.Phone = models.NotProvided
	}
	s.advance(models.StepEmail)
}

func (s *Session) handleEmail(utterance string) {
	if extract.IsSkipRequest(utterance) {
		s.rec.Email = models.NotProvided
		s.advance(models.StepDescription)
		return
	}
	if email, ok := extract.Email(utterance, s.rec.Name); ok {
		s.rec.Email = email
		s.advance(models.StepDescription)
		return
	}
	s.retryOrDegrade("Sorry, I couldn't make out the email address. Could you spell it out, or say skip?", func() {
		s.rec.Email = models.NotProvided
		s.advance(models.StepDescription)
	})
}

func (s *Session) handleDescription(utterance string) {
	if extract.IsNonAnswer(utterance) {
		s.retryOrDegrade("Please tell me what happened, in your own words.", func() {
			s.rec.Description = utterance
			s.finishDescription()
		})
		return
	}
	s.rec.Description = utterance
	s.finishDescription()
}

// finishDescription classifies the incident and captures any incidental
// details before moving on to the date. Classification and the amount and
// evidence scans all run against the caller's raw words; only afterwards may
// the stored description be replaced by a professional rewrite.
func (s *Session) finishDescription() {
	s.rec.CrimeType = s.classifier.Classify(s.ctx, s.rec.Description)
	if amount, ok := extract.AmountLost(s.rec.Description); ok {
		s.rec.AmountLost = &amount
	}
	if ref, ok := extract.EvidenceURL(s.rec.Description); ok {
		s.rec.EvidenceRef = ref
	}
	s.rec.Description = s.classifier.RewriteDescription(s.ctx, s.rec.Description)
	s.advance(models.StepDate)
}

func (s *Session) handleDate(utterance string) {
	if extract.IsSkipRequest(utterance) {
		s.rec.IncidentDate = models.NotProvided
		s.advance(models.StepConfirmation)
		return
	}
	if date, ok := extract.Date(utterance, s.now()); ok {
		s.rec.IncidentDate = date
		s.advance(models.StepConfirmation)
		return
	}
	s.retryOrDegrade("Sorry, when did this happen? You can say something like yesterday, or a date.", func() {
		s.rec.IncidentDate = models.NotProvided
		s.advance(models.StepConfirmation)
	})
}

func (s *Session) handleConfirmation(utterance string) {
	switch {
	case extract.IsAffirmative(utterance):
		s.finalize()
	case extract.IsNegative(utterance):
		// Start the questions over. The phone number survives the reset,
		// as do the consent and emergency flags.
		s.rec.Name = ""
		s.rec.Email = ""
		s.rec.CrimeType = ""
		s.rec.IncidentDate = ""
		s.rec.Description = ""
		s.rec.AmountLost = nil
		s.rec.EvidenceRef = ""
		s.state.EnterStep(models.StepName)
		s.speak("No problem, let's go over it again. May I have your full name?")
	default:
		// Not a yes or a no; ask again without consuming a retry.
		s.speak(s.confirmationPrompt())
	}
}

// finalize persists the case and ends the call.
func (s *Session) finalize() {
	closing, err := s.finalizer.Finalize(s.ctx, s.rec)
	if err != nil {
		if errors.Is(err, models.ErrCaseIncomplete) {
			slog.Warn("case incomplete at confirmation, re-collecting", "call_id", s.callID, "error", err)
			s.state.EnterStep(models.StepName)
			s.speak("I'm missing a few details. Let's fill them in. May I have your full name?")
			return
		}
		slog.Error("case save failed", "call_id", s.callID, "error", err)
		s.ended = true
		s.speak("I'm very sorry, I couldn't save your complaint right now. Please call back in a few minutes.")
		s.end()
		return
	}
	s.state.CaseSaved = true
	s.state.EnterStep(models.StepSaved)
	s.speak(closing)
	s.end()
}

// escalate handles an emergency: the flag is set permanently, whatever has
// been gathered is saved, and the caller is directed to emergency services.
func (s *Session) escalate() {
	s.rec.MarkEmergency()
	s.finalizer.SavePartial(s.ctx, s.rec)
	if s.rec.ID != "" {
		s.state.CaseSaved = true
	}
	s.ended = true
	s.speak(fmt.Sprintf(
		"This sounds like an emergency. Please hang up and call %s immediately. I have recorded what you told me so far so you don't have to repeat it.",
		s.cfg.EmergencyNumber))
	s.end()
}

// retryOrDegrade implements bounded re-asking: below the attempt limit the
// caller hears retryPrompt, at the limit degrade runs and the flow moves on.
func (s *Session) retryOrDegrade(retryPrompt string, degrade func()) {
	s.state.Attempts++
	if s.state.Attempts < s.cfg.MaxFieldAttempts {
		s.speak(retryPrompt)
		return
	}
	degrade()
}

// advance moves to the next step and asks its question.
func (s *Session) advance(step models.Step) {
	s.state.EnterStep(step)
	s.speak(s.promptFor(step))
}

func (s *Session) promptFor(step models.Step) string {
	switch step {
	case models.StepGreeting:
		return "How can I help you today?"
	case models.StepConsent:
		return "Before we begin: is it okay if this call is recorded for your complaint? Please say yes or no."
	case models.StepName:
		return "I'm sorry to hear that. May I have your full name, please?"
	case models.StepEmergencyCheck:
		return "Thank you. Is this an emergency happening right now, or are you in any danger?"
	case models.StepPhone:
		return "What is a good phone number to reach you on?"
	case models.StepPhoneDigits:
		return "Please say the next digit of your phone number."
	case models.StepEmail:
		return "Do you have an email address we can use for updates? You can say skip."
	case models.StepDescription:
		return "Please describe what happened, in your own words."
	case models.StepDate:
		return "When did this happen?"
	case models.StepConfirmation:
		return s.confirmationPrompt()
	default:
		return "Let's continue."
	}
}

// confirmationPrompt reads the captured details back to the caller.
func (s *Session) confirmationPrompt() string {
	var b strings.Builder
	b.WriteString("Let me confirm what I have. ")
	b.WriteString("Your name is " + orNotProvided(s.rec.Name) + ". ")
	if s.cfg.CollectPhone {
		b.WriteString("Phone number " + spellOut(orNotProvided(s.rec.Phone)) + ". ")
	}
	b.WriteString("Email " + orNotProvided(s.rec.Email) + ". ")
	if s.rec.CrimeType != "" {
		b.WriteString("This is being filed as " + string(s.rec.CrimeType) + ". ")
	}
	b.WriteString("The incident happened " + orNotProvided(s.rec.IncidentDate) + ". ")
	b.WriteString("Is that all correct?")
	return b.String()
}

func orNotProvided(val string) string {
	if val == "" {
		return models.NotProvided
	}
	return val
}

// spellOut spaces out digit strings so TTS reads them digit by digit.
func spellOut(val string) string {
	if val == models.NotProvided {
		return val
	}
	return strings.Join(strings.Split(val, ""), " ")
}

// speak plays a prompt through the scheduler and logs it to the transcript.
// Callers hold s.mu.
func (s *Session) speak(text string) {
	s.rec.AppendTranscript("assistant", text)
	s.sched.Speak(s.ctx, text)
}

func (s *Session) end() {
	s.doneOnce.Do(func() { close(s.done) })
}
