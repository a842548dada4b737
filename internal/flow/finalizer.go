package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/safeline/helpline/internal/forms"
	"github.com/safeline/helpline/internal/models"
	"github.com/safeline/helpline/internal/store"
	"github.com/safeline/helpline/internal/twiliosms"
)

// Finalizer persists completed cases and sends the follow-up SMS.
type Finalizer struct {
	store store.CaseStore
	sms   twiliosms.Sender
	links *forms.LinkBuilder
}

// NewFinalizer creates a finalizer. sms may be nil, in which case no
// follow-up message is attempted.
func NewFinalizer(caseStore store.CaseStore, sms twiliosms.Sender, links *forms.LinkBuilder) *Finalizer {
	if links == nil {
		links = forms.NewLinkBuilder("")
	}
	return &Finalizer{store: caseStore, sms: sms, links: links}
}

// Finalize persists the case and sends the caller their case number by SMS.
// It returns the closing message to speak. A record without a name and
// description is rejected with models.ErrCaseIncomplete; persistence errors
// are returned so the session can tell the caller to call back.
func (f *Finalizer) Finalize(ctx context.Context, rec *models.CaseRecord) (string, error) {
	if rec.Name == "" || rec.Name == models.NotProvided {
		return "", fmt.Errorf("missing caller name: %w", models.ErrCaseIncomplete)
	}
	if rec.Description == "" {
		return "", fmt.Errorf("missing incident description: %w", models.ErrCaseIncomplete)
	}
	if rec.ID != "" {
		return "", models.ErrAlreadySaved
	}

	caseID, err := f.store.CreateCase(rec.Fields())
	if err != nil {
		return "", fmt.Errorf("failed to persist case: %w", err)
	}
	rec.ID = caseID
	slog.Info("case saved", "case_id", caseID, "crime_type", rec.CrimeType, "emergency", rec.IsEmergency)

	smsSent := f.sendFollowUp(ctx, rec)
	closing := fmt.Sprintf("Thank you. Your complaint has been registered with case number %s.", caseID)
	if smsSent {
		closing += " I have sent you a text message with your case number and a link to review the details."
	} else {
		closing += " Please note this number down for follow-up."
	}
	closing += " Our cyber cell will contact you. Stay safe."
	return closing, nil
}

// sendFollowUp sends the case-number SMS. Delivery is best-effort and only
// affects the closing wording.
func (f *Finalizer) sendFollowUp(ctx context.Context, rec *models.CaseRecord) bool {
	if f.sms == nil || !rec.HasUsablePhone() {
		return false
	}
	body := fmt.Sprintf("SafeLine: your cybercrime complaint is registered as case %s. Review or correct the details at %s",
		rec.ID, f.links.FormLink(rec.ID))
	if err := f.sms.SendSMS(ctx, rec.Phone, body); err != nil {
		slog.Warn("follow-up SMS failed", "case_id", rec.ID, "error", err)
		return false
	}
	return true
}

// SavePartial persists whatever has been gathered when a call ends early,
// whether by emergency escalation, hangup, or the call time limit.
// Best-effort: a store failure is logged and swallowed so the closing or
// safety message is never delayed.
func (f *Finalizer) SavePartial(ctx context.Context, rec *models.CaseRecord) {
	if rec.ID != "" {
		return
	}
	caseID, err := f.store.CreateCase(rec.Fields())
	if err != nil {
		slog.Error("partial save failed", "error", err)
		return
	}
	rec.ID = caseID
	slog.Info("partial case saved", "case_id", caseID, "emergency", rec.IsEmergency)
	f.sendFollowUp(ctx, rec)
}
