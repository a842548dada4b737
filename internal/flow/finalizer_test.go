package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/safeline/helpline/internal/forms"
	"github.com/safeline/helpline/internal/models"
	"github.com/safeline/helpline/internal/store"
	"github.com/safeline/helpline/internal/twiliosms"
)

func completeRecord() *models.CaseRecord {
	return &models.CaseRecord{
		Name:        "John Smith",
		Phone:       "9876543210",
		CrimeType:   models.CrimeTypeHacking,
		Description: "account hacked",
	}
}

func TestFinalizer_RejectsIncompleteRecord(t *testing.T) {
	f := NewFinalizer(store.NewInMemoryStore(), nil, nil)

	rec := completeRecord()
	rec.Name = ""
	if _, err := f.Finalize(context.Background(), rec); !errors.Is(err, models.ErrCaseIncomplete) {
		t.Errorf("missing name: err = %v, want ErrCaseIncomplete", err)
	}

	rec = completeRecord()
	rec.Description = ""
	if _, err := f.Finalize(context.Background(), rec); !errors.Is(err, models.ErrCaseIncomplete) {
		t.Errorf("missing description: err = %v, want ErrCaseIncomplete", err)
	}
}

func TestFinalizer_SavesAndSendsSMS(t *testing.T) {
	memStore := store.NewInMemoryStore()
	sms := twiliosms.NewMockClient()
	f := NewFinalizer(memStore, sms, forms.NewLinkBuilder("http://test.local"))

	rec := completeRecord()
	closing, err := f.Finalize(context.Background(), rec)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("case ID not assigned")
	}
	if !strings.Contains(closing, rec.ID) || !strings.Contains(closing, "text message") {
		t.Errorf("closing message: %q", closing)
	}
	if memStore.Count() != 1 {
		t.Errorf("store holds %d cases", memStore.Count())
	}
	if len(sms.SentMessages) != 1 {
		t.Fatalf("SMS not sent: %+v", sms.SentMessages)
	}
	if !strings.Contains(sms.SentMessages[0].Body, "/f/"+rec.ID) {
		t.Errorf("SMS missing correction link: %q", sms.SentMessages[0].Body)
	}
}

func TestFinalizer_SMSFailureDoesNotBlockSave(t *testing.T) {
	memStore := store.NewInMemoryStore()
	sms := &twiliosms.MockClient{Err: errors.New("twilio down")}
	f := NewFinalizer(memStore, sms, nil)

	rec := completeRecord()
	closing, err := f.Finalize(context.Background(), rec)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if memStore.Count() != 1 {
		t.Error("case not saved despite SMS failure")
	}
	if !strings.Contains(closing, "note this number down") {
		t.Errorf("closing should fall back to spoken case number: %q", closing)
	}
}

func TestFinalizer_NoSMSWithoutUsablePhone(t *testing.T) {
	sms := twiliosms.NewMockClient()
	f := NewFinalizer(store.NewInMemoryStore(), sms, nil)

	rec := completeRecord()
	rec.Phone = models.NotProvided
	if _, err := f.Finalize(context.Background(), rec); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(sms.SentMessages) != 0 {
		t.Errorf("SMS sent to placeholder phone: %+v", sms.SentMessages)
	}
}

func TestFinalizer_StoreFailure(t *testing.T) {
	memStore := store.NewInMemoryStore()
	memStore.FailCreate = true
	f := NewFinalizer(memStore, nil, nil)

	rec := completeRecord()
	if _, err := f.Finalize(context.Background(), rec); err == nil {
		t.Error("expected error from failing store")
	}
	if rec.ID != "" {
		t.Errorf("case ID assigned despite failure: %q", rec.ID)
	}
}

func TestFinalizer_RefusesDoubleSave(t *testing.T) {
	f := NewFinalizer(store.NewInMemoryStore(), nil, nil)
	rec := completeRecord()
	if _, err := f.Finalize(context.Background(), rec); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if _, err := f.Finalize(context.Background(), rec); !errors.Is(err, models.ErrAlreadySaved) {
		t.Errorf("second Finalize err = %v, want ErrAlreadySaved", err)
	}
}

func TestFinalizer_SavePartial(t *testing.T) {
	memStore := store.NewInMemoryStore()
	f := NewFinalizer(memStore, nil, nil)

	rec := &models.CaseRecord{Name: "Jane Doe", IsEmergency: true}
	f.SavePartial(context.Background(), rec)
	if rec.ID == "" || memStore.Count() != 1 {
		t.Errorf("partial case not saved: id=%q count=%d", rec.ID, memStore.Count())
	}

	// A second call is a no-op.
	f.SavePartial(context.Background(), rec)
	if memStore.Count() != 1 {
		t.Errorf("partial save duplicated the case: %d", memStore.Count())
	}
}

func TestFinalizer_SavePartialSwallowsStoreFailure(t *testing.T) {
	memStore := store.NewInMemoryStore()
	memStore.FailCreate = true
	f := NewFinalizer(memStore, nil, nil)

	rec := &models.CaseRecord{Name: "Jane Doe"}
	f.SavePartial(context.Background(), rec)
	if rec.ID != "" {
		t.Errorf("case ID assigned despite failure: %q", rec.ID)
	}
}
