package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/safeline/helpline/internal/models"
	"github.com/safeline/helpline/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.InMemoryStore, string) {
	t.Helper()
	memStore := store.NewInMemoryStore()
	caseID, err := memStore.CreateCase(map[string]any{
		"name":        "John Smith",
		"phone":       "9876543210",
		"crime_type":  "hacking",
		"description": "account hacked",
	})
	if err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return NewServer(memStore), memStore, caseID
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d", rr.Code)
	}
}

func TestFormHandler_RendersCase(t *testing.T) {
	srv, _, caseID := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/f/"+caseID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, caseID) || !strings.Contains(body, "John Smith") {
		t.Errorf("form missing case details: %s", body)
	}
}

func TestFormHandler_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/f/CR-00000000-NOPE", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestFormSubmit_UpdatesCase(t *testing.T) {
	srv, memStore, caseID := newTestServer(t)

	form := url.Values{}
	form.Set("name", "John A. Smith")
	form.Set("description", "account hacked and password changed")
	form.Set("email", "john@gmail.com")
	form.Set("amount_lost", "250")
	form.Set("crime_type", "hacking")

	req := httptest.NewRequest(http.MethodPost, "/f/"+caseID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	rec, err := memStore.GetCase(caseID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if rec.Name != "John A. Smith" || rec.Email != "john@gmail.com" {
		t.Errorf("case not updated: %+v", rec)
	}
	if rec.AmountLost == nil || *rec.AmountLost != 250 {
		t.Errorf("amount_lost not updated: %v", rec.AmountLost)
	}
}

func TestFormSubmit_RejectsBadAmount(t *testing.T) {
	srv, memStore, caseID := newTestServer(t)

	form := url.Values{}
	form.Set("name", "John Smith")
	form.Set("description", "account hacked")
	form.Set("amount_lost", "a fortune")

	req := httptest.NewRequest(http.MethodPost, "/f/"+caseID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	rec, _ := memStore.GetCase(caseID)
	if rec.AmountLost != nil {
		t.Errorf("rejected submission mutated the case: %+v", rec)
	}
}

func TestGetCaseHandler(t *testing.T) {
	srv, _, caseID := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cases/"+caseID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp models.APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("status = %q", resp.Status)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok || result["name"] != "John Smith" || result["crime_type"] != "hacking" {
		t.Errorf("unexpected result: %#v", resp.Result)
	}

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cases/CR-00000000-NOPE", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing case status = %d, want 404", rr.Code)
	}
}
