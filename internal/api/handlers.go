package api

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/safeline/helpline/internal/forms"
	"github.com/safeline/helpline/internal/models"
)

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head><title>SafeLine case {{.Case.ID}}</title></head>
<body>
<h1>Review your complaint</h1>
<p>Case number: <strong>{{.Case.ID}}</strong></p>
{{if .Saved}}<p><em>Your changes have been saved. Thank you.</em></p>{{end}}
{{if .Error}}<p><em>{{.Error}}</em></p>{{end}}
<form method="POST">
  <p><label>Full name<br><input name="name" value="{{.Case.Name}}" required></label></p>
  <p><label>Phone<br><input name="phone" value="{{.Case.Phone}}"></label></p>
  <p><label>Email<br><input name="email" value="{{.Case.Email}}"></label></p>
  <p><label>Incident type<br>
    <select name="crime_type">
    {{range .CrimeTypes}}<option value="{{.}}" {{if eq . $.Case.CrimeType}}selected{{end}}>{{.}}</option>{{end}}
    </select></label></p>
  <p><label>Incident date<br><input name="incident_date" value="{{.Case.IncidentDate}}"></label></p>
  <p><label>What happened<br><textarea name="description" rows="5" cols="50" required>{{.Case.Description}}</textarea></label></p>
  <p><label>Amount lost (if any)<br><input name="amount_lost" value="{{.Amount}}"></label></p>
  <p><label>Evidence link (if any)<br><input name="evidence_ref" value="{{.Case.EvidenceRef}}"></label></p>
  <p><button type="submit">Save changes</button></p>
</form>
</body>
</html>`))

type formPage struct {
	Case       *models.CaseRecord
	CrimeTypes []models.CrimeType
	Amount     string
	Saved      bool
	Error      string
}

func newFormPage(rec *models.CaseRecord) formPage {
	page := formPage{Case: rec, CrimeTypes: models.CrimeTypes}
	if rec.AmountLost != nil {
		page.Amount = strconv.FormatFloat(*rec.AmountLost, 'f', -1, 64)
	}
	return page
}

func (s *Server) renderForm(w http.ResponseWriter, statusCode int, page formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := formTemplate.Execute(w, page); err != nil {
		slog.Error("Server.renderForm: template execution failed", "error", err)
	}
}

// formHandler serves the correction form for a saved case.
func (s *Server) formHandler(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("id")
	rec, err := s.store.GetCase(caseID)
	if err != nil {
		if errors.Is(err, models.ErrCaseNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("Server.formHandler: case lookup failed", "case_id", caseID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.renderForm(w, http.StatusOK, newFormPage(rec))
}

// formSubmitHandler applies a correction-form submission to the case.
func (s *Server) formSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	caseID := r.PathValue("id")
	rec, err := s.store.GetCase(caseID)
	if err != nil {
		if errors.Is(err, models.ErrCaseNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("Server.formSubmitHandler: case lookup failed", "case_id", caseID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.formSubmitHandler: malformed form", "case_id", caseID, "error", err)
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	fields, err := forms.ParseSubmission(r.PostForm)
	if err != nil {
		slog.Warn("Server.formSubmitHandler: rejected submission", "case_id", caseID, "error", err)
		page := newFormPage(rec)
		page.Error = err.Error()
		s.renderForm(w, http.StatusBadRequest, page)
		return
	}
	if err := s.store.UpdateCase(caseID, fields); err != nil {
		slog.Error("Server.formSubmitHandler: update failed", "case_id", caseID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("case updated via correction form", "case_id", caseID)

	updated, err := s.store.GetCase(caseID)
	if err != nil {
		updated = rec
	}
	page := newFormPage(updated)
	page.Saved = true
	s.renderForm(w, http.StatusOK, page)
}

// getCaseHandler returns one case as JSON.
func (s *Server) getCaseHandler(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("id")
	rec, err := s.store.GetCase(caseID)
	if err != nil {
		if errors.Is(err, models.ErrCaseNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("case not found"))
			return
		}
		slog.Error("Server.getCaseHandler: case lookup failed", "case_id", caseID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("internal error"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}
