package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/appointments"
)

func (r *Router) handleChatHistory(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	messages, err := r.svc.Chat.HistoryFor(req.Context(), user, req.PathValue("userId"), req.PathValue("otherId"))
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": newMessageResponses(messages)})
}

func (r *Router) handleCreateNote(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		VictimID string `json:"victimId"`
		Content  string `json:"content"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	note, err := r.svc.Notes.Create(req.Context(), user, payload.VictimID, payload.Content)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"note": newNoteResponse(note)})
}

func (r *Router) handleListNotes(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	notes, err := r.svc.Notes.ListForVictim(req.Context(), user, req.PathValue("victimId"))
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	out := make([]noteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, newNoteResponse(&notes[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": out})
}

func (r *Router) handleUpdateNote(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	note, err := r.svc.Notes.Update(req.Context(), user, req.PathValue("id"), payload.Content)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note": newNoteResponse(note)})
}

func (r *Router) handleDeleteNote(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	if err := r.svc.Notes.Delete(req.Context(), user, req.PathValue("id")); err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "note deleted"})
}

func (r *Router) handleBookAppointment(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		CounselorID string `json:"counselorId"`
		Time        string `json:"time"`
		Mode        string `json:"mode"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	var at time.Time
	if raw := strings.TrimSpace(payload.Time); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			r.writeFailure(w, req, apperr.Validation("time", "time must be an RFC 3339 timestamp"))
			return
		}
		at = parsed.UTC()
	}
	appt, err := r.svc.Appointments.Book(req.Context(), user, appointments.Booking{
		CounselorID: payload.CounselorID,
		Time:        at,
		Mode:        payload.Mode,
	})
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"appointment": newAppointmentResponse(appt)})
}

func (r *Router) handleListAppointments(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	appts, err := r.svc.Appointments.List(req.Context(), user)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, newAppointmentResponse(&appts[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (r *Router) handleUpdateAppointment(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	appt, err := r.svc.Appointments.UpdateStatus(req.Context(), user, req.PathValue("id"), payload.Status)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": newAppointmentResponse(appt)})
}

func (r *Router) handleSubmitAssessment(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		Score   *float64                  `json:"score"`
		Answers []domain.AssessmentAnswer `json:"answers"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	if payload.Score == nil {
		r.writeFailure(w, req, apperr.Validation("score", "score is required"))
		return
	}
	assessment, err := r.svc.Assessments.Submit(req.Context(), user, *payload.Score, payload.Answers)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"assessment": newAssessmentResponse(assessment)})
}

func (r *Router) handleMyAssessments(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	list, err := r.svc.Assessments.ListOwn(req.Context(), user)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeAssessments(w, list)
}

func (r *Router) handleUserAssessments(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	list, err := r.svc.Assessments.ListForUser(req.Context(), user, req.PathValue("id"))
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeAssessments(w, list)
}

func writeAssessments(w http.ResponseWriter, list []domain.Assessment) {
	out := make([]assessmentResponse, 0, len(list))
	for i := range list {
		out = append(out, newAssessmentResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": out})
}
