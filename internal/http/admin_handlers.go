package httpx

import (
	"net/http"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/admin"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/assignment"
)

func (r *Router) handleMyCounselor(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	counselor, err := r.svc.Assignment.MyCounselor(req.Context(), user.ID)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	if counselor == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"counselor": nil,
			"message":   assignment.NoCounselorMessage,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counselor": newUserResponse(counselor)})
}

type assignPayload struct {
	VictimID            string  `json:"victimId"`
	CounselorID         string  `json:"counselorId"`
	ExpectedCounselorID *string `json:"expectedCounselorId"`
}

func (r *Router) handleAssignmentUpdate(w http.ResponseWriter, req *http.Request) {
	var payload assignPayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	payload.VictimID = req.PathValue("victimId")
	r.assign(w, req, payload)
}

func (r *Router) handleAdminAssign(w http.ResponseWriter, req *http.Request) {
	var payload assignPayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	r.assign(w, req, payload)
}

func (r *Router) assign(w http.ResponseWriter, req *http.Request, payload assignPayload) {
	actor, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	victim, err := r.svc.Assignment.Assign(req.Context(), actor, payload.VictimID, payload.CounselorID, payload.ExpectedCounselorID)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "counselor assigned",
		"victim":  newUserResponse(victim),
	})
}

func (r *Router) handleAddCounselor(w http.ResponseWriter, req *http.Request) {
	actor, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		Name           string `json:"name"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		Specialization string `json:"specialization"`
		Qualifications string `json:"qualifications"`
		Bio            string `json:"bio"`
		Location       string `json:"location"`
		Phone          string `json:"phone"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, err := r.svc.Admin.AddCounselor(req.Context(), actor, admin.CounselorInput{
		Name:           payload.Name,
		Email:          payload.Email,
		Password:       payload.Password,
		Specialization: payload.Specialization,
		Qualifications: payload.Qualifications,
		Bio:            payload.Bio,
		Location:       payload.Location,
		Phone:          payload.Phone,
	})
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"counselor": newUserResponse(user)})
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
	users, err := r.svc.Admin.ListUsers(req.Context())
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": newUserResponses(users)})
}

func (r *Router) handleUserStatus(w http.ResponseWriter, req *http.Request) {
	actor, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		IsActive *bool `json:"isActive"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	if payload.IsActive == nil {
		r.writeFailure(w, req, apperr.Validation("isActive", "isActive is required"))
		return
	}
	user, err := r.svc.Admin.SetActive(req.Context(), actor, req.PathValue("id"), *payload.IsActive)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

func (r *Router) handleAssignedVictims(w http.ResponseWriter, req *http.Request) {
	entries, err := r.svc.Caseload.ForCounselor(req.Context(), req.PathValue("counselorId"))
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"victims": newCaseloadResponses(entries)})
}

func (r *Router) handleMyVictims(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	entries, err := r.svc.Caseload.ForCounselor(req.Context(), user.ID)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"victims": newCaseloadResponses(entries)})
}

func (r *Router) handleCheckinSummary(w http.ResponseWriter, req *http.Request) {
	user, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	summary, err := r.svc.Caseload.CheckinSummary(req.Context(), user.ID)
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
