package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// EmployeesHandler handles roster, enrolment and per-employee reads
type EmployeesHandler struct {
	service      *attendance.Service
	statsHandler *StatsHandler
}

// NewEmployeesHandler creates a new employees handler
func NewEmployeesHandler(svc *attendance.Service, statsHandler *StatsHandler) *EmployeesHandler {
	return &EmployeesHandler{service: svc, statsHandler: statsHandler}
}

// EnrollRequest is the body of PUT /employees/{id}/face
type EnrollRequest struct {
	Descriptor json.RawMessage `json:"descriptor"`
}

// EnrollResponse reports the enrolled employee and look-alikes already on the roster
type EnrollResponse struct {
	Employee EmployeeResponse   `json:"employee"`
	Similar  []NeighborResponse `json:"similar"`
}

// List handles GET /employees?name=
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.Roster(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := make([]EmployeeResponse, 0, len(employees))
	for _, emp := range employees {
		resp = append(resp, toEmployeeResponse(emp))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Enroll handles PUT /employees/{id}/face
func (h *EmployeesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EnrollRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.service.Enroll(r.Context(), id, req.Descriptor)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.statsHandler.InvalidateCache()
	if len(res.Similar) > 0 {
		log.Printf("Enrolled %s with %d similar employees on the roster", sanitizeForLog(id), len(res.Similar))
	}

	respondJSON(w, http.StatusOK, EnrollResponse{
		Employee: toEmployeeResponse(res.Employee),
		Similar:  toNeighborResponses(res.Similar),
	})
}

// ResetFace handles DELETE /employees/{id}/face
func (h *EmployeesHandler) ResetFace(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetFace(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.statsHandler.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}

// TimeLogs handles GET /employees/{id}/time-logs?date=YYYY-MM-DD
func (h *EmployeesHandler) TimeLogs(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"), h.service.Location(), h.service.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	events, err := h.service.Events(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Sessions handles GET /employees/{id}/sessions?date=YYYY-MM-DD
func (h *EmployeesHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"), h.service.Location(), h.service.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	sessions, err := h.service.Sessions(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	respondJSON(w, http.StatusOK, resp)
}

// WorkHours handles GET /employees/{id}/work-hours?from=&to=
// Both bounds default to today.
func (h *EmployeesHandler) WorkHours(w http.ResponseWriter, r *http.Request) {
	loc, now := h.service.Location(), h.service.Now()
	from, err := parseDate(r.URL.Query().Get("from"), loc, now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"), loc, now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}

	rows, err := h.service.WorkHours(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := make([]WorkHoursResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toWorkHoursResponse(row))
	}
	respondJSON(w, http.StatusOK, resp)
}
