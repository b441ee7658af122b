package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// WorkHoursHandler handles maintenance of the daily summary rows
type WorkHoursHandler struct {
	service *attendance.Service
}

// NewWorkHoursHandler creates a new work-hours handler
func NewWorkHoursHandler(svc *attendance.Service) *WorkHoursHandler {
	return &WorkHoursHandler{service: svc}
}

// RecomputeRequest is the body of POST /work-hours/recompute
type RecomputeRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
}

// Recompute rebuilds one daily row from the event log
func (h *WorkHoursHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var req RecomputeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EmployeeID == "" {
		respondError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	date, err := parseDate(req.Date, h.service.Location(), h.service.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	row, err := h.service.RecomputeDay(r.Context(), req.EmployeeID, date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toWorkHoursResponse(*row))
}
