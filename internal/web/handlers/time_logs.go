package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// TimeLogsHandler records face-identified check-ins and check-outs
type TimeLogsHandler struct {
	service      *attendance.Service
	statsHandler *StatsHandler
}

// NewTimeLogsHandler creates a new time-logs handler
func NewTimeLogsHandler(svc *attendance.Service, statsHandler *StatsHandler) *TimeLogsHandler {
	return &TimeLogsHandler{service: svc, statsHandler: statsHandler}
}

// CreateTimeLogRequest is the body of POST /time-logs. FaceDescriptor may be
// a JSON array, an index-keyed object or a string in any text format.
type CreateTimeLogRequest struct {
	FaceDescriptor json.RawMessage `json:"faceDescriptor"`
	Type           string          `json:"type"`
}

// VerifyRequest is the body of POST /face-recognition/verify
type VerifyRequest struct {
	Descriptor json.RawMessage `json:"descriptor"`
	Mode       string          `json:"mode"`
}

// TimeLogResponse is an accepted event with the identified employee
type TimeLogResponse struct {
	Event     EventResponse     `json:"event"`
	Employee  EmployeeResponse  `json:"employee"`
	WorkHours WorkHoursResponse `json:"work_hours"`
}

// VerifyResponse adds the match quality to TimeLogResponse
type VerifyResponse struct {
	TimeLogResponse
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// eventType normalizes a client spelling. Unknown values are passed through
// so the service rejects them with its own error.
func eventType(s string) database.EventType {
	if typ, ok := database.ParseEventType(s); ok {
		return typ
	}
	return database.EventType(s)
}

func (h *TimeLogsHandler) record(w http.ResponseWriter, r *http.Request, raw json.RawMessage, typ string) (*attendance.Result, bool) {
	res, err := h.service.Record(r.Context(), attendance.Request{
		Descriptor: raw,
		Type:       eventType(typ),
		Source:     constants.SourceFace,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	h.statsHandler.InvalidateCache()
	log.Printf("Recorded %s for employee %s (distance %.4f)", res.Event.Type, sanitizeForLog(res.Employee.ID), res.Distance)
	return res, true
}

func toTimeLogResponse(res *attendance.Result) TimeLogResponse {
	return TimeLogResponse{
		Event:     toEventResponse(res.Event),
		Employee:  toEmployeeResponse(res.Employee),
		WorkHours: toWorkHoursResponse(res.Summary),
	}
}

// Create handles POST /time-logs
func (h *TimeLogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTimeLogRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, ok := h.record(w, r, req.FaceDescriptor, req.Type)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, toTimeLogResponse(res))
}

// Verify handles POST /face-recognition/verify
func (h *TimeLogsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, ok := h.record(w, r, req.Descriptor, req.Mode)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, VerifyResponse{
		TimeLogResponse: toTimeLogResponse(res),
		Distance:        res.Distance,
		Confidence:      res.Confidence,
	})
}
