package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/descriptor"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxBodyBytes bounds request bodies. A descriptor in any wire format is a few KB.
const maxBodyBytes = 1 << 20

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ErrorResponse is the error body. Kind and Reason are set for pairing
// violations so clients can tell which rule rejected the event.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// respondServiceError maps an attendance error to a status code:
// 400 for malformed input and pairing violations, 401 when the face is not
// recognized, 404 for unknown employees and 500 for storage failures.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var pv *attendance.PairingViolation
	switch {
	case errors.As(err, &pv):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  pv.Reason,
			Kind:   string(pv.Kind),
			Reason: pv.Reason,
		})
	case errors.Is(err, descriptor.ErrDecode):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_descriptor"})
	case errors.Is(err, attendance.ErrInvalidEventType):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_type"})
	case errors.Is(err, attendance.ErrInvalidRange),
		errors.Is(err, attendance.ErrInvalidEmployee),
		errors.Is(err, attendance.ErrNotEnrolled):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrNoMatch):
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Kind: "no_match"})
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("%s %s failed: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into target.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// parseDate parses a YYYY-MM-DD query value in loc. An empty value yields
// today (per now) in loc.
func parseDate(value string, loc *time.Location, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation(database.DateKey, value, loc)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": database.BackendName(),
	})
}
