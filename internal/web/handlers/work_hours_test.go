package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestWorkHoursHandler_Recompute(t *testing.T) {
	b := newTestBackend(t)
	handler := NewWorkHoursHandler(b.service)

	// Events imported without summaries.
	b.timeLogs.AddEvents(
		database.TimeLogEvent{ID: "a", EmployeeID: "E2", Type: database.EventCheckIn, Timestamp: testDay.Add(8 * time.Hour), Source: "import"},
		database.TimeLogEvent{ID: "b", EmployeeID: "E2", Type: database.EventCheckOut, Timestamp: testDay.Add(13 * time.Hour), Source: "import"},
	)

	req := jsonRequest(t, "POST", "/api/v1/work-hours/recompute", map[string]string{"employee_id": "E2", "date": "2026-03-02"})
	recorder := httptest.NewRecorder()
	handler.Recompute(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var row WorkHoursResponse
	parseJSONResponse(t, recorder, &row)
	if row.Status != database.StatusCompleted || row.Regular != "5:00" || row.Overtime != "0:00" {
		t.Errorf("unexpected row %+v", row)
	}

	stored, err := b.workHours.Get(context.Background(), "E2", testDay)
	if err != nil || stored == nil || stored.RegularHours != 5 {
		t.Errorf("row not stored: %+v, %v", stored, err)
	}
}

func TestWorkHoursHandler_RecomputeErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantError  string
	}{
		{"missing employee", map[string]string{"date": "2026-03-02"}, http.StatusBadRequest, "employee_id is required"},
		{"bad date", map[string]string{"employee_id": "E1", "date": "2.3.2026"}, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD"},
		{"unknown employee", map[string]string{"employee_id": "E9", "date": "2026-03-02"}, http.StatusNotFound, "employee not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t)
			handler := NewWorkHoursHandler(b.service)

			recorder := httptest.NewRecorder()
			handler.Recompute(recorder, jsonRequest(t, "POST", "/api/v1/work-hours/recompute", tt.body))
			assertStatusCode(t, recorder, tt.wantStatus)
			assertJSONError(t, recorder, tt.wantError)
		})
	}
}
