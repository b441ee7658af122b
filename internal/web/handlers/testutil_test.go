package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

// testDay is a Monday; handler tests run in UTC.
var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	att := config.DefaultAttendance()
	att.Timezone = "UTC"
	return &config.Config{
		Attendance: att,
		Database:   config.DatabaseConfig{Driver: "postgres"},
	}
}

// face returns a descriptor with every component set to v
func face(v float32) []float32 {
	d := make([]float32, constants.DescriptorLength)
	for i := range d {
		d[i] = v
	}
	return d
}

// testBackend bundles a service over in-memory stores with a settable clock
type testBackend struct {
	cfg       *config.Config
	service   *attendance.Service
	employees *mock.MockEmployeeWriter
	timeLogs  *mock.MockTimeLogWriter
	workHours *mock.MockWorkHoursWriter
	now       time.Time
}

// newTestBackend creates a service with Alice (E1) and Bob (E2) enrolled and
// Carol (E3) on the roster without a face
func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{
		cfg:       testConfig(),
		employees: mock.NewMockEmployeeWriter(),
		timeLogs:  mock.NewMockTimeLogWriter(),
		workHours: mock.NewMockWorkHoursWriter(),
		now:       testDay.Add(9 * time.Hour),
	}
	b.employees.AddEmployee(database.StoredEmployee{ID: "E1", Name: "Alice Nováková", Descriptor: face(0.10)})
	b.employees.AddEmployee(database.StoredEmployee{ID: "E2", Name: "Bob Dvořák", Descriptor: face(0.30)})
	b.employees.AddEmployee(database.StoredEmployee{ID: "E3", Name: "Carol Novák"})

	b.service = attendance.NewService(&b.cfg.Attendance, b.employees, b.timeLogs, b.workHours)
	b.service.Now = func() time.Time { return b.now }
	return b
}

// at moves the clock to testDay plus h hours and m minutes
func (b *testBackend) at(h, m int) {
	b.now = testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertErrorKind checks the kind field of a JSON error response
func assertErrorKind(t *testing.T, recorder *httptest.ResponseRecorder, expectedKind string) {
	t.Helper()
	var result ErrorResponse
	parseJSONResponse(t, recorder, &result)
	if result.Kind != expectedKind {
		t.Errorf("expected kind '%s', got '%s' (error: %s)", expectedKind, result.Kind, result.Error)
	}
}
