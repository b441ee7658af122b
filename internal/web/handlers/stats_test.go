package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func registerMockBackend(t *testing.T, b *testBackend) {
	t.Helper()
	database.RegisterBackend(
		"mock",
		func() database.EmployeeWriter { return b.employees },
		func() database.TimeLogWriter { return b.timeLogs },
		func() database.WorkHoursWriter { return b.workHours },
	)
	t.Cleanup(database.ResetBackend)
}

func TestStatsHandler_NoBackend(t *testing.T) {
	database.ResetBackend()
	handler := NewStatsHandler()

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}

func TestStatsHandler_Get(t *testing.T) {
	b := newTestBackend(t)
	registerMockBackend(t, b)
	seedWorkday(t, b)
	handler := NewStatsHandler()

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)
	if stats.TotalEmployees != 3 || stats.EnrolledEmployees != 2 || stats.TotalTimeLogs != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Backend != "mock" {
		t.Errorf("expected mock backend, got %s", stats.Backend)
	}
}

func TestStatsHandler_CachesUntilInvalidated(t *testing.T) {
	b := newTestBackend(t)
	registerMockBackend(t, b)
	handler := NewStatsHandler()

	get := func() StatsResponse {
		recorder := httptest.NewRecorder()
		handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))
		var stats StatsResponse
		parseJSONResponse(t, recorder, &stats)
		return stats
	}

	if got := get(); got.TotalEmployees != 3 {
		t.Fatalf("expected 3 employees, got %d", got.TotalEmployees)
	}

	b.employees.AddEmployee(database.StoredEmployee{ID: "E4", Name: "Dan"})
	if got := get(); got.TotalEmployees != 3 {
		t.Errorf("expected cached count 3, got %d", got.TotalEmployees)
	}

	handler.InvalidateCache()
	if got := get(); got.TotalEmployees != 4 {
		t.Errorf("expected fresh count 4, got %d", got.TotalEmployees)
	}
}

func TestStatsHandler_StoreFailure(t *testing.T) {
	b := newTestBackend(t)
	b.employees = mock.NewMockEmployeeWriter()
	b.employees.CountError = database.ErrNotFound
	registerMockBackend(t, b)

	recorder := httptest.NewRecorder()
	NewStatsHandler().Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}
