package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/descriptor"
)

// face returns a descriptor with every component set to v. Two faces are
// |a-b| * sqrt(128) apart, so 0.05 apart is just inside the 0.6 threshold.
func face(v float32) []float32 {
	d := make([]float32, constants.DescriptorLength)
	for i := range d {
		d[i] = v
	}
	return d
}

type testEnv struct {
	svc       *Service
	employees *mock.MockEmployeeWriter
	timeLogs  *mock.MockTimeLogWriter
	workHours *mock.MockWorkHoursWriter
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultAttendance()
	cfg.Timezone = "UTC"

	env := &testEnv{
		employees: mock.NewMockEmployeeWriter(),
		timeLogs:  mock.NewMockTimeLogWriter(),
		workHours: mock.NewMockWorkHoursWriter(),
		now:       at(9, 0),
	}
	env.employees.AddEmployee(database.StoredEmployee{ID: "E1", Name: "Alice Nováková", Descriptor: face(0.10)})
	env.employees.AddEmployee(database.StoredEmployee{ID: "E2", Name: "Bob Dvořák", Descriptor: face(0.30)})
	env.employees.AddEmployee(database.StoredEmployee{ID: "E3", Name: "Carol Novák"})

	env.svc = NewService(&cfg, env.employees, env.timeLogs, env.workHours)
	env.svc.Now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) record(t *testing.T, typ database.EventType, probe []float32, ts time.Time) (*Result, error) {
	t.Helper()
	e.now = ts
	return e.svc.Record(context.Background(), Request{Descriptor: probe, Type: typ})
}

func TestService_RecordWorkday(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.record(t, database.EventCheckIn, face(0.11), at(9, 0))
	if err != nil {
		t.Fatalf("check-in error = %v", err)
	}
	if res.Employee.ID != "E1" {
		t.Errorf("matched %s, want E1", res.Employee.ID)
	}
	if res.Event.ID == "" || res.Event.Source != constants.SourceFace {
		t.Errorf("unexpected event %+v", res.Event)
	}
	if res.Confidence != 1-res.Distance {
		t.Errorf("confidence %v should be 1 - distance %v", res.Confidence, res.Distance)
	}
	if res.Summary.Status != database.StatusCheckedIn {
		t.Errorf("summary status = %s, want checked_in", res.Summary.Status)
	}

	_, err = env.record(t, database.EventCheckIn, face(0.10), at(9, 5))
	var v *PairingViolation
	if !errors.As(err, &v) || v.Kind != KindAlreadyOpen {
		t.Fatalf("expected AlreadyOpen, got %v", err)
	}

	res, err = env.record(t, database.EventCheckOut, face(0.10), at(17, 0))
	if err != nil {
		t.Fatalf("check-out error = %v", err)
	}
	if res.Summary.RegularHours != 8 || res.Summary.Status != database.StatusCompleted {
		t.Errorf("unexpected summary %+v", res.Summary)
	}

	row, err := env.workHours.Get(context.Background(), "E1", day0)
	if err != nil || row == nil {
		t.Fatalf("expected stored row, got %v, %v", row, err)
	}
	if row.RegularHours != 8 || row.OvertimeHours != 0 {
		t.Errorf("stored row = %+v", row)
	}

	if n := len(env.timeLogs.All()); n != 2 {
		t.Errorf("expected 2 stored events, got %d", n)
	}
}

func TestService_RecordRejectsEarlyCheckOut(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.record(t, database.EventCheckOut, face(0.10), at(8, 30))
	var v *PairingViolation
	if !errors.As(err, &v) || v.Reason != ReasonNoRecentCheckIn {
		t.Fatalf("expected %q, got %v", ReasonNoRecentCheckIn, err)
	}
	if n := len(env.timeLogs.All()); n != 0 {
		t.Errorf("rejected event must not be stored, got %d events", n)
	}
}

func TestService_RecordOvernightCheckOutUpdatesCheckInDay(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.record(t, database.EventCheckIn, face(0.10), at(22, 0)); err != nil {
		t.Fatalf("check-in error = %v", err)
	}
	res, err := env.record(t, database.EventCheckOut, face(0.10), at(30, 0))
	if err != nil {
		t.Fatalf("check-out error = %v", err)
	}
	if got := res.Summary.Date.Format(database.DateKey); got != "2026-03-02" {
		t.Errorf("summary date = %s, want 2026-03-02", got)
	}
	if res.Summary.RegularHours != 8 {
		t.Errorf("expected 8 regular hours, got %v", res.Summary.RegularHours)
	}
}

func TestService_RecordErrors(t *testing.T) {
	t.Run("no match", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.record(t, database.EventCheckIn, face(0.90), at(9, 0))
		if !errors.Is(err, ErrNoMatch) {
			t.Errorf("expected ErrNoMatch, got %v", err)
		}
	})

	t.Run("malformed descriptor", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Record(context.Background(), Request{Descriptor: "1,2,3", Type: database.EventCheckIn})
		if !errors.Is(err, descriptor.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Record(context.Background(), Request{Descriptor: face(0.1), Type: "lunch"})
		if !errors.Is(err, ErrInvalidEventType) {
			t.Errorf("expected ErrInvalidEventType, got %v", err)
		}
	})

	t.Run("append failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.timeLogs.AppendError = errors.New("disk full")
		_, err := env.record(t, database.EventCheckIn, face(0.10), at(9, 0))
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
		var pe *PersistenceError
		if !errors.As(err, &pe) || pe.Op != "append event" {
			t.Errorf("expected append event PersistenceError, got %v", err)
		}
	})

	t.Run("roster failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.employees.ListEnrolledError = errors.New("connection refused")
		_, err := env.record(t, database.EventCheckIn, face(0.10), at(9, 0))
		if !errors.Is(err, ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestService_UnenrolledEmployeeNeverMatches(t *testing.T) {
	env := newTestEnv(t)
	// E3 has no descriptor; a zero probe is closer to nothing enrolled within threshold.
	if _, err := env.svc.Identify(context.Background(), face(0)); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestService_ResetFaceUpdatesCachedRoster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Identify(ctx, face(0.10)); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if _, err := env.svc.Identify(ctx, face(0.10)); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if env.employees.ListEnrolledCalls != 1 {
		t.Errorf("expected cached roster, got %d reads", env.employees.ListEnrolledCalls)
	}

	if err := env.svc.ResetFace(ctx, "E1"); err != nil {
		t.Fatalf("ResetFace() error = %v", err)
	}
	if _, err := env.svc.Identify(ctx, face(0.10)); !errors.Is(err, ErrNoMatch) {
		t.Errorf("reset employee must not match, got %v", err)
	}
	if env.employees.ListEnrolledCalls != 1 {
		t.Errorf("reset should update the cached roster, got %d reads", env.employees.ListEnrolledCalls)
	}

	if err := env.svc.ResetFace(ctx, "missing"); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_EnrollAndResetKeepSimilarityIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Builds the cached roster and its similarity index.
	neighbors, err := env.svc.Similar(ctx, "E1", 1)
	if err != nil || len(neighbors) != 1 || neighbors[0].EmployeeID != "E2" {
		t.Fatalf("Similar(E1) = %+v, %v", neighbors, err)
	}

	if _, err := env.svc.Enroll(ctx, "E3", face(0.12)); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	neighbors, err = env.svc.Similar(ctx, "E1", 1)
	if err != nil || len(neighbors) != 1 || neighbors[0].EmployeeID != "E3" {
		t.Errorf("expected new enrolment E3 nearest to E1, got %+v, %v", neighbors, err)
	}
	id, err := env.svc.Identify(ctx, face(0.125))
	if err != nil || id.Employee.ID != "E3" {
		t.Errorf("expected E3 to match right after enrolment, got %+v, %v", id, err)
	}

	if err := env.svc.ResetFace(ctx, "E3"); err != nil {
		t.Fatalf("ResetFace() error = %v", err)
	}
	neighbors, err = env.svc.Similar(ctx, "E1", 1)
	if err != nil || len(neighbors) != 1 || neighbors[0].EmployeeID != "E2" {
		t.Errorf("expected E2 nearest to E1 after reset, got %+v, %v", neighbors, err)
	}
	id, err = env.svc.Identify(ctx, face(0.125))
	if err != nil || id.Employee.ID != "E1" {
		t.Errorf("expected E1 to match after E3 was reset, got %+v, %v", id, err)
	}

	if env.employees.ListEnrolledCalls != 1 {
		t.Errorf("enrolment changes should not reread the roster, got %d reads", env.employees.ListEnrolledCalls)
	}
}

func TestService_RosterCacheExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Identify(ctx, face(0.10)); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	env.now = env.now.Add(constants.DefaultRosterCacheTTL)
	if _, err := env.svc.Identify(ctx, face(0.10)); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if env.employees.ListEnrolledCalls != 2 {
		t.Errorf("expected roster re-read after TTL, got %d reads", env.employees.ListEnrolledCalls)
	}
}

func TestService_EnrollReportsSimilar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Enroll(ctx, "E3", face(0.12))
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if len(res.Similar) != 1 || res.Similar[0].EmployeeID != "E1" {
		t.Errorf("expected E1 as similar, got %+v", res.Similar)
	}
	if res.Employee.EnrolledAt == nil || !res.Employee.Enrolled() {
		t.Errorf("expected enrolled employee, got %+v", res.Employee)
	}

	// The new enrolment is visible to matching right away.
	id, err := env.svc.Identify(ctx, face(0.125))
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if id.Employee.ID != "E3" {
		t.Errorf("expected E3, got %s", id.Employee.ID)
	}

	if _, err := env.svc.Enroll(ctx, "missing", face(0.5)); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
	if _, err := env.svc.Enroll(ctx, "E3", "bad"); !errors.Is(err, descriptor.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestService_Similar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	neighbors, err := env.svc.Similar(ctx, "E1", 5)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].EmployeeID != "E2" {
		t.Errorf("expected E2, got %+v", neighbors)
	}

	if _, err := env.svc.Similar(ctx, "E3", 5); !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestService_RecordForEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.RecordForEmployee(ctx, "E3", database.EventCheckIn, at(8, 0), "")
	if err != nil {
		t.Fatalf("RecordForEmployee() error = %v", err)
	}
	if res.Event.Source != constants.SourceManual {
		t.Errorf("source = %s, want manual", res.Event.Source)
	}

	if _, err := env.svc.RecordForEmployee(ctx, "nobody", database.EventCheckIn, at(8, 0), ""); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_ConcurrentCheckInsSerialized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Record(ctx, Request{Descriptor: face(0.10), Type: database.EventCheckIn, At: at(9, 0)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrPairingViolation):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 1 || rejected != 24 {
		t.Errorf("expected 1 accepted and 24 rejected, got %d and %d", accepted, rejected)
	}
}

func TestService_RecomputeAndReads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.timeLogs.AddEvents(
		database.TimeLogEvent{ID: "1", EmployeeID: "E2", Type: database.EventCheckIn, Timestamp: at(8, 0)},
		database.TimeLogEvent{ID: "2", EmployeeID: "E2", Type: database.EventCheckOut, Timestamp: at(12, 0)},
		database.TimeLogEvent{ID: "3", EmployeeID: "E2", Type: database.EventCheckIn, Timestamp: at(13, 0)},
		database.TimeLogEvent{ID: "4", EmployeeID: "E2", Type: database.EventCheckOut, Timestamp: at(18, 30)},
	)

	row, err := env.svc.RecomputeDay(ctx, "E2", day0)
	if err != nil {
		t.Fatalf("RecomputeDay() error = %v", err)
	}
	if row.RegularHours != 8 || row.OvertimeHours != 2.5 {
		t.Errorf("expected 8 + 2.5, got %v + %v", row.RegularHours, row.OvertimeHours)
	}

	sessions, err := env.svc.Sessions(ctx, "E2", day0)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}

	events, err := env.svc.Events(ctx, "E2", day0)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 4 {
		t.Errorf("expected 4 events, got %d", len(events))
	}

	days, err := env.svc.WorkHours(ctx, "E2", day0.AddDate(0, 0, -1), day0.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("WorkHours() error = %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if days[0].Status != database.StatusAbsent || days[1].Status != database.StatusCompleted || days[2].Status != database.StatusAbsent {
		t.Errorf("unexpected statuses %s %s %s", days[0].Status, days[1].Status, days[2].Status)
	}

	if _, err := env.svc.WorkHours(ctx, "E2", day0, day0.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := env.svc.RecomputeDay(ctx, "nobody", day0); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_Roster(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.svc.Roster(context.Background(), "novak")
	if err != nil {
		t.Fatalf("Roster() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "E1" || got[1].ID != "E3" {
		t.Errorf("expected E1 and E3, got %+v", got)
	}

	all, _ := env.svc.Roster(context.Background(), "")
	if len(all) != 3 {
		t.Errorf("expected full roster, got %d", len(all))
	}
}
