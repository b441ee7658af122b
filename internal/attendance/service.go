package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/descriptor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrNotEnrolled is returned when an operation needs a descriptor the employee lacks.
	ErrNotEnrolled = errors.New("employee has no enrolled face")

	// ErrInvalidRange is returned for a date range that is reversed or too long.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidEmployee is returned when an employee is written without an ID or name.
	ErrInvalidEmployee = errors.New("employee id and name are required")
)

// maxRangeDays caps work-hour range reads.
const maxRangeDays = 366

// Request is a face-identified attendance event.
type Request struct {
	Descriptor any // any wire format accepted by descriptor.Decode
	Type       database.EventType
	Source     string    // defaults to constants.SourceFace
	At         time.Time // defaults to the service clock
}

// Result is an accepted event together with who it was attributed to.
type Result struct {
	Event      database.TimeLogEvent
	Employee   database.StoredEmployee
	Distance   float64
	Confidence float64
	Summary    database.DailyWorkHours
}

// Identification is a probe resolved against the roster.
type Identification struct {
	Employee   database.StoredEmployee
	Distance   float64
	Confidence float64
}

// EnrollResult reports the stored enrolment and employees that look alike.
type EnrollResult struct {
	Employee database.StoredEmployee
	Similar  []database.Neighbor
}

// Service orchestrates matching, pairing and aggregation over the stores.
// One Service must be shared by every entry point so the per-employee
// serialization holds.
type Service struct {
	employees database.EmployeeWriter
	timeLogs  database.TimeLogWriter
	workHours database.WorkHoursWriter

	matcher    *facematch.Matcher
	engine     *Engine
	aggregator *Aggregator
	loc        *time.Location

	locks  *keyedMutex
	roster *rosterCache

	// Now is the service clock. Tests replace it.
	Now func() time.Time
}

// NewService creates an attendance service from the configured policy.
func NewService(cfg *config.AttendanceConfig, employees database.EmployeeWriter, timeLogs database.TimeLogWriter, workHours database.WorkHoursWriter) *Service {
	s := &Service{
		employees:  employees,
		timeLogs:   timeLogs,
		workHours:  workHours,
		matcher:    facematch.NewMatcher(cfg.MatchThreshold),
		engine:     NewEngine(PolicyFromConfig(cfg)),
		aggregator: NewAggregator(cfg.RegularDayHours),
		loc:        cfg.Location(),
		locks:      newKeyedMutex(),
		Now:        time.Now,
	}
	s.roster = &rosterCache{
		ttl: cfg.RosterCacheTTL,
		now: func() time.Time { return s.Now() },
	}
	return s
}

// Threshold returns the match acceptance threshold.
func (s *Service) Threshold() float64 {
	return s.matcher.Threshold
}

// Policy returns the pairing policy.
func (s *Service) Policy() Policy {
	return s.engine.Policy
}

// RegularDayHours returns the length of a regular working day.
func (s *Service) RegularDayHours() float64 {
	return s.aggregator.RegularDayHours
}

// Location returns the time zone days are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Identify decodes a probe and resolves it to an enrolled employee.
func (s *Service) Identify(ctx context.Context, raw any) (*Identification, error) {
	probe, err := descriptor.Decode(raw)
	if err != nil {
		return nil, err
	}
	return s.identify(ctx, probe)
}

func (s *Service) identify(ctx context.Context, probe descriptor.Descriptor) (*Identification, error) {
	snap, err := s.roster.load(ctx, s.employees)
	if err != nil {
		return nil, persistence("load roster", err)
	}

	match, ok := s.matcher.Match(probe, snap.candidates)
	if !ok {
		return nil, ErrNoMatch
	}
	emp, _ := snap.employee(match.EmployeeID)
	return &Identification{
		Employee:   emp,
		Distance:   match.Distance,
		Confidence: match.Confidence,
	}, nil
}

// Rank decodes a probe and returns the k nearest enrolled employees regardless
// of the threshold. k <= 0 returns the whole roster.
func (s *Service) Rank(ctx context.Context, raw any, k int) ([]facematch.Match, error) {
	probe, err := descriptor.Decode(raw)
	if err != nil {
		return nil, err
	}
	snap, err := s.roster.load(ctx, s.employees)
	if err != nil {
		return nil, persistence("load roster", err)
	}
	return facematch.Rank(probe, snap.candidates, k), nil
}

// Record identifies the probe and records the event for the matched employee.
func (s *Service) Record(ctx context.Context, req Request) (*Result, error) {
	if !req.Type.Valid() {
		return nil, ErrInvalidEventType
	}
	probe, err := descriptor.Decode(req.Descriptor)
	if err != nil {
		return nil, err
	}
	id, err := s.identify(ctx, probe)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = constants.SourceFace
	}
	res, err := s.record(ctx, id.Employee, req.Type, req.At, source)
	if err != nil {
		return nil, err
	}
	res.Distance = id.Distance
	res.Confidence = id.Confidence
	return res, nil
}

// RecordForEmployee records an event without face matching, e.g. a manual
// correction. The same pairing rules apply.
func (s *Service) RecordForEmployee(ctx context.Context, employeeID string, typ database.EventType, at time.Time, source string) (*Result, error) {
	if !typ.Valid() {
		return nil, ErrInvalidEventType
	}
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = constants.SourceManual
	}
	return s.record(ctx, *emp, typ, at, source)
}

func (s *Service) record(ctx context.Context, emp database.StoredEmployee, typ database.EventType, at time.Time, source string) (*Result, error) {
	if at.IsZero() {
		at = s.Now()
	}

	unlock, err := s.locks.Lock(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("waiting for employee %s: %w", emp.ID, err)
	}
	defer unlock()

	history, err := s.timeLogs.ListEvents(ctx, emp.ID, s.engine.Since(at), time.Time{})
	if err != nil {
		return nil, persistence("load history", err)
	}

	if err := s.engine.Validate(history, Proposal{EmployeeID: emp.ID, Type: typ, At: at}); err != nil {
		return nil, err
	}

	event := database.TimeLogEvent{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Type:       typ,
		Timestamp:  at,
		Source:     source,
		CreatedAt:  s.Now(),
	}
	if err := s.timeLogs.Append(ctx, &event); err != nil {
		return nil, persistence("append event", err)
	}

	// A check-out belongs to the day its session started.
	day := at
	if typ == database.EventCheckOut {
		if in, ok := lastBefore(sortedFor(history, emp.ID), database.EventCheckIn, at); ok {
			day = in
		}
	}

	summary, err := s.recomputeLocked(ctx, emp.ID, day)
	if err != nil {
		// The event is stored; the row can be rebuilt with RecomputeDay.
		log.Printf("attendance: recompute %s on %s failed: %v", emp.ID, day.Format(database.DateKey), err)
		return nil, err
	}

	return &Result{
		Event:    event,
		Employee: emp,
		Summary:  *summary,
	}, nil
}

// RecomputeDay rebuilds the daily row for an employee from the event log.
func (s *Service) RecomputeDay(ctx context.Context, employeeID string, date time.Time) (*database.DailyWorkHours, error) {
	if _, err := s.employee(ctx, employeeID); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("waiting for employee %s: %w", employeeID, err)
	}
	defer unlock()

	return s.recomputeLocked(ctx, employeeID, date)
}

// recomputeLocked must be called with the employee's lock held.
func (s *Service) recomputeLocked(ctx context.Context, employeeID string, date time.Time) (*database.DailyWorkHours, error) {
	events, err := s.dayEvents(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}

	row := s.aggregator.Summarize(employeeID, date, events, s.loc)
	if row.Status == database.StatusAbsent {
		if err := s.workHours.Delete(ctx, employeeID, row.Date); err != nil {
			return nil, persistence("delete work hours", err)
		}
		return &row, nil
	}

	row.UpdatedAt = s.Now()
	if err := s.workHours.Upsert(ctx, &row); err != nil {
		return nil, persistence("store work hours", err)
	}
	return &row, nil
}

// dayEvents loads the events that can belong to sessions starting on date:
// everything from midnight until a check-out could still close such a session.
func (s *Service) dayEvents(ctx context.Context, employeeID string, date time.Time) ([]database.TimeLogEvent, error) {
	day := DayStart(date, s.loc)
	until := day.AddDate(0, 0, 1).Add(s.engine.Policy.CheckOutRequiresCheckInWithin)
	events, err := s.timeLogs.ListEvents(ctx, employeeID, day, until)
	if err != nil {
		return nil, persistence("load events", err)
	}
	return events, nil
}

// Events returns the employee's events on date.
func (s *Service) Events(ctx context.Context, employeeID string, date time.Time) ([]database.TimeLogEvent, error) {
	if _, err := s.employee(ctx, employeeID); err != nil {
		return nil, err
	}
	day := DayStart(date, s.loc)
	events, err := s.timeLogs.ListEvents(ctx, employeeID, day, day.AddDate(0, 0, 1).Add(-time.Nanosecond))
	if err != nil {
		return nil, persistence("load events", err)
	}
	return events, nil
}

// Sessions returns the sessions whose check-in falls on date.
func (s *Service) Sessions(ctx context.Context, employeeID string, date time.Time) ([]Session, error) {
	if _, err := s.employee(ctx, employeeID); err != nil {
		return nil, err
	}
	events, err := s.dayEvents(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}

	day := DayStart(date, s.loc)
	next := day.AddDate(0, 0, 1)
	sessions := make([]Session, 0)
	for _, sess := range PairSessions(events) {
		if !sess.CheckIn.Timestamp.Before(day) && sess.CheckIn.Timestamp.Before(next) {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

// WorkHours returns one row per day in [from, to]. Days without a stored row
// are reported as absent.
func (s *Service) WorkHours(ctx context.Context, employeeID string, from, to time.Time) ([]database.DailyWorkHours, error) {
	if _, err := s.employee(ctx, employeeID); err != nil {
		return nil, err
	}

	first := DayStart(from, s.loc)
	last := DayStart(to, s.loc)
	if last.Before(first) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, last.Format(database.DateKey), first.Format(database.DateKey))
	}
	if last.Sub(first) > maxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: at most %d days", ErrInvalidRange, maxRangeDays)
	}

	rows, err := s.workHours.ListRange(ctx, employeeID, first, last)
	if err != nil {
		return nil, persistence("load work hours", err)
	}
	stored := make(map[string]database.DailyWorkHours, len(rows))
	for _, row := range rows {
		stored[row.Date.Format(database.DateKey)] = row
	}

	var out []database.DailyWorkHours
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if row, ok := stored[day.Format(database.DateKey)]; ok {
			row.Date = day
			out = append(out, row)
			continue
		}
		out = append(out, database.DailyWorkHours{
			EmployeeID: employeeID,
			Date:       day,
			Status:     database.StatusAbsent,
		})
	}
	return out, nil
}

// Roster returns employees whose normalized name contains the query.
func (s *Service) Roster(ctx context.Context, nameQuery string) ([]database.StoredEmployee, error) {
	all, err := s.employees.List(ctx)
	if err != nil {
		return nil, persistence("list employees", err)
	}
	out := make([]database.StoredEmployee, 0, len(all))
	for _, emp := range all {
		if facematch.NameMatches(emp.Name, nameQuery) {
			out = append(out, emp)
		}
	}
	return out, nil
}

// AddEmployee creates or renames an employee.
func (s *Service) AddEmployee(ctx context.Context, id, name string) error {
	if id == "" || name == "" {
		return ErrInvalidEmployee
	}
	if err := s.employees.Upsert(ctx, id, name); err != nil {
		return persistence("store employee", err)
	}
	s.roster.invalidate()
	return nil
}

// Enroll stores a face descriptor for an employee. Other enrolled employees
// within the match threshold are reported so a duplicate enrolment can be spotted.
func (s *Service) Enroll(ctx context.Context, employeeID string, raw any) (*EnrollResult, error) {
	d, err := descriptor.Decode(raw)
	if err != nil {
		return nil, err
	}
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	snap, err := s.roster.load(ctx, s.employees)
	if err != nil {
		return nil, persistence("load roster", err)
	}
	similar, err := snap.similarityIndex().Within(d, s.matcher.Threshold, constants.DefaultCandidateLimit, employeeID)
	if err != nil {
		return nil, fmt.Errorf("searching similar employees: %w", err)
	}

	enrolledAt := s.Now()
	if err := s.employees.SetDescriptor(ctx, employeeID, d, enrolledAt); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, persistence("store descriptor", err)
	}

	emp.Descriptor = d
	emp.EnrolledAt = &enrolledAt
	s.roster.update(*emp)
	return &EnrollResult{Employee: *emp, Similar: similar}, nil
}

// ResetFace clears an employee's descriptor. The employee stops matching
// as soon as this returns.
func (s *Service) ResetFace(ctx context.Context, employeeID string) error {
	if err := s.employees.ClearDescriptor(ctx, employeeID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrEmployeeNotFound
		}
		return persistence("clear descriptor", err)
	}
	s.roster.update(database.StoredEmployee{ID: employeeID})
	return nil
}

// Similar returns the k enrolled employees that look most like the given one.
func (s *Service) Similar(ctx context.Context, employeeID string, k int) ([]database.Neighbor, error) {
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !emp.Enrolled() {
		return nil, ErrNotEnrolled
	}

	snap, err := s.roster.load(ctx, s.employees)
	if err != nil {
		return nil, persistence("load roster", err)
	}
	neighbors, err := snap.similarityIndex().Search(emp.Descriptor, k, employeeID)
	if err != nil {
		if errors.Is(err, database.ErrIndexEmpty) {
			return nil, nil
		}
		return nil, fmt.Errorf("searching similar employees: %w", err)
	}
	return neighbors, nil
}

// Employee returns an employee by ID.
func (s *Service) Employee(ctx context.Context, employeeID string) (*database.StoredEmployee, error) {
	return s.employee(ctx, employeeID)
}

func (s *Service) employee(ctx context.Context, employeeID string) (*database.StoredEmployee, error) {
	emp, err := s.employees.Get(ctx, employeeID)
	if err != nil {
		return nil, persistence("load employee", err)
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	return emp, nil
}
