// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockEmployeeWriter is a mock implementation of database.EmployeeWriter
type MockEmployeeWriter struct {
	mu        sync.RWMutex
	employees map[string]*database.StoredEmployee

	// ListEnrolledCalls counts roster reads, for cache tests
	ListEnrolledCalls int

	// Error injection
	GetError             error
	ListError            error
	ListEnrolledError    error
	CountError           error
	UpsertError          error
	SetDescriptorError   error
	ClearDescriptorError error
}

// NewMockEmployeeWriter creates a new mock employee store
func NewMockEmployeeWriter() *MockEmployeeWriter {
	return &MockEmployeeWriter{
		employees: make(map[string]*database.StoredEmployee),
	}
}

// AddEmployee adds an employee to the mock store
func (m *MockEmployeeWriter) AddEmployee(emp database.StoredEmployee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = &emp
}

func copyEmployee(emp *database.StoredEmployee) database.StoredEmployee {
	out := *emp
	if emp.Descriptor != nil {
		out.Descriptor = append([]float32(nil), emp.Descriptor...)
	}
	return out
}

// sortedLocked returns copies of the stored employees ordered by ID
func (m *MockEmployeeWriter) sortedLocked(enrolledOnly bool) []database.StoredEmployee {
	out := make([]database.StoredEmployee, 0, len(m.employees))
	for _, emp := range m.employees {
		if enrolledOnly && !emp.Enrolled() {
			continue
		}
		out = append(out, copyEmployee(emp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get retrieves an employee by ID
func (m *MockEmployeeWriter) Get(ctx context.Context, id string) (*database.StoredEmployee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	out := copyEmployee(emp)
	return &out, nil
}

// List returns all employees ordered by ID
func (m *MockEmployeeWriter) List(ctx context.Context) ([]database.StoredEmployee, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(false), nil
}

// ListEnrolled returns employees with a descriptor ordered by ID
func (m *MockEmployeeWriter) ListEnrolled(ctx context.Context) ([]database.StoredEmployee, error) {
	m.mu.Lock()
	m.ListEnrolledCalls++
	m.mu.Unlock()

	if m.ListEnrolledError != nil {
		return nil, m.ListEnrolledError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(true), nil
}

// Count returns the total and enrolled number of employees
func (m *MockEmployeeWriter) Count(ctx context.Context) (int, int, error) {
	if m.CountError != nil {
		return 0, 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	enrolled := 0
	for _, emp := range m.employees {
		if emp.Enrolled() {
			enrolled++
		}
	}
	return len(m.employees), enrolled, nil
}

// Upsert creates or renames an employee
func (m *MockEmployeeWriter) Upsert(ctx context.Context, id, name string) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if emp, ok := m.employees[id]; ok {
		emp.Name = name
		return nil
	}
	m.employees[id] = &database.StoredEmployee{ID: id, Name: name}
	return nil
}

// SetDescriptor stores a descriptor for an existing employee
func (m *MockEmployeeWriter) SetDescriptor(ctx context.Context, id string, descriptor []float32, enrolledAt time.Time) error {
	if m.SetDescriptorError != nil {
		return m.SetDescriptorError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return database.ErrNotFound
	}
	emp.Descriptor = append([]float32(nil), descriptor...)
	emp.EnrolledAt = &enrolledAt
	return nil
}

// ClearDescriptor removes the descriptor of an existing employee
func (m *MockEmployeeWriter) ClearDescriptor(ctx context.Context, id string) error {
	if m.ClearDescriptorError != nil {
		return m.ClearDescriptorError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return database.ErrNotFound
	}
	emp.Descriptor = nil
	emp.EnrolledAt = nil
	return nil
}

// MockTimeLogWriter is a mock implementation of database.TimeLogWriter
type MockTimeLogWriter struct {
	mu     sync.RWMutex
	events []database.TimeLogEvent

	// Error injection
	ListEventsError error
	CountError      error
	AppendError     error
}

// NewMockTimeLogWriter creates a new mock time-log store
func NewMockTimeLogWriter() *MockTimeLogWriter {
	return &MockTimeLogWriter{}
}

// AddEvents seeds events without validation
func (m *MockTimeLogWriter) AddEvents(events ...database.TimeLogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// All returns every stored event in insertion order
func (m *MockTimeLogWriter) All() []database.TimeLogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.TimeLogEvent(nil), m.events...)
}

// ListEvents returns the employee's events within [since, until] ordered by timestamp
func (m *MockTimeLogWriter) ListEvents(ctx context.Context, employeeID string, since, until time.Time) ([]database.TimeLogEvent, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.TimeLogEvent
	for _, ev := range m.events {
		if ev.EmployeeID != employeeID {
			continue
		}
		if !since.IsZero() && ev.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && ev.Timestamp.After(until) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Count returns the number of stored events
func (m *MockTimeLogWriter) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events), nil
}

// Append stores an event
func (m *MockTimeLogWriter) Append(ctx context.Context, event *database.TimeLogEvent) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

// MockWorkHoursWriter is a mock implementation of database.WorkHoursWriter
type MockWorkHoursWriter struct {
	mu   sync.RWMutex
	rows map[string]database.DailyWorkHours

	// Error injection
	GetError       error
	ListRangeError error
	UpsertError    error
	DeleteError    error
}

// NewMockWorkHoursWriter creates a new mock work-hours store
func NewMockWorkHoursWriter() *MockWorkHoursWriter {
	return &MockWorkHoursWriter{
		rows: make(map[string]database.DailyWorkHours),
	}
}

func rowKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format(database.DateKey)
}

// Get returns the row for an employee and date
func (m *MockWorkHoursWriter) Get(ctx context.Context, employeeID string, date time.Time) (*database.DailyWorkHours, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[rowKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// ListRange returns the employee's rows within [from, to] ordered by date
func (m *MockWorkHoursWriter) ListRange(ctx context.Context, employeeID string, from, to time.Time) ([]database.DailyWorkHours, error) {
	if m.ListRangeError != nil {
		return nil, m.ListRangeError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo, hi := from.Format(database.DateKey), to.Format(database.DateKey)
	var out []database.DailyWorkHours
	for _, row := range m.rows {
		key := row.Date.Format(database.DateKey)
		if row.EmployeeID == employeeID && key >= lo && key <= hi {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Upsert replaces the row for (employee, date)
func (m *MockWorkHoursWriter) Upsert(ctx context.Context, row *database.DailyWorkHours) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rowKey(row.EmployeeID, row.Date)] = *row
	return nil
}

// Delete removes the row for (employee, date)
func (m *MockWorkHoursWriter) Delete(ctx context.Context, employeeID string, date time.Time) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rowKey(employeeID, date))
	return nil
}

// Compile-time interface checks
var (
	_ database.EmployeeWriter  = (*MockEmployeeWriter)(nil)
	_ database.TimeLogWriter   = (*MockTimeLogWriter)(nil)
	_ database.WorkHoursWriter = (*MockWorkHoursWriter)(nil)
)
