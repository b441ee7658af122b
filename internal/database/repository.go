package database

import (
	"context"
	"time"
)

// EmployeeReader provides read-only access to the roster
type EmployeeReader interface {
	// Get retrieves an employee by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredEmployee, error)
	// List returns all employees ordered by ID, enrolled or not
	List(ctx context.Context) ([]StoredEmployee, error)
	// ListEnrolled returns employees with a descriptor, ordered by ID.
	// The order is the roster order used for tie-breaking during matching.
	ListEnrolled(ctx context.Context) ([]StoredEmployee, error)
	// Count returns the total number of employees and how many are enrolled
	Count(ctx context.Context) (total int, enrolled int, err error)
}

// EmployeeWriter provides write access to the roster
type EmployeeWriter interface {
	EmployeeReader

	// Upsert creates or renames an employee. An existing descriptor is kept.
	Upsert(ctx context.Context, id, name string) error
	// SetDescriptor stores the face descriptor and enrolment time.
	// Returns ErrNotFound if the employee does not exist.
	SetDescriptor(ctx context.Context, id string, descriptor []float32, enrolledAt time.Time) error
	// ClearDescriptor removes the face descriptor (reset enrolment).
	// Returns ErrNotFound if the employee does not exist.
	ClearDescriptor(ctx context.Context, id string) error
}

// TimeLogReader provides read-only access to accepted attendance events
type TimeLogReader interface {
	// ListEvents returns the employee's events with since <= timestamp <= until,
	// ordered by timestamp. A zero since or until leaves that side open.
	ListEvents(ctx context.Context, employeeID string, since, until time.Time) ([]TimeLogEvent, error)
	// Count returns the total number of events stored
	Count(ctx context.Context) (int, error)
}

// TimeLogWriter provides append-only write access to attendance events
type TimeLogWriter interface {
	TimeLogReader

	// Append stores a new event. Events are never updated or deleted.
	Append(ctx context.Context, event *TimeLogEvent) error
}

// WorkHoursReader provides read-only access to daily work-hours rows
type WorkHoursReader interface {
	// Get returns the row for an employee and date, returns nil if not found
	Get(ctx context.Context, employeeID string, date time.Time) (*DailyWorkHours, error)
	// ListRange returns rows with from <= date <= to ordered by date
	ListRange(ctx context.Context, employeeID string, from, to time.Time) ([]DailyWorkHours, error)
}

// WorkHoursWriter provides write access to daily work-hours rows
type WorkHoursWriter interface {
	WorkHoursReader

	// Upsert replaces the row for (employee, date). Last writer wins.
	Upsert(ctx context.Context, row *DailyWorkHours) error
	// Delete removes the row for (employee, date) if present
	Delete(ctx context.Context, employeeID string, date time.Time) error
}

// Migrator applies the embedded schema migrations of a backend
type Migrator interface {
	Migrate(ctx context.Context) error
	AppliedMigrations(ctx context.Context) ([]string, error)
}

// NearestFinder is implemented by employee stores that can rank descriptors
// inside the database (pgvector). It is an optional capability.
type NearestFinder interface {
	FindNearest(ctx context.Context, descriptor []float32, limit int) ([]Neighbor, error)
}
