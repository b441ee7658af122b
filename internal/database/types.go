package database

import (
	"time"
)

// EventType is the kind of a time-log event.
type EventType string

const (
	EventCheckIn  EventType = "checkin"
	EventCheckOut EventType = "checkout"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return t == EventCheckIn || t == EventCheckOut
}

// ParseEventType accepts the event type spellings used by clients
// ("checkin", "check_in", "check-in" and their check-out counterparts).
func ParseEventType(s string) (EventType, bool) {
	switch s {
	case "checkin", "check_in", "check-in":
		return EventCheckIn, true
	case "checkout", "check_out", "check-out":
		return EventCheckOut, true
	}
	return "", false
}

// StoredEmployee represents an employee on the roster.
// Descriptor is nil for employees that have not been enrolled.
type StoredEmployee struct {
	ID         string
	Name       string
	Descriptor []float32
	EnrolledAt *time.Time
}

// Enrolled reports whether the employee has a face descriptor.
func (e *StoredEmployee) Enrolled() bool {
	return len(e.Descriptor) > 0
}

// TimeLogEvent is an accepted, immutable attendance event.
type TimeLogEvent struct {
	ID         string
	EmployeeID string
	Type       EventType
	Timestamp  time.Time
	Source     string
	CreatedAt  time.Time
}

// Daily work-hours statuses.
const (
	StatusCheckedIn = "checked_in"
	StatusCompleted = "completed"
	StatusAbsent    = "absent" // returned by reads only, never stored
)

// DailyWorkHours is the recomputed summary for one employee and date.
type DailyWorkHours struct {
	EmployeeID    string
	Date          time.Time // midnight of the day in the configured location
	RegularHours  float64
	OvertimeHours float64
	FirstCheckIn  *time.Time
	LastCheckOut  *time.Time
	Status        string
	UpdatedAt     time.Time
}

// DateKey is the canonical YYYY-MM-DD representation used by stores.
const DateKey = "2006-01-02"
