package handlers

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// EventResponse is an accepted time-log event
type EventResponse struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
}

// EmployeeResponse is a roster entry. The descriptor itself is never returned.
type EmployeeResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Enrolled   bool       `json:"enrolled"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// WorkHoursResponse is one daily summary row
type WorkHoursResponse struct {
	EmployeeID    string     `json:"employee_id"`
	Date          string     `json:"date"`
	RegularHours  float64    `json:"regular_hours"`
	OvertimeHours float64    `json:"overtime_hours"`
	Regular       string     `json:"regular"`
	Overtime      string     `json:"overtime"`
	FirstCheckIn  *time.Time `json:"first_check_in,omitempty"`
	LastCheckOut  *time.Time `json:"last_check_out,omitempty"`
	Status        string     `json:"status"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// SessionResponse is a check-in with its check-out, if any
type SessionResponse struct {
	CheckIn  EventResponse  `json:"check_in"`
	CheckOut *EventResponse `json:"check_out,omitempty"`
	Open     bool           `json:"open"`
	Hours    string         `json:"hours"`
}

// NeighborResponse is an enrolled employee close to a descriptor
type NeighborResponse struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
}

func toEventResponse(ev database.TimeLogEvent) EventResponse {
	return EventResponse{
		ID:         ev.ID,
		EmployeeID: ev.EmployeeID,
		Type:       string(ev.Type),
		Timestamp:  ev.Timestamp,
		Source:     ev.Source,
	}
}

func toEmployeeResponse(emp database.StoredEmployee) EmployeeResponse {
	return EmployeeResponse{
		ID:         emp.ID,
		Name:       emp.Name,
		Enrolled:   emp.Enrolled(),
		EnrolledAt: emp.EnrolledAt,
	}
}

func toWorkHoursResponse(row database.DailyWorkHours) WorkHoursResponse {
	resp := WorkHoursResponse{
		EmployeeID:    row.EmployeeID,
		Date:          row.Date.Format(database.DateKey),
		RegularHours:  row.RegularHours,
		OvertimeHours: row.OvertimeHours,
		Regular:       attendance.FormatHours(row.RegularHours),
		Overtime:      attendance.FormatHours(row.OvertimeHours),
		FirstCheckIn:  row.FirstCheckIn,
		LastCheckOut:  row.LastCheckOut,
		Status:        row.Status,
	}
	if !row.UpdatedAt.IsZero() {
		updated := row.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func toSessionResponse(s attendance.Session) SessionResponse {
	resp := SessionResponse{
		CheckIn: toEventResponse(s.CheckIn),
		Open:    s.Open(),
		Hours:   attendance.FormatHours(s.Duration().Hours()),
	}
	if s.CheckOut != nil {
		out := toEventResponse(*s.CheckOut)
		resp.CheckOut = &out
	}
	return resp
}

func toNeighborResponses(neighbors []database.Neighbor) []NeighborResponse {
	out := make([]NeighborResponse, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, NeighborResponse{EmployeeID: n.EmployeeID, Name: n.Name, Distance: n.Distance})
	}
	return out
}
