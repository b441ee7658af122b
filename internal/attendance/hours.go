package attendance

import (
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Hours is the regular/overtime split of a day.
type Hours struct {
	Regular  float64
	Overtime float64
}

// Total returns regular plus overtime hours.
func (h Hours) Total() float64 {
	return h.Regular + h.Overtime
}

// Aggregator splits elapsed working time into regular and overtime hours.
type Aggregator struct {
	RegularDayHours float64
}

// NewAggregator creates an aggregator; a non-positive day length uses the default.
func NewAggregator(regularDayHours float64) *Aggregator {
	if regularDayHours <= 0 {
		regularDayHours = constants.DefaultRegularDayHours
	}
	return &Aggregator{RegularDayHours: regularDayHours}
}

// Aggregate computes the split between first check-in and last check-out.
// A negative elapsed time is taken as its absolute value.
func (a *Aggregator) Aggregate(firstCheckIn, lastCheckOut time.Time) Hours {
	elapsed := math.Abs(lastCheckOut.Sub(firstCheckIn).Hours())
	return Hours{
		Regular:  math.Min(elapsed, a.RegularDayHours),
		Overtime: math.Max(elapsed-a.RegularDayHours, 0),
	}
}

// FormatHours renders fractional hours as H:MM. Hours are truncated and
// minutes rounded; 60 rounded minutes carry into the hour.
func FormatHours(h float64) string {
	sign := ""
	if h < 0 {
		sign = "-"
		h = -h
	}
	hours := int(h)
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	return fmt.Sprintf("%s%d:%02d", sign, hours, minutes)
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Summarize recomputes the daily row for an employee from their events.
// The day is made of the sessions whose check-in falls on date in loc.
// With no such session the row has StatusAbsent and zero hours.
func (a *Aggregator) Summarize(employeeID string, date time.Time, events []database.TimeLogEvent, loc *time.Location) database.DailyWorkHours {
	day := DayStart(date, loc)
	next := day.AddDate(0, 0, 1)

	row := database.DailyWorkHours{
		EmployeeID: employeeID,
		Date:       day,
		Status:     database.StatusAbsent,
	}

	var first, last *time.Time
	open := false
	for _, s := range PairSessions(sortedFor(events, employeeID)) {
		in := s.CheckIn.Timestamp
		if in.Before(day) || !in.Before(next) {
			continue
		}
		if first == nil || in.Before(*first) {
			first = &in
		}
		if s.Open() {
			open = true
			continue
		}
		out := s.CheckOut.Timestamp
		if last == nil || out.After(*last) {
			last = &out
		}
	}

	if first == nil {
		return row
	}

	row.FirstCheckIn = first
	row.LastCheckOut = last
	if last != nil {
		h := a.Aggregate(*first, *last)
		row.RegularHours = h.Regular
		row.OvertimeHours = h.Overtime
	}
	if open {
		row.Status = database.StatusCheckedIn
	} else {
		row.Status = database.StatusCompleted
	}
	return row
}
