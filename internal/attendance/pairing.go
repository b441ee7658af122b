// Package attendance turns identification events into paired check-in/check-out
// time logs and daily work-hour summaries.
package attendance

import (
	"sort"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// State is the derived pairing state of an employee at a point in time.
type State int

const (
	StateNoOpenSession State = iota
	StateOpenSession
)

func (s State) String() string {
	if s == StateOpenSession {
		return "open_session"
	}
	return "no_open_session"
}

// Policy bounds how far back the engine looks and how often events may repeat.
type Policy struct {
	CheckInLookback               time.Duration
	CheckOutLookback              time.Duration
	CheckOutRequiresCheckInWithin time.Duration
	MinCheckInInterval            time.Duration
	MinCheckOutInterval           time.Duration
}

// DefaultPolicy returns the built-in pairing windows.
func DefaultPolicy() Policy {
	return Policy{
		CheckInLookback:               constants.DefaultCheckInLookback,
		CheckOutLookback:              constants.DefaultCheckOutLookback,
		CheckOutRequiresCheckInWithin: constants.DefaultCheckOutRequiresCheckInWithin,
		MinCheckInInterval:            constants.DefaultMinEventInterval,
		MinCheckOutInterval:           constants.DefaultMinEventInterval,
	}
}

// PolicyFromConfig builds a policy from the attendance configuration.
func PolicyFromConfig(cfg *config.AttendanceConfig) Policy {
	return Policy{
		CheckInLookback:               cfg.CheckInLookback,
		CheckOutLookback:              cfg.CheckOutLookback,
		CheckOutRequiresCheckInWithin: cfg.CheckOutRequiresCheckInWithin,
		MinCheckInInterval:            cfg.MinCheckInInterval,
		MinCheckOutInterval:           cfg.MinCheckOutInterval,
	}
}

// Window is the longest span of history any rule looks at.
func (p Policy) Window() time.Duration {
	w := p.CheckInLookback
	for _, d := range []time.Duration{p.CheckOutLookback, p.CheckOutRequiresCheckInWithin, p.MinCheckInInterval, p.MinCheckOutInterval} {
		if d > w {
			w = d
		}
	}
	return w
}

// Proposal is an event awaiting validation.
type Proposal struct {
	EmployeeID string
	Type       database.EventType
	At         time.Time
}

// Engine validates proposed events against an employee's recent history.
type Engine struct {
	Policy Policy
}

// NewEngine creates a pairing engine with the given policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{Policy: policy}
}

// Since returns the earliest timestamp of history Validate needs for an event at t.
func (e *Engine) Since(at time.Time) time.Time {
	return at.Add(-e.Policy.Window())
}

// Validate returns nil if the proposed event may be appended, a *PairingViolation
// if a pairing rule rejects it, or ErrInvalidEventType.
// History may be unordered and may contain events of other employees, which are ignored.
func (e *Engine) Validate(history []database.TimeLogEvent, p Proposal) error {
	events := sortedFor(history, p.EmployeeID)
	t := p.At

	switch p.Type {
	case database.EventCheckIn:
		if hasUnpairedCheckIn(events, t.Add(-e.Policy.CheckInLookback), t, false) {
			return violation(KindAlreadyOpen, ReasonAlreadyOpen)
		}
		if last, ok := lastBefore(events, database.EventCheckIn, t); ok && t.Sub(last) < e.Policy.MinCheckInInterval {
			return violation(KindTooSoon, ReasonCheckInTooSoon)
		}
		return nil

	case database.EventCheckOut:
		if !hasCheckIn(events, t.Add(-e.Policy.CheckOutRequiresCheckInWithin), t) {
			return violation(KindNoOpenSession, ReasonNoRecentCheckIn)
		}
		if !hasUnpairedCheckIn(events, t.Add(-e.Policy.CheckOutLookback), t, true) {
			return violation(KindNoOpenSession, ReasonNoOpenSession)
		}
		if last, ok := lastBefore(events, database.EventCheckOut, t); ok && t.Sub(last) < e.Policy.MinCheckOutInterval {
			return violation(KindTooSoon, ReasonCheckOutTooSoon)
		}
		return nil
	}

	return ErrInvalidEventType
}

// State derives the pairing state at t from the check-in lookback window.
func (e *Engine) State(history []database.TimeLogEvent, employeeID string, at time.Time) State {
	events := sortedFor(history, employeeID)
	if hasUnpairedCheckIn(events, at.Add(-e.Policy.CheckInLookback), at, false) {
		return StateOpenSession
	}
	return StateNoOpenSession
}

// sortedFor returns a timestamp-ordered copy of the employee's events.
// An empty employeeID keeps every event.
func sortedFor(history []database.TimeLogEvent, employeeID string) []database.TimeLogEvent {
	events := make([]database.TimeLogEvent, 0, len(history))
	for i := range history {
		if employeeID == "" || history[i].EmployeeID == employeeID {
			events = append(events, history[i])
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

// firstAtOrAfter returns the index of the first event with timestamp >= start.
func firstAtOrAfter(events []database.TimeLogEvent, start time.Time) int {
	return sort.Search(len(events), func(i int) bool {
		return !events[i].Timestamp.Before(start)
	})
}

// latestCheckOut returns the timestamp of the latest check-out anywhere in events.
func latestCheckOut(events []database.TimeLogEvent) (time.Time, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == database.EventCheckOut {
			return events[i].Timestamp, true
		}
	}
	return time.Time{}, false
}

// hasUnpairedCheckIn reports whether a check-in inside the window has no
// check-out with a strictly later timestamp. The window is (from, to] when
// inclusiveFrom is false and [from, to] otherwise.
func hasUnpairedCheckIn(events []database.TimeLogEvent, from, to time.Time, inclusiveFrom bool) bool {
	lastOut, hasOut := latestCheckOut(events)
	for i := firstAtOrAfter(events, from); i < len(events); i++ {
		ev := &events[i]
		if ev.Timestamp.After(to) {
			break
		}
		if ev.Type != database.EventCheckIn {
			continue
		}
		if !inclusiveFrom && ev.Timestamp.Equal(from) {
			continue
		}
		if !hasOut || !lastOut.After(ev.Timestamp) {
			return true
		}
	}
	return false
}

// hasCheckIn reports whether any check-in falls in [from, to].
func hasCheckIn(events []database.TimeLogEvent, from, to time.Time) bool {
	for i := firstAtOrAfter(events, from); i < len(events); i++ {
		if events[i].Timestamp.After(to) {
			break
		}
		if events[i].Type == database.EventCheckIn {
			return true
		}
	}
	return false
}

// lastBefore returns the latest event of type typ with timestamp <= t.
func lastBefore(events []database.TimeLogEvent, typ database.EventType, t time.Time) (time.Time, bool) {
	end := sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp.After(t)
	})
	for i := end - 1; i >= 0; i-- {
		if events[i].Type == typ {
			return events[i].Timestamp, true
		}
	}
	return time.Time{}, false
}

// Session is a check-in and, once closed, its check-out.
type Session struct {
	CheckIn  database.TimeLogEvent
	CheckOut *database.TimeLogEvent
}

// Open reports whether the session has no check-out yet.
func (s *Session) Open() bool {
	return s.CheckOut == nil
}

// Duration returns the absolute time between check-in and check-out, zero while open.
func (s *Session) Duration() time.Duration {
	if s.CheckOut == nil {
		return 0
	}
	d := s.CheckOut.Timestamp.Sub(s.CheckIn.Timestamp)
	if d < 0 {
		d = -d
	}
	return d
}

// PairSessions reconstructs sessions from an event log. A check-out closes the
// most recent open session; a check-out with nothing open is dropped; a check-in
// while a session is open leaves the earlier one unclosed.
func PairSessions(events []database.TimeLogEvent) []Session {
	sorted := sortedFor(events, "")

	var sessions []Session
	open := -1
	for i := range sorted {
		ev := sorted[i]
		switch ev.Type {
		case database.EventCheckIn:
			sessions = append(sessions, Session{CheckIn: ev})
			open = len(sessions) - 1
		case database.EventCheckOut:
			if open < 0 {
				continue
			}
			sessions[open].CheckOut = &ev
			open = -1
		}
	}
	return sessions
}
