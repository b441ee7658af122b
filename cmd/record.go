package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a check-in or check-out without face matching",
	Long: `Record an attendance event for an employee by ID, e.g. when the kiosk
could not recognise them or a forgotten check-out has to be entered later.
The same pairing rules apply as at the kiosk.

--at accepts "YYYY-MM-DD HH:MM" in the configured time zone or an RFC 3339
timestamp. Without --at the current time is used.

Examples:
  # Check in now
  face-attendance record --employee E1 --type checkin

  # Enter a forgotten check-out
  face-attendance record --employee E1 --type checkout --at "2026-03-02 17:30"`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().String("employee", "", "Employee ID")
	recordCmd.Flags().String("type", "", "Event type: checkin or checkout")
	recordCmd.Flags().String("at", "", "Event time (default now)")
	recordCmd.Flags().String("source", constants.SourceManual, "Event source stored with the event")
	recordCmd.Flags().Bool("json", false, "Output as JSON")
}

// RecordResult is the output of the record command
type RecordResult struct {
	EventID    string `json:"event_id"`
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	Source     string `json:"source"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Regular    string `json:"regular"`
	Overtime   string `json:"overtime"`
}

// manualEntry is a parsed record command line
type manualEntry struct {
	employeeID string
	eventType  string
	at         string
	source     string
}

// parseEventTime parses --at. Empty means the service clock decides.
func parseEventTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected \"YYYY-MM-DD HH:MM\" or RFC 3339", value)
	}
	return t, nil
}

// recordEntry validates the command line and records the event.
func recordEntry(ctx context.Context, svc *attendance.Service, entry manualEntry) (*attendance.Result, error) {
	if entry.employeeID == "" {
		return nil, errors.New("--employee is required")
	}
	typ, ok := database.ParseEventType(entry.eventType)
	if !ok {
		return nil, fmt.Errorf("invalid --type %q, expected checkin or checkout", entry.eventType)
	}
	at, err := parseEventTime(entry.at, svc.Location())
	if err != nil {
		return nil, err
	}
	return svc.RecordForEmployee(ctx, entry.employeeID, typ, at, entry.source)
}

func runRecord(cmd *cobra.Command, args []string) error {
	entry := manualEntry{
		employeeID: mustGetString(cmd, "employee"),
		eventType:  mustGetString(cmd, "type"),
		at:         mustGetString(cmd, "at"),
		source:     mustGetString(cmd, "source"),
	}
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	res, err := recordEntry(ctx, svc, entry)
	if err != nil {
		return fmt.Errorf("recording %s for %s: %w", entry.eventType, entry.employeeID, err)
	}

	loc := svc.Location()
	out := RecordResult{
		EventID:    res.Event.ID,
		EmployeeID: res.Employee.ID,
		Name:       res.Employee.Name,
		Type:       string(res.Event.Type),
		Timestamp:  res.Event.Timestamp.In(loc).Format(time.RFC3339),
		Source:     res.Event.Source,
		Date:       res.Summary.Date.Format(database.DateKey),
		Status:     res.Summary.Status,
		Regular:    attendance.FormatHours(res.Summary.RegularHours),
		Overtime:   attendance.FormatHours(res.Summary.OvertimeHours),
	}

	if jsonOutput {
		return outputJSON(out)
	}

	fmt.Printf("Recorded %s for %s (%s) at %s\n", out.Type, out.Name, out.EmployeeID, out.Timestamp)
	fmt.Printf("  %s  %-10s %6s + %6s\n", out.Date, out.Status, out.Regular, out.Overtime)
	return nil
}
