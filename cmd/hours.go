package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var hoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "Inspect and rebuild daily work hours",
}

var hoursRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild daily work-hours rows from the event log",
	Long: `Rebuild the daily work-hours rows of an employee from the time-log events.
Use it after importing events or when a summary update failed after the
event was stored.

Examples:
  # Rebuild today's row
  face-attendance hours recompute --employee E1

  # Rebuild a whole week
  face-attendance hours recompute --employee E1 --date 2026-03-02 --days 7`,
	RunE: runHoursRecompute,
}

var hoursShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show daily work hours of an employee",
	Long: `Show one row per day with regular and overtime hours.
Days without any session are shown as absent.

Examples:
  face-attendance hours show --employee E1 --from 2026-03-01 --to 2026-03-31`,
	RunE: runHoursShow,
}

func init() {
	rootCmd.AddCommand(hoursCmd)
	hoursCmd.AddCommand(hoursRecomputeCmd)
	hoursCmd.AddCommand(hoursShowCmd)

	hoursRecomputeCmd.Flags().String("employee", "", "Employee ID")
	hoursRecomputeCmd.Flags().String("date", "", "First day to rebuild, YYYY-MM-DD (default today)")
	hoursRecomputeCmd.Flags().Int("days", 1, "Number of days to rebuild")

	hoursShowCmd.Flags().String("employee", "", "Employee ID")
	hoursShowCmd.Flags().String("from", "", "First day, YYYY-MM-DD (default today)")
	hoursShowCmd.Flags().String("to", "", "Last day, YYYY-MM-DD (default --from)")
	hoursShowCmd.Flags().Bool("json", false, "Output as JSON")
}

// HoursRow is one day in hours show output
type HoursRow struct {
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	FirstCheckIn  string  `json:"first_check_in,omitempty"`
	LastCheckOut  string  `json:"last_check_out,omitempty"`
	RegularHours  float64 `json:"regular_hours"`
	OvertimeHours float64 `json:"overtime_hours"`
	Regular       string  `json:"regular"`
	Overtime      string  `json:"overtime"`
}

// parseDay parses a YYYY-MM-DD flag in the service time zone. Empty means fallback.
func parseDay(value string, svc *attendance.Service, fallback time.Time) (time.Time, error) {
	if value == "" {
		return attendance.DayStart(fallback, svc.Location()), nil
	}
	t, err := time.ParseInLocation(database.DateKey, value, svc.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func requireEmployee(cmd *cobra.Command) (string, error) {
	id := mustGetString(cmd, "employee")
	if id == "" {
		return "", errors.New("--employee is required")
	}
	return id, nil
}

func formatClock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

func runHoursRecompute(cmd *cobra.Command, args []string) error {
	employeeID, err := requireEmployee(cmd)
	if err != nil {
		return err
	}
	days := mustGetInt(cmd, "days")
	if days < 1 {
		return errors.New("--days must be at least 1")
	}

	ctx := context.Background()
	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	first, err := parseDay(mustGetString(cmd, "date"), svc, svc.Now())
	if err != nil {
		return err
	}

	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		row, err := svc.RecomputeDay(ctx, employeeID, day)
		if err != nil {
			return fmt.Errorf("recomputing %s: %w", day.Format(database.DateKey), err)
		}
		fmt.Printf("  %s  %-10s %6s + %6s\n", day.Format(database.DateKey), row.Status,
			attendance.FormatHours(row.RegularHours), attendance.FormatHours(row.OvertimeHours))
	}
	return nil
}

func runHoursShow(cmd *cobra.Command, args []string) error {
	employeeID, err := requireEmployee(cmd)
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	from, err := parseDay(mustGetString(cmd, "from"), svc, svc.Now())
	if err != nil {
		return err
	}
	to, err := parseDay(mustGetString(cmd, "to"), svc, from)
	if err != nil {
		return err
	}

	rows, err := svc.WorkHours(ctx, employeeID, from, to)
	if err != nil {
		return fmt.Errorf("loading work hours: %w", err)
	}

	loc := svc.Location()
	out := make([]HoursRow, 0, len(rows))
	var regular, overtime float64
	for _, row := range rows {
		out = append(out, HoursRow{
			Date:          row.Date.Format(database.DateKey),
			Status:        row.Status,
			FirstCheckIn:  formatClock(row.FirstCheckIn, loc),
			LastCheckOut:  formatClock(row.LastCheckOut, loc),
			RegularHours:  row.RegularHours,
			OvertimeHours: row.OvertimeHours,
			Regular:       attendance.FormatHours(row.RegularHours),
			Overtime:      attendance.FormatHours(row.OvertimeHours),
		})
		regular += row.RegularHours
		overtime += row.OvertimeHours
	}

	if jsonOutput {
		return outputJSON(out)
	}

	fmt.Printf("Work hours of %s (%s)\n\n", employeeID, loc)
	fmt.Printf("  %-10s  %-10s  %-5s  %-5s  %7s  %7s\n", "Date", "Status", "In", "Out", "Regular", "Over")
	for _, r := range out {
		fmt.Printf("  %-10s  %-10s  %-5s  %-5s  %7s  %7s\n",
			r.Date, r.Status, r.FirstCheckIn, r.LastCheckOut, r.Regular, r.Overtime)
	}
	fmt.Printf("\n  Total: %s regular, %s overtime\n", attendance.FormatHours(regular), attendance.FormatHours(overtime))
	return nil
}
