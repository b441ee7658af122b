package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the employee roster",
	Long:  "Add, list and import employees and inspect their enrolled faces.",
}

var rosterAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Add or rename an employee",
	Args:  cobra.ExactArgs(2),
	RunE:  runRosterAdd,
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	Long: `List employees ordered by ID.

Examples:
  # Everyone
  face-attendance roster list

  # Names containing "novak", ignoring case and diacritics
  face-attendance roster list --name novak`,
	RunE: runRosterList,
}

var rosterSimilarCmd = &cobra.Command{
	Use:   "similar <id>",
	Short: "Show enrolled employees whose faces look alike",
	Long: `Show the enrolled employees nearest to the given employee's face.

Employees closer than the match threshold can be confused with each other
at the kiosk; re-enrol one of them with a better capture.`,
	Args: cobra.ExactArgs(1),
	RunE: runRosterSimilar,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterAddCmd)
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterSimilarCmd)

	rosterListCmd.Flags().String("name", "", "Filter by name")
	rosterListCmd.Flags().Bool("json", false, "Output as JSON")

	rosterSimilarCmd.Flags().Int("limit", constants.DefaultCandidateLimit, "Number of employees to show")
	rosterSimilarCmd.Flags().Bool("json", false, "Output as JSON")
}

// RosterEntry is one employee in roster list output
type RosterEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Enrolled   bool   `json:"enrolled"`
	EnrolledAt string `json:"enrolled_at,omitempty"`
}

// SimilarEntry is one neighbour in roster similar output
type SimilarEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
	Confusable bool    `json:"confusable"`
}

func runRosterAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	if err := svc.AddEmployee(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("adding employee: %w", err)
	}
	fmt.Printf("Employee %s saved as %q\n", args[0], args[1])
	return nil
}

func runRosterList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	employees, err := svc.Roster(ctx, mustGetString(cmd, "name"))
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}

	entries := make([]RosterEntry, 0, len(employees))
	for _, emp := range employees {
		entry := RosterEntry{ID: emp.ID, Name: emp.Name, Enrolled: emp.Enrolled()}
		if emp.EnrolledAt != nil {
			entry.EnrolledAt = emp.EnrolledAt.In(svc.Location()).Format("2006-01-02 15:04")
		}
		entries = append(entries, entry)
	}

	if jsonOutput {
		return outputJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No employees found.")
		return nil
	}
	enrolled := 0
	for _, e := range entries {
		mark := "-"
		if e.Enrolled {
			mark = "enrolled " + e.EnrolledAt
			enrolled++
		}
		fmt.Printf("  %-12s %-32s %s\n", e.ID, e.Name, mark)
	}
	fmt.Printf("\n%d employees, %d enrolled\n", len(entries), enrolled)
	return nil
}

func runRosterSimilar(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	limit := mustGetInt(cmd, "limit")
	ctx := context.Background()

	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	neighbors, err := svc.Similar(ctx, args[0], limit)
	if err != nil {
		if errors.Is(err, attendance.ErrNotEnrolled) {
			return fmt.Errorf("employee %s has no enrolled face", args[0])
		}
		return fmt.Errorf("searching similar employees: %w", err)
	}

	entries := make([]SimilarEntry, 0, len(neighbors))
	for _, n := range neighbors {
		entries = append(entries, SimilarEntry{
			ID:         n.EmployeeID,
			Name:       n.Name,
			Distance:   n.Distance,
			Confusable: n.Distance <= svc.Threshold(),
		})
	}

	if jsonOutput {
		return outputJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No other enrolled employees.")
		return nil
	}
	fmt.Printf("Nearest enrolled employees to %s (threshold %.2f):\n", args[0], svc.Threshold())
	for _, e := range entries {
		warn := ""
		if e.Confusable {
			warn = "  <- within threshold"
		}
		fmt.Printf("  %-12s %-32s %.4f%s\n", e.ID, e.Name, e.Distance, warn)
	}
	return nil
}
