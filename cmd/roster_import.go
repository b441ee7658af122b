package cmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var rosterImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import employees from the legacy HR database",
	Long: `Import employees and their enrolled faces from the legacy MariaDB/MySQL
HR database (LEGACY_DATABASE_URL). Descriptors may be stored as JSON arrays,
index-keyed JSON objects or comma-separated lists.

Employees are created or renamed; faces are enrolled only for rows that carry
a descriptor. Rows with a malformed descriptor are reported and skipped.

Examples:
  # Preview the import
  face-attendance roster import --dry-run

  # Import from a differently named table
  face-attendance roster import --table staff

  # JSON output
  face-attendance roster import --json`,
	RunE: runRosterImport,
}

func init() {
	rosterCmd.AddCommand(rosterImportCmd)

	rosterImportCmd.Flags().String("table", "", "Legacy employee table (overrides LEGACY_EMPLOYEE_TABLE)")
	rosterImportCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	rosterImportCmd.Flags().Bool("dry-run", false, "Decode the legacy rows without writing anything")
	rosterImportCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// ImportResult represents the result of a roster import
type ImportResult struct {
	Success         bool     `json:"success"`
	EmployeesFound  int      `json:"employees_found"`
	EmployeesSaved  int      `json:"employees_saved"`
	FacesEnrolled   int      `json:"faces_enrolled"`
	SimilarWarnings int      `json:"similar_warnings"`
	Errors          int      `json:"errors"`
	ErrorDetails    []string `json:"error_details,omitempty"`
	DryRun          bool     `json:"dry_run"`
	DurationMs      int64    `json:"duration_ms"`
	DurationHuman   string   `json:"duration_human,omitempty"`
}

// importOutcome is what importing one legacy row did
type importOutcome struct {
	enrolled bool
	similar  int
}

// importEmployee saves one legacy row and enrolls its face if present.
func importEmployee(ctx context.Context, svc *attendance.Service, emp mariadb.LegacyEmployee, dryRun bool) (importOutcome, error) {
	d, err := emp.Descriptor()
	if err != nil {
		return importOutcome{}, err
	}
	if dryRun {
		return importOutcome{enrolled: d != nil}, nil
	}

	if err := svc.AddEmployee(ctx, emp.ID, emp.Name); err != nil {
		return importOutcome{}, fmt.Errorf("employee %s: %w", emp.ID, err)
	}
	if d == nil {
		return importOutcome{}, nil
	}

	res, err := svc.Enroll(ctx, emp.ID, d)
	if err != nil {
		return importOutcome{}, fmt.Errorf("employee %s: enrolling face: %w", emp.ID, err)
	}
	return importOutcome{enrolled: true, similar: len(res.Similar)}, nil
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	dryRun := mustGetBool(cmd, "dry-run")
	jsonOutput := mustGetBool(cmd, "json")
	if concurrency < 1 {
		concurrency = 1
	}

	ctx := context.Background()
	startTime := time.Now()

	cfg, svc, closeBackend, err := setup(ctx, jsonOutput)
	if err != nil {
		return err
	}
	defer closeBackend()

	table := mustGetString(cmd, "table")
	if table == "" {
		table = cfg.Legacy.Table
	}

	if !jsonOutput {
		fmt.Println("Connecting to legacy HR database...")
	}
	legacy, err := mariadb.NewPool(ctx, cfg.Legacy.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	defer legacy.Close()

	employees, err := legacy.ListEmployees(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read legacy employees: %w", err)
	}

	if len(employees) == 0 {
		result := ImportResult{Success: true, DryRun: dryRun, DurationMs: time.Since(startTime).Milliseconds()}
		if jsonOutput {
			return outputJSON(result)
		}
		fmt.Println("No employees found in the legacy database.")
		return nil
	}

	if !jsonOutput {
		fmt.Printf("Found %d employees in %s\n", len(employees), table)
		if dryRun {
			fmt.Println("DRY RUN - no changes will be written")
		}
		fmt.Println()
	}

	// Create progress bar (only for non-JSON output)
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(employees),
			progressbar.OptionSetDescription("Importing roster"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("employees"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var saved, enrolled, similar int64
	var errMu sync.Mutex
	var errorDetails []string
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, emp := range employees {
		wg.Add(1)
		go func(emp mariadb.LegacyEmployee) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, err := importEmployee(ctx, svc, emp, dryRun)
			if err != nil {
				errMu.Lock()
				errorDetails = append(errorDetails, err.Error())
				errMu.Unlock()
			} else {
				atomic.AddInt64(&saved, 1)
				if outcome.enrolled {
					atomic.AddInt64(&enrolled, 1)
				}
				atomic.AddInt64(&similar, int64(outcome.similar))
			}

			if bar != nil {
				bar.Add(1)
			}
		}(emp)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result := ImportResult{
		Success:         len(errorDetails) == 0,
		EmployeesFound:  len(employees),
		EmployeesSaved:  int(saved),
		FacesEnrolled:   int(enrolled),
		SimilarWarnings: int(similar),
		Errors:          len(errorDetails),
		ErrorDetails:    errorDetails,
		DryRun:          dryRun,
		DurationMs:      duration.Milliseconds(),
		DurationHuman:   formatDuration(duration),
	}

	if jsonOutput {
		// Remove human-readable duration for JSON output
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nImport complete!")
	fmt.Printf("  Employees found:  %d\n", result.EmployeesFound)
	fmt.Printf("  Employees saved:  %d\n", result.EmployeesSaved)
	fmt.Printf("  Faces enrolled:   %d\n", result.FacesEnrolled)
	if result.SimilarWarnings > 0 {
		fmt.Printf("  Look-alikes:      %d (run 'roster similar <id>' to review)\n", result.SimilarWarnings)
	}
	if result.Errors > 0 {
		fmt.Printf("  Errors:           %d\n", result.Errors)
		for _, detail := range result.ErrorDetails {
			fmt.Printf("    %s\n", detail)
		}
	}
	fmt.Printf("  Duration:         %s\n", result.DurationHuman)
	return nil
}
