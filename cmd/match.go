package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/descriptor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <descriptor-file>",
	Short: "Identify a face descriptor against the roster",
	Long: `Identify a face descriptor without recording anything and print the
nearest enrolled employees. The file may hold the descriptor in any format
the API accepts; use - to read from stdin.

Examples:
  # Rank the 5 nearest employees
  face-attendance match probe.json

  # Compare with the ranking done by the storage backend
  face-attendance match probe.json --db`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int("limit", constants.DefaultCandidateLimit, "Number of candidates to show")
	matchCmd.Flags().Bool("db", false, "Also rank inside the database when the backend supports it")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

// MatchResult is the output of the match command
type MatchResult struct {
	Matched    bool                `json:"matched"`
	EmployeeID string              `json:"employee_id,omitempty"`
	Name       string              `json:"name,omitempty"`
	Distance   float64             `json:"distance,omitempty"`
	Confidence float64             `json:"confidence,omitempty"`
	Threshold  float64             `json:"threshold"`
	Candidates []facematch.Match   `json:"candidates"`
	Database   []database.Neighbor `json:"database,omitempty"`
}

func readDescriptorFile(path string) (descriptor.Descriptor, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	return descriptor.Decode(strings.TrimSpace(string(data)))
}

func runMatch(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	useDB := mustGetBool(cmd, "db")
	jsonOutput := mustGetBool(cmd, "json")

	probe, err := readDescriptorFile(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, svc, closeBackend, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	candidates, err := svc.Rank(ctx, probe, limit)
	if err != nil {
		return fmt.Errorf("ranking candidates: %w", err)
	}

	result := MatchResult{Threshold: svc.Threshold(), Candidates: candidates}
	id, err := svc.Identify(ctx, probe)
	switch {
	case err == nil:
		result.Matched = true
		result.EmployeeID = id.Employee.ID
		result.Name = id.Employee.Name
		result.Distance = id.Distance
		result.Confidence = id.Confidence
	case !errors.Is(err, attendance.ErrNoMatch):
		return fmt.Errorf("identifying descriptor: %w", err)
	}

	if useDB {
		employees, err := database.GetEmployeeReader(ctx)
		if err != nil {
			return err
		}
		finder, ok := employees.(database.NearestFinder)
		if !ok {
			return fmt.Errorf("backend %s cannot rank descriptors in the database", database.BackendName())
		}
		result.Database, err = finder.FindNearest(ctx, probe, limit)
		if err != nil {
			return fmt.Errorf("database ranking: %w", err)
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}

	if result.Matched {
		fmt.Printf("Matched %s (%s), distance %.4f, confidence %.4f\n",
			result.EmployeeID, result.Name, result.Distance, result.Confidence)
	} else {
		fmt.Printf("No employee within threshold %.2f\n", result.Threshold)
	}

	if len(candidates) > 0 {
		fmt.Println("\nNearest enrolled employees:")
		for i, c := range candidates {
			fmt.Printf("  %d. %-12s %-32s %.4f\n", i+1, c.EmployeeID, c.Name, c.Distance)
		}
	}
	if len(result.Database) > 0 {
		fmt.Printf("\nDatabase ranking (%s):\n", database.BackendName())
		for i, n := range result.Database {
			fmt.Printf("  %d. %-12s %-32s %.4f\n", i+1, n.EmployeeID, n.Name, n.Distance)
		}
	}
	return nil
}
