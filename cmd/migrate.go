package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded schema migrations of the configured backend
(DATABASE_DRIVER=postgres or sqlite) and list the applied versions.

Migrations are also applied on every start of serve, so this command is
mostly useful for deployments that migrate in a separate step.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("json", false, "Output as JSON")
}

// MigrateResult lists the applied migrations of a backend
type MigrateResult struct {
	Backend    string   `json:"backend"`
	Migrations []string `json:"migrations"`
}

func runMigrate(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	closeBackend, err := openBackend(cfg, jsonOutput)
	if err != nil {
		return err
	}
	defer closeBackend()

	migrator, err := database.GetMigrator(ctx)
	if err != nil {
		return err
	}
	applied, err := migrator.AppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}

	result := MigrateResult{Backend: database.BackendName(), Migrations: applied}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Backend %s is up to date, %d migrations applied:\n", result.Backend, len(applied))
	for _, name := range applied {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
