package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
)

// openBackend connects to the storage backend named by DATABASE_DRIVER,
// applies migrations and registers it. The returned func closes it.
func openBackend(cfg *config.Config, quiet bool) (func(), error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Database.Driver {
	case "postgres", "postgresql", "":
		if !quiet {
			fmt.Println("Connecting to PostgreSQL database...")
		}
		if err := postgres.Initialize(&cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return func() {
			if pool := postgres.GetGlobalPool(); pool != nil {
				pool.Close()
			}
			database.ResetBackend()
		}, nil

	case "sqlite":
		if !quiet {
			fmt.Printf("Opening SQLite database %s...\n", cfg.Database.URL)
		}
		store, err := sqlite.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		return func() {
			store.Close()
			database.ResetBackend()
		}, nil

	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (expected postgres or sqlite)", cfg.Database.Driver)
	}
}

// newService builds the attendance service over the registered backend.
func newService(ctx context.Context, cfg *config.Config) (*attendance.Service, error) {
	employees, err := database.GetEmployeeWriter(ctx)
	if err != nil {
		return nil, err
	}
	timeLogs, err := database.GetTimeLogWriter(ctx)
	if err != nil {
		return nil, err
	}
	workHours, err := database.GetWorkHoursWriter(ctx)
	if err != nil {
		return nil, err
	}
	return attendance.NewService(&cfg.Attendance, employees, timeLogs, workHours), nil
}

// setup loads the configuration, opens the backend and builds the service.
func setup(ctx context.Context, quiet bool) (*config.Config, *attendance.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	closeBackend, err := openBackend(cfg, quiet)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, err := newService(ctx, cfg)
	if err != nil {
		closeBackend()
		return nil, nil, nil, err
	}
	return cfg, svc, closeBackend, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
