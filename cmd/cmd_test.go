package cmd

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/descriptor"
	"github.com/spf13/cobra"
)

// sqliteConfig returns a config pointing at a fresh SQLite file
func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	att := config.DefaultAttendance()
	att.Timezone = "UTC"
	return &config.Config{
		Attendance: att,
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			URL:    filepath.Join(t.TempDir(), "attendance.db"),
		},
	}
}

func openTestService(t *testing.T) *attendance.Service {
	t.Helper()
	cfg := sqliteConfig(t)
	closeBackend, err := openBackend(cfg, true)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	t.Cleanup(closeBackend)

	svc, err := newService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	return svc
}

// legacyDescriptor renders a descriptor with every component set to v the
// way the legacy capture page stored it
func legacyDescriptor(v float32, format descriptor.Format) string {
	values := make([]float32, constants.DescriptorLength)
	for i := range values {
		values[i] = v
	}
	s, _ := descriptor.Encode(values, format)
	return s
}

func TestOpenBackend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr string
	}{
		{"missing url", config.DatabaseConfig{Driver: "sqlite"}, "DATABASE_URL"},
		{"unknown driver", config.DatabaseConfig{Driver: "oracle", URL: "x"}, "unsupported DATABASE_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openBackend(&config.Config{Database: tt.cfg}, true)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOpenBackend_SQLite(t *testing.T) {
	svc := openTestService(t)

	if database.BackendName() != "sqlite" {
		t.Errorf("expected sqlite backend, got %q", database.BackendName())
	}
	migrator, err := database.GetMigrator(context.Background())
	if err != nil {
		t.Fatalf("GetMigrator() error = %v", err)
	}
	applied, err := migrator.AppliedMigrations(context.Background())
	if err != nil || len(applied) == 0 {
		t.Errorf("expected applied migrations, got %v (%v)", applied, err)
	}
	if svc.Threshold() != constants.DefaultMatchThreshold {
		t.Errorf("expected default threshold, got %v", svc.Threshold())
	}
}

func TestImportEmployee(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	rows := []mariadb.LegacyEmployee{
		{ID: "1", Name: "Alice", RawDescriptor: sql.NullString{String: legacyDescriptor(0.1, descriptor.FormatCSV), Valid: true}},
		{ID: "2", Name: "Bob"},
		{ID: "3", Name: "Alice's twin", RawDescriptor: sql.NullString{String: legacyDescriptor(0.11, descriptor.FormatJSONObject), Valid: true}},
		{ID: "4", Name: "Broken", RawDescriptor: sql.NullString{String: "1,2,x", Valid: true}},
	}

	outcome, err := importEmployee(ctx, svc, rows[0], false)
	if err != nil || !outcome.enrolled || outcome.similar != 0 {
		t.Fatalf("import Alice: %+v, %v", outcome, err)
	}

	outcome, err = importEmployee(ctx, svc, rows[1], false)
	if err != nil || outcome.enrolled {
		t.Fatalf("import Bob: %+v, %v", outcome, err)
	}

	outcome, err = importEmployee(ctx, svc, rows[2], false)
	if err != nil || !outcome.enrolled || outcome.similar != 1 {
		t.Fatalf("import twin: expected one look-alike, got %+v, %v", outcome, err)
	}

	_, err = importEmployee(ctx, svc, rows[3], false)
	if !errors.Is(err, descriptor.ErrDecode) {
		t.Errorf("expected decode error, got %v", err)
	}

	employees, err := svc.Roster(ctx, "")
	if err != nil {
		t.Fatalf("Roster() error = %v", err)
	}
	if len(employees) != 3 {
		t.Fatalf("expected 3 employees, got %d", len(employees))
	}
	bob, _ := svc.Employee(ctx, "2")
	if bob.Enrolled() {
		t.Error("Bob has no descriptor and should not be enrolled")
	}
}

func TestImportEmployee_DryRun(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	row := mariadb.LegacyEmployee{ID: "1", Name: "Alice", RawDescriptor: sql.NullString{String: legacyDescriptor(0.1, descriptor.FormatJSONArray), Valid: true}}
	outcome, err := importEmployee(ctx, svc, row, true)
	if err != nil || !outcome.enrolled {
		t.Fatalf("dry run: %+v, %v", outcome, err)
	}

	if _, err := svc.Employee(ctx, "1"); !errors.Is(err, attendance.ErrEmployeeNotFound) {
		t.Errorf("dry run must not write, got %v", err)
	}
}

func TestRecordEntry(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()
	svc.Now = func() time.Time { return time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC) }

	if err := svc.AddEmployee(ctx, "E1", "Alice"); err != nil {
		t.Fatalf("AddEmployee() error = %v", err)
	}

	res, err := recordEntry(ctx, svc, manualEntry{employeeID: "E1", eventType: "check-in", at: "2026-03-02 09:00", source: constants.SourceManual})
	if err != nil {
		t.Fatalf("check-in error = %v", err)
	}
	if res.Event.Source != constants.SourceManual || res.Summary.Status != database.StatusCheckedIn {
		t.Errorf("unexpected check-in %+v / %+v", res.Event, res.Summary)
	}

	_, err = recordEntry(ctx, svc, manualEntry{employeeID: "E1", eventType: "checkin", at: "2026-03-02 09:30"})
	var v *attendance.PairingViolation
	if !errors.As(err, &v) || v.Kind != attendance.KindAlreadyOpen {
		t.Errorf("expected already open, got %v", err)
	}

	res, err = recordEntry(ctx, svc, manualEntry{employeeID: "E1", eventType: "checkout", at: "2026-03-02T17:30:00Z"})
	if err != nil {
		t.Fatalf("check-out error = %v", err)
	}
	if res.Summary.RegularHours != 8 || res.Summary.OvertimeHours != 0.5 {
		t.Errorf("expected 8 + 0.5 hours, got %+v", res.Summary)
	}
}

func TestRecordEntry_Errors(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		entry   manualEntry
		wantErr string
	}{
		{"missing employee", manualEntry{eventType: "checkin"}, "--employee is required"},
		{"bad type", manualEntry{employeeID: "E1", eventType: "lunch"}, "invalid --type"},
		{"bad time", manualEntry{employeeID: "E1", eventType: "checkin", at: "9am"}, "invalid time"},
		{"unknown employee", manualEntry{employeeID: "E9", eventType: "checkin"}, "employee not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recordEntry(ctx, svc, tt.entry)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseEventTime(t *testing.T) {
	got, err := parseEventTime("", time.UTC)
	if err != nil || !got.IsZero() {
		t.Errorf("parseEventTime(\"\") = %v, %v", got, err)
	}
	got, err = parseEventTime("2026-03-02 17:30", time.UTC)
	if err != nil || !got.Equal(time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)) {
		t.Errorf("parseEventTime() = %v, %v", got, err)
	}
	got, err = parseEventTime("2026-03-02T18:30:00+01:00", time.UTC)
	if err != nil || !got.Equal(time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)) {
		t.Errorf("parseEventTime(RFC 3339) = %v, %v", got, err)
	}
}

func TestParseDay(t *testing.T) {
	svc := openTestService(t)
	now := time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC)

	got, err := parseDay("", svc, now)
	if err != nil || !got.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseDay(\"\") = %v, %v", got, err)
	}
	got, err = parseDay("2026-02-28", svc, now)
	if err != nil || got.Day() != 28 {
		t.Errorf("parseDay() = %v, %v", got, err)
	}
	if _, err := parseDay("28/02/2026", svc, now); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestMustGet(t *testing.T) {
	cmd := &cobra.Command{Use: "hours"}
	cmd.Flags().Int("days", 3, "")
	if got := mustGetInt(cmd, "days"); got != 3 {
		t.Errorf("mustGetInt() = %d, want 3", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for an undefined flag")
		}
	}()
	mustGetString(cmd, "days")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
