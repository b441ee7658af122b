package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// WorkHoursRepository provides PostgreSQL-backed daily summary storage
type WorkHoursRepository struct {
	pool *Pool
}

// NewWorkHoursRepository creates a new PostgreSQL work-hours repository
func NewWorkHoursRepository(pool *Pool) *WorkHoursRepository {
	return &WorkHoursRepository{pool: pool}
}

const workHoursColumns = `employee_id, date, regular_hours, overtime_hours,
	first_check_in, last_check_out, status, updated_at`

func scanWorkHours(row rowScanner) (*database.DailyWorkHours, error) {
	var w database.DailyWorkHours
	var first, last sql.NullTime
	if err := row.Scan(&w.EmployeeID, &w.Date, &w.RegularHours, &w.OvertimeHours,
		&first, &last, &w.Status, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if first.Valid {
		t := first.Time
		w.FirstCheckIn = &t
	}
	if last.Valid {
		t := last.Time
		w.LastCheckOut = &t
	}
	return &w, nil
}

// nullTime converts an optional timestamp to a nullable column value.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Get returns the row for an employee and date, returns nil if not found
func (r *WorkHoursRepository) Get(ctx context.Context, employeeID string, date time.Time) (*database.DailyWorkHours, error) {
	w, err := scanWorkHours(r.pool.QueryRow(ctx,
		"SELECT "+workHoursColumns+" FROM daily_work_hours WHERE employee_id = $1 AND date = $2",
		employeeID, date.Format(database.DateKey)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work hours: %w", err)
	}
	return w, nil
}

// ListRange returns rows with from <= date <= to ordered by date
func (r *WorkHoursRepository) ListRange(ctx context.Context, employeeID string, from, to time.Time) ([]database.DailyWorkHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workHoursColumns+`
		FROM daily_work_hours
		WHERE employee_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, employeeID, from.Format(database.DateKey), to.Format(database.DateKey))
	if err != nil {
		return nil, fmt.Errorf("list work hours: %w", err)
	}
	defer rows.Close()

	var out []database.DailyWorkHours
	for rows.Next() {
		w, err := scanWorkHours(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work hours: %w", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work hours: %w", err)
	}
	return out, nil
}

// Upsert replaces the row for (employee, date)
func (r *WorkHoursRepository) Upsert(ctx context.Context, row *database.DailyWorkHours) error {
	query := `
		INSERT INTO daily_work_hours (` + workHoursColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employee_id, date) DO UPDATE SET
			regular_hours = EXCLUDED.regular_hours,
			overtime_hours = EXCLUDED.overtime_hours,
			first_check_in = EXCLUDED.first_check_in,
			last_check_out = EXCLUDED.last_check_out,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query,
		row.EmployeeID, row.Date.Format(database.DateKey), row.RegularHours, row.OvertimeHours,
		nullTime(row.FirstCheckIn), nullTime(row.LastCheckOut), row.Status, updatedAt)
	if err != nil {
		return fmt.Errorf("upsert work hours: %w", err)
	}
	return nil
}

// Delete removes the row for (employee, date)
func (r *WorkHoursRepository) Delete(ctx context.Context, employeeID string, date time.Time) error {
	_, err := r.pool.Exec(ctx,
		"DELETE FROM daily_work_hours WHERE employee_id = $1 AND date = $2",
		employeeID, date.Format(database.DateKey))
	if err != nil {
		return fmt.Errorf("delete work hours: %w", err)
	}
	return nil
}

var _ database.WorkHoursWriter = (*WorkHoursRepository)(nil)
