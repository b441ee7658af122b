package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// WorkHoursRepository provides SQLite-backed daily summary storage
type WorkHoursRepository struct {
	store *Store
}

// NewWorkHoursRepository creates a new SQLite work-hours repository
func NewWorkHoursRepository(store *Store) *WorkHoursRepository {
	return &WorkHoursRepository{store: store}
}

const workHoursColumns = `employee_id, date, regular_hours, overtime_hours,
	first_check_in, last_check_out, status, updated_at`

func scanWorkHours(row rowScanner) (*database.DailyWorkHours, error) {
	var w database.DailyWorkHours
	var date string
	var first, last sql.NullInt64
	var updated int64
	if err := row.Scan(&w.EmployeeID, &date, &w.RegularHours, &w.OvertimeHours,
		&first, &last, &w.Status, &updated); err != nil {
		return nil, err
	}
	day, err := time.Parse(database.DateKey, date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	w.Date = day
	w.FirstCheckIn = fromNullNanos(first)
	w.LastCheckOut = fromNullNanos(last)
	w.UpdatedAt = fromNanos(updated)
	return &w, nil
}

// Get returns the row for an employee and date, returns nil if not found
func (r *WorkHoursRepository) Get(ctx context.Context, employeeID string, date time.Time) (*database.DailyWorkHours, error) {
	w, err := scanWorkHours(r.store.db.QueryRowContext(ctx,
		"SELECT "+workHoursColumns+" FROM daily_work_hours WHERE employee_id = ? AND date = ?",
		employeeID, date.Format(database.DateKey)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work hours: %w", err)
	}
	return w, nil
}

// ListRange returns rows with from <= date <= to ordered by date
func (r *WorkHoursRepository) ListRange(ctx context.Context, employeeID string, from, to time.Time) ([]database.DailyWorkHours, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+workHoursColumns+`
		FROM daily_work_hours
		WHERE employee_id = ? AND date BETWEEN ? AND ?
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
	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO daily_work_hours (`+workHoursColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			regular_hours = excluded.regular_hours,
			overtime_hours = excluded.overtime_hours,
			first_check_in = excluded.first_check_in,
			last_check_out = excluded.last_check_out,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, row.EmployeeID, row.Date.Format(database.DateKey), row.RegularHours, row.OvertimeHours,
		nullNanos(row.FirstCheckIn), nullNanos(row.LastCheckOut), row.Status, toNanos(updatedAt))
	if err != nil {
		return fmt.Errorf("upsert work hours: %w", err)
	}
	return nil
}

// Delete removes the row for (employee, date)
func (r *WorkHoursRepository) Delete(ctx context.Context, employeeID string, date time.Time) error {
	_, err := r.store.db.ExecContext(ctx,
		"DELETE FROM daily_work_hours WHERE employee_id = ? AND date = ?",
		employeeID, date.Format(database.DateKey))
	if err != nil {
		return fmt.Errorf("delete work hours: %w", err)
	}
	return nil
}

var _ database.WorkHoursWriter = (*WorkHoursRepository)(nil)
