package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// TimeLogRepository provides PostgreSQL-backed append-only event storage
type TimeLogRepository struct {
	pool *Pool
}

// NewTimeLogRepository creates a new PostgreSQL time-log repository
func NewTimeLogRepository(pool *Pool) *TimeLogRepository {
	return &TimeLogRepository{pool: pool}
}

// ListEvents returns the employee's events within [since, until] ordered by timestamp
func (r *TimeLogRepository) ListEvents(ctx context.Context, employeeID string, since, until time.Time) ([]database.TimeLogEvent, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, employee_id, type, timestamp, source, created_at
		FROM time_logs
		WHERE employee_id = $1`)
	args := []any{employeeID}
	if !since.IsZero() {
		args = append(args, since)
		fmt.Fprintf(&sb, " AND timestamp >= $%d", len(args))
	}
	if !until.IsZero() {
		args = append(args, until)
		fmt.Fprintf(&sb, " AND timestamp <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY timestamp, created_at")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []database.TimeLogEvent
	for rows.Next() {
		var ev database.TimeLogEvent
		var typ string
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &typ, &ev.Timestamp, &ev.Source, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = database.EventType(typ)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events
func (r *TimeLogRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM time_logs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// Append stores a new event
func (r *TimeLogRepository) Append(ctx context.Context, event *database.TimeLogEvent) error {
	query := `
		INSERT INTO time_logs (id, employee_id, type, timestamp, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.EmployeeID, string(event.Type), event.Timestamp, event.Source, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s: %w", event.ID, database.ErrAlreadyExists)
		}
		return fmt.Errorf("append event: %w", err)
	}
	event.CreatedAt = createdAt
	return nil
}

var _ database.TimeLogWriter = (*TimeLogRepository)(nil)
