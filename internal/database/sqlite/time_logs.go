package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// TimeLogRepository provides SQLite-backed append-only event storage
type TimeLogRepository struct {
	store *Store
}

// NewTimeLogRepository creates a new SQLite time-log repository
func NewTimeLogRepository(store *Store) *TimeLogRepository {
	return &TimeLogRepository{store: store}
}

// ListEvents returns the employee's events within [since, until] ordered by timestamp
func (r *TimeLogRepository) ListEvents(ctx context.Context, employeeID string, since, until time.Time) ([]database.TimeLogEvent, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, employee_id, type, timestamp, source, created_at
		FROM time_logs
		WHERE employee_id = ?`)
	args := []any{employeeID}
	if !since.IsZero() {
		sb.WriteString(" AND timestamp >= ?")
		args = append(args, toNanos(since))
	}
	if !until.IsZero() {
		sb.WriteString(" AND timestamp <= ?")
		args = append(args, toNanos(until))
	}
	sb.WriteString(" ORDER BY timestamp, created_at")

	rows, err := r.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []database.TimeLogEvent
	for rows.Next() {
		var ev database.TimeLogEvent
		var typ string
		var ts, created int64
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &typ, &ts, &ev.Source, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = database.EventType(typ)
		ev.Timestamp = fromNanos(ts)
		ev.CreatedAt = fromNanos(created)
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
	if err := r.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM time_logs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// Append stores a new event
func (r *TimeLogRepository) Append(ctx context.Context, event *database.TimeLogEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO time_logs (id, employee_id, type, timestamp, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.EmployeeID, string(event.Type), toNanos(event.Timestamp), event.Source, toNanos(createdAt))
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
