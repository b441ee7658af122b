package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/descriptor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// EmployeeRepository stores the roster. Descriptors live in a TEXT column in
// the comma-separated wire format.
type EmployeeRepository struct {
	store *Store
}

// NewEmployeeRepository creates a new SQLite employee repository
func NewEmployeeRepository(store *Store) *EmployeeRepository {
	return &EmployeeRepository{store: store}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*database.StoredEmployee, error) {
	var emp database.StoredEmployee
	var desc sql.NullString
	var enrolledAt sql.NullInt64
	if err := row.Scan(&emp.ID, &emp.Name, &desc, &enrolledAt); err != nil {
		return nil, err
	}
	if desc.Valid && desc.String != "" {
		values, err := descriptor.Parse(desc.String)
		if err != nil {
			return nil, fmt.Errorf("employee %s descriptor: %w", emp.ID, err)
		}
		emp.Descriptor = values
	}
	emp.EnrolledAt = fromNullNanos(enrolledAt)
	return &emp, nil
}

func (r *EmployeeRepository) list(ctx context.Context, query string) ([]database.StoredEmployee, error) {
	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []database.StoredEmployee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// Get retrieves an employee by ID, returns nil if not found
func (r *EmployeeRepository) Get(ctx context.Context, id string) (*database.StoredEmployee, error) {
	emp, err := scanEmployee(r.store.db.QueryRowContext(ctx,
		"SELECT id, name, descriptor, enrolled_at FROM employees WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return emp, nil
}

// List returns all employees ordered by ID
func (r *EmployeeRepository) List(ctx context.Context) ([]database.StoredEmployee, error) {
	return r.list(ctx, "SELECT id, name, descriptor, enrolled_at FROM employees ORDER BY id")
}

// ListEnrolled returns employees with a descriptor ordered by ID
func (r *EmployeeRepository) ListEnrolled(ctx context.Context) ([]database.StoredEmployee, error) {
	return r.list(ctx, `
		SELECT id, name, descriptor, enrolled_at
		FROM employees
		WHERE descriptor IS NOT NULL
		ORDER BY id
	`)
}

// Count returns the total and enrolled number of employees
func (r *EmployeeRepository) Count(ctx context.Context) (int, int, error) {
	var total, enrolled int
	err := r.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(descriptor) FROM employees").Scan(&total, &enrolled)
	if err != nil {
		return 0, 0, fmt.Errorf("count employees: %w", err)
	}
	return total, enrolled, nil
}

// Upsert creates or renames an employee, keeping an existing descriptor
func (r *EmployeeRepository) Upsert(ctx context.Context, id, name string) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO employees (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name)
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// SetDescriptor stores the face descriptor and enrolment time
func (r *EmployeeRepository) SetDescriptor(ctx context.Context, id string, values []float32, enrolledAt time.Time) error {
	encoded, err := descriptor.Encode(values, descriptor.FormatCSV)
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	result, err := r.store.db.ExecContext(ctx,
		"UPDATE employees SET descriptor = ?, enrolled_at = ? WHERE id = ?",
		encoded, toNanos(enrolledAt), id)
	if err != nil {
		return fmt.Errorf("set descriptor: %w", err)
	}
	return requireRow(result, id)
}

// ClearDescriptor removes the face descriptor
func (r *EmployeeRepository) ClearDescriptor(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx,
		"UPDATE employees SET descriptor = NULL, enrolled_at = NULL WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("clear descriptor: %w", err)
	}
	return requireRow(result, id)
}

// FindNearest ranks enrolled employees by Euclidean distance in process,
// SQLite has no vector operator.
func (r *EmployeeRepository) FindNearest(ctx context.Context, values []float32, limit int) ([]database.Neighbor, error) {
	enrolled, err := r.ListEnrolled(ctx)
	if err != nil {
		return nil, err
	}

	neighbors := make([]database.Neighbor, 0, len(enrolled))
	for _, emp := range enrolled {
		d := facematch.EuclideanDistance(values, emp.Descriptor)
		if d == math.MaxFloat64 {
			continue
		}
		neighbors = append(neighbors, database.Neighbor{EmployeeID: emp.ID, Name: emp.Name, Distance: d})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("employee %s: %w", id, database.ErrNotFound)
	}
	return nil
}

var (
	_ database.EmployeeWriter = (*EmployeeRepository)(nil)
	_ database.NearestFinder  = (*EmployeeRepository)(nil)
)
