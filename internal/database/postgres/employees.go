package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EmployeeRepository provides PostgreSQL-backed roster storage
type EmployeeRepository struct {
	pool *Pool
}

// NewEmployeeRepository creates a new PostgreSQL employee repository
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*database.StoredEmployee, error) {
	var emp database.StoredEmployee
	var vec *pgvector.Vector
	var enrolledAt sql.NullTime
	if err := row.Scan(&emp.ID, &emp.Name, &vec, &enrolledAt); err != nil {
		return nil, err
	}
	if vec != nil {
		emp.Descriptor = vec.Slice()
	}
	if enrolledAt.Valid {
		t := enrolledAt.Time
		emp.EnrolledAt = &t
	}
	return &emp, nil
}

func (r *EmployeeRepository) list(ctx context.Context, query string) ([]database.StoredEmployee, error) {
	rows, err := r.pool.Query(ctx, query)
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
	emp, err := scanEmployee(r.pool.QueryRow(ctx,
		"SELECT id, name, descriptor, enrolled_at FROM employees WHERE id = $1", id))
	if err == sql.ErrNoRows {
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
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*), COUNT(descriptor) FROM employees").Scan(&total, &enrolled)
	if err != nil {
		return 0, 0, fmt.Errorf("count employees: %w", err)
	}
	return total, enrolled, nil
}

// Upsert creates or renames an employee, keeping an existing descriptor
func (r *EmployeeRepository) Upsert(ctx context.Context, id, name string) error {
	query := `
		INSERT INTO employees (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := r.pool.Exec(ctx, query, id, name); err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// SetDescriptor stores the face descriptor and enrolment time
func (r *EmployeeRepository) SetDescriptor(ctx context.Context, id string, descriptor []float32, enrolledAt time.Time) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE employees SET descriptor = $2, enrolled_at = $3 WHERE id = $1",
		id, pgvector.NewVector(descriptor), enrolledAt)
	if err != nil {
		return fmt.Errorf("set descriptor: %w", err)
	}
	return requireRow(result, id)
}

// ClearDescriptor removes the face descriptor
func (r *EmployeeRepository) ClearDescriptor(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE employees SET descriptor = NULL, enrolled_at = NULL WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("clear descriptor: %w", err)
	}
	return requireRow(result, id)
}

// FindNearest returns the enrolled employees closest to the descriptor by
// pgvector L2 distance. Ties are broken by ID so the order matches the
// in-process matcher.
func (r *EmployeeRepository) FindNearest(ctx context.Context, descriptor []float32, limit int) ([]database.Neighbor, error) {
	query := `
		SELECT id, name, descriptor <-> $1 AS distance
		FROM employees
		WHERE descriptor IS NOT NULL
		ORDER BY descriptor <-> $1, id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(descriptor), limit)
	if err != nil {
		return nil, fmt.Errorf("find nearest employees: %w", err)
	}
	defer rows.Close()

	var neighbors []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		if err := rows.Scan(&n.EmployeeID, &n.Name, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan nearest employee: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest employees: %w", err)
	}
	return neighbors, nil
}

// requireRow maps an UPDATE that touched nothing to database.ErrNotFound.
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
