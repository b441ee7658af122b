package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/descriptor"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LegacyEmployee is one row of the HR employee table. The descriptor column
// holds whatever the old capture page stored: a JSON array, an index-keyed
// JSON object or a comma-separated list.
type LegacyEmployee struct {
	ID            string
	Name          string
	RawDescriptor sql.NullString
}

// HasDescriptor reports whether the row carries a non-empty descriptor.
func (e LegacyEmployee) HasDescriptor() bool {
	return e.RawDescriptor.Valid && strings.TrimSpace(e.RawDescriptor.String) != ""
}

// Descriptor decodes the stored descriptor. It returns nil without an error
// when the row has none.
func (e LegacyEmployee) Descriptor() (descriptor.Descriptor, error) {
	if !e.HasDescriptor() {
		return nil, nil
	}
	d, err := descriptor.Decode(strings.TrimSpace(e.RawDescriptor.String))
	if err != nil {
		return nil, fmt.Errorf("employee %s: %w", e.ID, err)
	}
	return d, nil
}

// ValidateTable checks that table is a plain identifier safe to interpolate.
func ValidateTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid legacy employee table name %q", table)
	}
	return nil
}

// ListEmployees returns every row of the legacy employee table ordered by ID.
func (p *Pool) ListEmployees(ctx context.Context, table string) ([]LegacyEmployee, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT CAST(id AS CHAR), name, face_descriptor FROM `%s` ORDER BY id", table)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query legacy employees: %w", err)
	}
	defer rows.Close()

	var employees []LegacyEmployee
	for rows.Next() {
		var e LegacyEmployee
		if err := rows.Scan(&e.ID, &e.Name, &e.RawDescriptor); err != nil {
			return nil, fmt.Errorf("scan legacy employee: %w", err)
		}
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy employees: %w", err)
	}
	return employees, nil
}
