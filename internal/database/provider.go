package database

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by writers when the target row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when inserting a row whose key is taken.
	ErrAlreadyExists = errors.New("already exists")
)

var (
	backendName        string
	employeeWriter     func() EmployeeWriter
	timeLogWriter      func() TimeLogWriter
	workHoursWriter    func() WorkHoursWriter
	backendMigrator    Migrator
	backendInitialized bool
)

// RegisterBackend registers the repository constructors of the active backend.
// This is called by the postgres and sqlite packages to avoid import cycles.
func RegisterBackend(
	name string,
	employees func() EmployeeWriter,
	timeLogs func() TimeLogWriter,
	workHours func() WorkHoursWriter,
) {
	backendName = name
	employeeWriter = employees
	timeLogWriter = timeLogs
	workHoursWriter = workHours
	backendInitialized = true
}

// RegisterMigrator registers the migrator of the active backend.
func RegisterMigrator(m Migrator) {
	backendMigrator = m
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	return backendInitialized
}

// BackendName returns the name of the registered backend, empty if none.
func BackendName() string {
	return backendName
}

// ResetBackend forgets the registered backend. Used by tests and on shutdown.
func ResetBackend() {
	backendName = ""
	employeeWriter = nil
	timeLogWriter = nil
	workHoursWriter = nil
	backendMigrator = nil
	backendInitialized = false
}

func notInitialized() error {
	return errors.New("database backend not initialized: DATABASE_URL is required")
}

// GetEmployeeReader returns an EmployeeReader from the active backend
func GetEmployeeReader(ctx context.Context) (EmployeeReader, error) {
	return GetEmployeeWriter(ctx)
}

// GetEmployeeWriter returns an EmployeeWriter from the active backend
func GetEmployeeWriter(ctx context.Context) (EmployeeWriter, error) {
	if !backendInitialized {
		return nil, notInitialized()
	}
	if employeeWriter == nil {
		return nil, fmt.Errorf("%s employee repository not registered", backendName)
	}
	return employeeWriter(), nil
}

// GetTimeLogReader returns a TimeLogReader from the active backend
func GetTimeLogReader(ctx context.Context) (TimeLogReader, error) {
	return GetTimeLogWriter(ctx)
}

// GetTimeLogWriter returns a TimeLogWriter from the active backend
func GetTimeLogWriter(ctx context.Context) (TimeLogWriter, error) {
	if !backendInitialized {
		return nil, notInitialized()
	}
	if timeLogWriter == nil {
		return nil, fmt.Errorf("%s time-log repository not registered", backendName)
	}
	return timeLogWriter(), nil
}

// GetWorkHoursReader returns a WorkHoursReader from the active backend
func GetWorkHoursReader(ctx context.Context) (WorkHoursReader, error) {
	return GetWorkHoursWriter(ctx)
}

// GetWorkHoursWriter returns a WorkHoursWriter from the active backend
func GetWorkHoursWriter(ctx context.Context) (WorkHoursWriter, error) {
	if !backendInitialized {
		return nil, notInitialized()
	}
	if workHoursWriter == nil {
		return nil, fmt.Errorf("%s work-hours repository not registered", backendName)
	}
	return workHoursWriter(), nil
}

// GetMigrator returns the migrator of the active backend
func GetMigrator(ctx context.Context) (Migrator, error) {
	if !backendInitialized {
		return nil, notInitialized()
	}
	if backendMigrator == nil {
		return nil, fmt.Errorf("%s migrator not registered", backendName)
	}
	return backendMigrator, nil
}
