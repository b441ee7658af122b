package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

type Config struct {
	Attendance AttendanceConfig
	Database   DatabaseConfig
	Legacy     LegacyConfig
	Web        WebConfig
}

// AttendanceConfig holds the matching threshold and pairing policy.
// Defaults come from the embedded policy.yaml, env variables override them.
type AttendanceConfig struct {
	MatchThreshold                float64       `yaml:"match_threshold" env:"MATCH_THRESHOLD"`
	CheckInLookback               time.Duration `yaml:"checkin_lookback" env:"CHECKIN_LOOKBACK"`
	CheckOutLookback              time.Duration `yaml:"checkout_lookback" env:"CHECKOUT_LOOKBACK"`
	CheckOutRequiresCheckInWithin time.Duration `yaml:"checkout_requires_checkin_within" env:"CHECKOUT_REQUIRES_CHECKIN_WITHIN"`
	MinCheckInInterval            time.Duration `yaml:"min_checkin_interval" env:"MIN_CHECKIN_INTERVAL"`
	MinCheckOutInterval           time.Duration `yaml:"min_checkout_interval" env:"MIN_CHECKOUT_INTERVAL"`
	RegularDayHours               float64       `yaml:"regular_day_hours" env:"REGULAR_DAY_HOURS"`
	RosterCacheTTL                time.Duration `yaml:"roster_cache_ttl" env:"ROSTER_CACHE_TTL"`
	Timezone                      string        `yaml:"timezone" env:"ATTENDANCE_TIMEZONE"`
}

// Location resolves the configured time zone, falling back to time.Local.
func (c *AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate checks that the policy values are usable.
func (c *AttendanceConfig) Validate() error {
	if c.MatchThreshold <= 0 {
		return fmt.Errorf("match threshold must be positive, got %v", c.MatchThreshold)
	}
	if c.CheckInLookback <= 0 || c.CheckOutLookback <= 0 || c.CheckOutRequiresCheckInWithin <= 0 {
		return errors.New("lookback windows must be positive")
	}
	if c.MinCheckInInterval < 0 || c.MinCheckOutInterval < 0 {
		return errors.New("minimum event intervals must not be negative")
	}
	if c.RegularDayHours <= 0 {
		return fmt.Errorf("regular day hours must be positive, got %v", c.RegularDayHours)
	}
	if c.RosterCacheTTL < 0 {
		return errors.New("roster cache TTL must not be negative")
	}
	if c.Timezone != "" && c.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

type DatabaseConfig struct {
	Driver       string // postgres (default) or sqlite
	URL          string // PostgreSQL connection URL or SQLite file path / DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// LegacyConfig points at the HR database the roster is imported from.
type LegacyConfig struct {
	DatabaseURL string // MariaDB/MySQL DSN (e.g., hr:hr@tcp(mariadb:3306)/hr?parseTime=true)
	Table       string // Table holding employees, defaults to employees
}

// WebConfig configures the HTTP API.
type WebConfig struct {
	Port int
	Host string
	// Browser origins of kiosk and HR front ends allowed to call the API.
	AllowedOrigins []string `env:"WEB_ALLOWED_ORIGINS" envSeparator:","`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DefaultAttendance returns the policy from the embedded policy.yaml.
func DefaultAttendance() AttendanceConfig {
	var att AttendanceConfig
	if err := yaml.Unmarshal(policyYAML, &att); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}
	return att
}

func Load() (*Config, error) {
	att := DefaultAttendance()
	if err := env.Parse(&att); err != nil {
		return nil, fmt.Errorf("parse attendance env: %w", err)
	}
	if err := att.Validate(); err != nil {
		return nil, fmt.Errorf("invalid attendance policy: %w", err)
	}

	web := WebConfig{
		Port: envInt("WEB_PORT", 8080),
		Host: envString("WEB_HOST", "0.0.0.0"),
	}
	if err := env.Parse(&web); err != nil {
		return nil, fmt.Errorf("parse web env: %w", err)
	}

	return &Config{
		Attendance: att,
		Database: DatabaseConfig{
			Driver:       envString("DATABASE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Legacy: LegacyConfig{
			DatabaseURL: os.Getenv("LEGACY_DATABASE_URL"),
			Table:       envString("LEGACY_EMPLOYEE_TABLE", "employees"),
		},
		Web: web,
	}, nil
}
