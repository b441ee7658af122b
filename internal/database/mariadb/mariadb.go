// Package mariadb reads the roster from the legacy HR database.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	connectTimeout = 10 * time.Second
	readTimeout    = time.Minute
)

// Pool is a read connection to the legacy HR database.
type Pool struct {
	db *sql.DB
}

// legacyConfig parses LEGACY_DATABASE_URL and fills in the timeouts the old
// DSNs never set.
func legacyConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("LEGACY_DATABASE_URL is required to import the roster")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse LEGACY_DATABASE_URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = connectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = readTimeout
	}
	return cfg, nil
}

// NewPool connects to the legacy HR database. The roster is read with a
// single query, so the pool stays small.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := legacyConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("legacy HR database connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to legacy HR database at %s: %w", cfg.Addr, err)
	}

	return &Pool{db: db}, nil
}

// Close releases the connections.
func (p *Pool) Close() error {
	return p.db.Close()
}
