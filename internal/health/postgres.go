package health

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresPinger checks PostgreSQL reachability over a dedicated
// database/sql connection, independent of the repository's pool.
type PostgresPinger struct {
	db *sql.DB
}

// NewPostgresPinger opens a connection for health checks only.
func NewPostgresPinger(dsn string) (*PostgresPinger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	return &PostgresPinger{db: db}, nil
}

// Ping verifies PostgreSQL connectivity.
func (p *PostgresPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the health-check connection.
func (p *PostgresPinger) Close() error {
	return p.db.Close()
}
