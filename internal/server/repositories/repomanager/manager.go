// Package repomanager opens the account database, runs the embedded goose
// migrations and vends repositories bound to a dbx.DBTX.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/dbx"
	"github.com/dmitrijs2005/weatherdash/internal/server/migrations"
	"github.com/dmitrijs2005/weatherdash/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// SQLRepositoryManager vends SQL repositories for one driver.
type SQLRepositoryManager struct {
	dialect goose.Dialect
}

// NewRepositoryManager returns a manager for a driver returned by
// dbx.ParseDSN.
func NewRepositoryManager(driver string) (*SQLRepositoryManager, error) {
	switch driver {
	case dbx.DriverPostgres:
		return &SQLRepositoryManager{dialect: goose.DialectPostgres}, nil
	case dbx.DriverSQLite:
		return &SQLRepositoryManager{dialect: goose.DialectSQLite3}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

// newProvider is a seam for testing goose.NewProvider.
var newProvider = func(dialect goose.Dialect, db *sql.DB) (migrator, error) {
	return goose.NewProvider(dialect, db, migrations.Migrations)
}

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// RunMigrations applies every pending embedded migration.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := newProvider(m.dialect, db)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrations up: %w", err)
	}
	return nil
}

// DefaultBackoff is used by Open while waiting for the database to accept
// connections.
func DefaultBackoff() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
}

// Open connects to dsn, waits for the database with backoff and runs the
// migrations. SQLite handles are limited to one connection so concurrent
// writers queue instead of failing with SQLITE_BUSY.
func Open(ctx context.Context, dsn string, backoff retry.Backoff) (*sql.DB, *SQLRepositoryManager, error) {
	driver, source, err := dbx.ParseDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	m, err := NewRepositoryManager(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == dbx.DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, m, nil
}
