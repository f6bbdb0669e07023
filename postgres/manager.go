package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"clinicauth"
	"clinicauth/postgres/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Seam for tests that cannot run migrations against a real server.
var gooseUpContext = goose.UpContext

// Manager owns a PostgreSQL connection pool and hands out the clinicauth
// stores bound to it.
type Manager struct {
	db *sql.DB
}

// Open connects to PostgreSQL through the pgx stdlib driver and verifies
// the connection with a ping.
func Open(ctx context.Context, dsn string) (*Manager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Manager{db: db}, nil
}

// NewManager wraps an existing pool. The caller keeps ownership of db.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// RunMigrations applies the embedded goose migrations.
func (m *Manager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying pool, for callers that need [WithTx] or their
// own queries alongside the stores.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Users returns a [clinicauth.UserStore] bound to the pool.
func (m *Manager) Users() clinicauth.UserStore {
	return NewUserStore(m.db)
}

// RefreshTokens returns a [clinicauth.RefreshTokenStore] bound to the pool.
func (m *Manager) RefreshTokens() clinicauth.RefreshTokenStore {
	return NewRefreshTokenStore(m.db)
}

// ResetTokens returns a [clinicauth.ResetTokenStore] bound to the pool.
func (m *Manager) ResetTokens() clinicauth.ResetTokenStore {
	return NewResetTokenStore(m.db)
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	return m.db.Close()
}
