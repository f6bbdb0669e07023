package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinicauth"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

// dbErr marks a driver failure as an infrastructure error so hosts can
// branch on [clinicauth.ErrStoreUnavailable] regardless of backend.
func dbErr(err error) error {
	return fmt.Errorf("%w: db error: %v", clinicauth.ErrStoreUnavailable, err)
}

// UserStore implements [clinicauth.UserStore] on a PostgreSQL users table.
type UserStore struct {
	db DBTX
}

// NewUserStore returns a [UserStore] bound to db.
func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*clinicauth.User, error) {
	const query = `
		SELECT id, email, name, role, password_hash, verified, created_at, updated_at
		FROM users
		WHERE email = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*clinicauth.User, error) {
	const query = `
		SELECT id, email, name, role, password_hash, verified, created_at, updated_at
		FROM users
		WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *UserStore) Create(ctx context.Context, user *clinicauth.User) (*clinicauth.User, error) {
	const query = `
		INSERT INTO users (id, email, name, role, password_hash, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, string(user.Role),
		user.PasswordHash, user.Verified, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, clinicauth.ErrDuplicateEmail
		}
		return nil, dbErr(err)
	}

	created := *user
	return &created, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err)
	}
	if n == 0 {
		return clinicauth.ErrRecordNotFound
	}
	return nil
}

func (s *UserStore) scanUser(row *sql.Row) (*clinicauth.User, error) {
	var (
		user clinicauth.User
		role string
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &role,
		&user.PasswordHash, &user.Verified, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clinicauth.ErrRecordNotFound
	}
	if err != nil {
		return nil, dbErr(err)
	}
	user.Role = clinicauth.Role(role)
	return &user, nil
}

// maybePgError unwraps err into a *pgconn.PgError when the pgx driver
// produced it.
func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
