package postgres

import (
	"context"
	"database/sql"
	"errors"

	"clinicauth"
)

// RefreshTokenStore implements [clinicauth.RefreshTokenStore] on a
// PostgreSQL refresh_tokens table.
type RefreshTokenStore struct {
	db DBTX
}

// NewRefreshTokenStore returns a [RefreshTokenStore] bound to db.
func NewRefreshTokenStore(db DBTX) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

func (s *RefreshTokenStore) Save(ctx context.Context, record *clinicauth.RefreshTokenRecord) error {
	const query = `
		INSERT INTO refresh_tokens (id, user_id, jti, token_hash, user_agent, client_ip, revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.JTI, record.TokenHash,
		record.UserAgent, record.ClientIP, record.Revoked,
		record.ExpiresAt, record.CreatedAt)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (s *RefreshTokenStore) FindByJTI(ctx context.Context, jti string) (*clinicauth.RefreshTokenRecord, error) {
	const query = `
		SELECT id, user_id, jti, token_hash, user_agent, client_ip, revoked, expires_at, created_at
		FROM refresh_tokens
		WHERE jti = $1`

	var record clinicauth.RefreshTokenRecord
	err := s.db.QueryRowContext(ctx, query, jti).Scan(
		&record.ID, &record.UserID, &record.JTI, &record.TokenHash,
		&record.UserAgent, &record.ClientIP, &record.Revoked,
		&record.ExpiresAt, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clinicauth.ErrRecordNotFound
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return &record, nil
}

// Revoke flips the revoked flag only when it is still clear, so concurrent
// rotations of the same token observe exactly one winner.
func (s *RefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	const query = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE jti = $1 AND revoked = FALSE`

	res, err := s.db.ExecContext(ctx, query, jti)
	if err != nil {
		return dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: distinguish a missing record from a lost race.
	var revoked bool
	err = s.db.QueryRowContext(ctx,
		`SELECT revoked FROM refresh_tokens WHERE jti = $1`, jti).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return clinicauth.ErrRecordNotFound
	}
	if err != nil {
		return dbErr(err)
	}
	return clinicauth.ErrRecordRevoked
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	const query = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND revoked = FALSE`

	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr(err)
	}
	return int(n), nil
}

// DeleteExpired removes refresh token rows whose expiry has passed. It is
// intended for a periodic maintenance job; the engine never serves expired
// rows regardless.
func (s *RefreshTokenStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr(err)
	}
	return int(n), nil
}
