package postgres

import (
	"context"
	"database/sql"
	"errors"

	"clinicauth"
)

// ResetTokenStore implements [clinicauth.ResetTokenStore] on a PostgreSQL
// reset_tokens table.
type ResetTokenStore struct {
	db DBTX
}

// NewResetTokenStore returns a [ResetTokenStore] bound to db.
func NewResetTokenStore(db DBTX) *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

func (s *ResetTokenStore) Save(ctx context.Context, record *clinicauth.ResetTokenRecord) error {
	const query = `
		INSERT INTO reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.TokenHash,
		record.ExpiresAt, record.CreatedAt)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (s *ResetTokenStore) FindByHash(ctx context.Context, tokenHash string) (*clinicauth.ResetTokenRecord, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM reset_tokens
		WHERE token_hash = $1`
	return s.scanRecord(s.db.QueryRowContext(ctx, query, tokenHash))
}

// Consume deletes the record in the same statement that reads it, so two
// concurrent confirmations of the same token cannot both succeed.
func (s *ResetTokenStore) Consume(ctx context.Context, tokenHash string) (*clinicauth.ResetTokenRecord, error) {
	const query = `
		DELETE FROM reset_tokens
		WHERE token_hash = $1
		RETURNING id, user_id, token_hash, expires_at, created_at`
	return s.scanRecord(s.db.QueryRowContext(ctx, query, tokenHash))
}

func (s *ResetTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reset_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr(err)
	}
	return int(n), nil
}

func (s *ResetTokenStore) scanRecord(row *sql.Row) (*clinicauth.ResetTokenRecord, error) {
	var record clinicauth.ResetTokenRecord
	err := row.Scan(&record.ID, &record.UserID, &record.TokenHash,
		&record.ExpiresAt, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clinicauth.ErrRecordNotFound
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return &record, nil
}
