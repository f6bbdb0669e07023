package clinicauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicauth/internal/stores"

	"github.com/redis/go-redis/v9"
)

// redisRefreshTokenStore adapts the internal Redis store to the public
// [RefreshTokenStore] interface and error taxonomy.
type redisRefreshTokenStore struct {
	store *stores.RefreshTokenStore
	ttl   time.Duration
}

// NewRedisRefreshTokenStore returns a [RefreshTokenStore] backed by Redis.
// Records live under prefix and expire together with the refresh token.
func NewRedisRefreshTokenStore(client redis.UniversalClient, prefix string, refreshTTL time.Duration) RefreshTokenStore {
	return &redisRefreshTokenStore{
		store: stores.NewRefreshTokenStore(client, prefix),
		ttl:   refreshTTL,
	}
}

func (s *redisRefreshTokenStore) Save(ctx context.Context, record *RefreshTokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		ttl = s.ttl
	}

	err := s.store.Save(ctx, &stores.RefreshRecord{
		ID:        record.ID,
		UserID:    record.UserID,
		JTI:       record.JTI,
		TokenHash: record.TokenHash,
		UserAgent: record.UserAgent,
		ClientIP:  record.ClientIP,
		Revoked:   record.Revoked,
		ExpiresAt: record.ExpiresAt.Unix(),
		CreatedAt: record.CreatedAt.Unix(),
	}, ttl)
	return mapRefreshStoreErr(err)
}

func (s *redisRefreshTokenStore) FindByJTI(ctx context.Context, jti string) (*RefreshTokenRecord, error) {
	rec, err := s.store.Find(ctx, jti)
	if err != nil {
		return nil, mapRefreshStoreErr(err)
	}

	return &RefreshTokenRecord{
		ID:        rec.ID,
		UserID:    rec.UserID,
		JTI:       rec.JTI,
		TokenHash: rec.TokenHash,
		UserAgent: rec.UserAgent,
		ClientIP:  rec.ClientIP,
		Revoked:   rec.Revoked,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		CreatedAt: time.Unix(rec.CreatedAt, 0),
	}, nil
}

func (s *redisRefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	return mapRefreshStoreErr(s.store.Revoke(ctx, jti))
}

func (s *redisRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := s.store.RevokeAllForUser(ctx, userID)
	return n, mapRefreshStoreErr(err)
}

func mapRefreshStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrRefreshNotFound):
		return ErrRecordNotFound
	case errors.Is(err, stores.ErrRefreshAlreadyRevoked):
		return ErrRecordRevoked
	case errors.Is(err, stores.ErrRefreshRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

// redisResetTokenStore adapts the internal Redis store to the public
// [ResetTokenStore] interface and error taxonomy.
type redisResetTokenStore struct {
	store *stores.PasswordResetStore
}

// NewRedisResetTokenStore returns a [ResetTokenStore] backed by Redis.
func NewRedisResetTokenStore(client redis.UniversalClient, prefix string) ResetTokenStore {
	return &redisResetTokenStore{
		store: stores.NewPasswordResetStore(client, prefix),
	}
}

func (s *redisResetTokenStore) Save(ctx context.Context, record *ResetTokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return ErrPasswordResetInvalid
	}

	err := s.store.Save(ctx, &stores.ResetRecord{
		ID:        record.ID,
		UserID:    record.UserID,
		TokenHash: record.TokenHash,
		ExpiresAt: record.ExpiresAt.Unix(),
		CreatedAt: record.CreatedAt.Unix(),
	}, ttl)
	return mapResetStoreErr(err)
}

func (s *redisResetTokenStore) FindByHash(ctx context.Context, tokenHash string) (*ResetTokenRecord, error) {
	rec, err := s.store.Get(ctx, tokenHash)
	if err != nil {
		return nil, mapResetStoreErr(err)
	}
	return resetRecordFromStore(rec), nil
}

func (s *redisResetTokenStore) Consume(ctx context.Context, tokenHash string) (*ResetTokenRecord, error) {
	rec, err := s.store.Consume(ctx, tokenHash)
	if err != nil {
		return nil, mapResetStoreErr(err)
	}
	return resetRecordFromStore(rec), nil
}

func (s *redisResetTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := s.store.RevokeAllForUser(ctx, userID)
	return n, mapResetStoreErr(err)
}

func resetRecordFromStore(rec *stores.ResetRecord) *ResetTokenRecord {
	return &ResetTokenRecord{
		ID:        rec.ID,
		UserID:    rec.UserID,
		TokenHash: rec.TokenHash,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		CreatedAt: time.Unix(rec.CreatedAt, 0),
	}
}

func mapResetStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrResetNotFound):
		return ErrRecordNotFound
	case errors.Is(err, stores.ErrResetRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
