package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshRecordVersionV1 = 1

// Revoke script statuses. The revoked flag lives at byte offset 2 of the
// encoded record (1-indexed in Lua) so the script can flip it without
// understanding the rest of the layout.
const (
	revokeStatusNotFound       = 0
	revokeStatusAlreadyRevoked = 1
	revokeStatusRevoked        = 2
)

var revokeRefreshScript = redis.NewScript(`
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if string.byte(data, 2) ~= 0 then
  return 1
end
local updated = string.sub(data, 1, 1) .. string.char(1) .. string.sub(data, 3)
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
end
return 2
`)

var (
	ErrRefreshNotFound         = errors.New("refresh record not found")
	ErrRefreshAlreadyRevoked   = errors.New("refresh record already revoked")
	ErrRefreshRedisUnavailable = errors.New("refresh redis unavailable")
)

// RefreshRecord is the wire form of one issued refresh token. Timestamps
// are Unix seconds; TokenHash is a hex SHA-256 digest of the signed token.
type RefreshRecord struct {
	ID        string
	UserID    string
	JTI       string
	TokenHash string
	UserAgent string
	ClientIP  string
	Revoked   bool
	ExpiresAt int64
	CreatedAt int64
}

// RefreshTokenStore keeps one key per jti plus a per-user set of jtis so
// mass revocation can find every live token for an account.
type RefreshTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRefreshTokenStore(redisClient redis.UniversalClient, prefix string) *RefreshTokenStore {
	if prefix == "" {
		prefix = "crt"
	}
	return &RefreshTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RefreshTokenStore) key(jti string) string {
	return s.prefix + ":" + jti
}

func (s *RefreshTokenStore) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

func (s *RefreshTokenStore) Save(ctx context.Context, record *RefreshRecord, ttl time.Duration) error {
	encoded, err := encodeRefreshRecord(record)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("refresh record ttl must be > 0")
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(record.JTI), encoded, ttl)
		pipe.SAdd(ctx, s.userKey(record.UserID), record.JTI)
		pipe.Expire(ctx, s.userKey(record.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	return nil
}

func (s *RefreshTokenStore) Find(ctx context.Context, jti string) (*RefreshRecord, error) {
	data, err := s.redis.Get(ctx, s.key(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	return decodeRefreshRecord(data)
}

// Revoke flips the revoked flag. Exactly one caller observes the
// not-yet-revoked state: a concurrent second revoke of the same jti
// returns ErrRefreshAlreadyRevoked.
func (s *RefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	status, err := revokeRefreshScript.Run(ctx, s.redis, []string{s.key(jti)}).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	switch status {
	case revokeStatusNotFound:
		return ErrRefreshNotFound
	case revokeStatusAlreadyRevoked:
		return ErrRefreshAlreadyRevoked
	case revokeStatusRevoked:
		return nil
	default:
		return fmt.Errorf("%w: unexpected revoke status %d", ErrRefreshRedisUnavailable, status)
	}
}

// RevokeAllForUser revokes every live token for the account and reports
// how many flipped from live to revoked in this call.
func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	jtis, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	revoked := 0
	var stale []interface{}
	for _, jti := range jtis {
		status, err := revokeRefreshScript.Run(ctx, s.redis, []string{s.key(jti)}).Int()
		if err != nil {
			return revoked, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
		}
		switch status {
		case revokeStatusRevoked:
			revoked++
		case revokeStatusNotFound:
			stale = append(stale, jti)
		}
	}

	if len(stale) > 0 {
		_ = s.redis.SRem(ctx, s.userKey(userID), stale...).Err()
	}

	return revoked, nil
}

func encodeRefreshRecord(record *RefreshRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(refreshRecordVersionV1)
	if record.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{
		record.ID,
		record.UserID,
		record.JTI,
		record.TokenHash,
		record.UserAgent,
		record.ClientIP,
	} {
		if len(field) > 65535 {
			return nil, errors.New("refresh record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeRefreshRecord(data []byte) (*RefreshRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != refreshRecordVersionV1 {
		return nil, errors.New("invalid refresh record version")
	}

	revoked, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &RefreshRecord{
		Revoked: revoked != 0,
	}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{
		&record.ID,
		&record.UserID,
		&record.JTI,
		&record.TokenHash,
		&record.UserAgent,
		&record.ClientIP,
	} {
		var fieldLen uint16
		if err := binary.Read(reader, binary.BigEndian, &fieldLen); err != nil {
			return nil, err
		}
		raw := make([]byte, fieldLen)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
