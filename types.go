package clinicauth

import (
	"context"
	"strings"
	"time"
)

// Role represents the clinical role attached to an account.
type Role string

const (
	// RoleDoctor is an exported constant or variable used by the authentication engine.
	RoleDoctor Role = "doctor"
	// RoleAdmin is an exported constant or variable used by the authentication engine.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the roles the engine issues tokens for.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RoleAdmin
}

// User is the full account record exchanged with a [UserStore].
// Email is always stored lowercase; PasswordHash carries the encoded
// password verifier, never a plaintext password.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the projection of u that is safe to hand back to callers.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

// UserSummary is the caller-facing view of an account. It never includes
// the password verifier.
type UserSummary struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Verified  bool
	CreatedAt time.Time
}

// TokenPair bundles one signed access token with its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by [Engine.Register], [Engine.Login], and
// [Engine.Refresh]. It carries the authenticated account summary and a
// freshly issued token pair.
type AuthResult struct {
	User   UserSummary
	Tokens TokenPair
}

// Identity is returned by [Engine.ValidateAccess]. It identifies the
// subject and role encoded in a verified access token.
type Identity struct {
	UserID string
	Role   Role
}

// RefreshTokenRecord is the persisted state of one issued refresh token.
// TokenHash is the SHA-256 digest of the signed token string; the token
// itself is never stored.
type RefreshTokenRecord struct {
	ID        string
	UserID    string
	JTI       string
	TokenHash string
	UserAgent string
	ClientIP  string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ResetTokenRecord is the persisted state of one password-reset token,
// keyed by the SHA-256 digest of the opaque token mailed to the account.
type ResetTokenRecord struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RegisterRequest is the input for [Engine.Register]. Email is normalized
// to lowercase before lookup and storage.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// UserStore is the primary interface that callers must implement to
// integrate clinicauth with their account database. Lookups by email
// expect the lowercase form; implementations must report
// [ErrDuplicateEmail] from Create when the email is already taken and
// [ErrRecordNotFound] when a lookup misses.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// RefreshTokenStore persists refresh token records. Revoke must be
// conditional: it returns [ErrRecordRevoked] when the record was already
// revoked so that concurrent rotations observe exactly one winner.
type RefreshTokenStore interface {
	Save(ctx context.Context, record *RefreshTokenRecord) error
	FindByJTI(ctx context.Context, jti string) (*RefreshTokenRecord, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// ResetTokenStore persists password-reset token records. Consume must
// atomically look up and delete the record so a reset token is honored
// at most once.
type ResetTokenStore interface {
	Save(ctx context.Context, record *ResetTokenRecord) error
	FindByHash(ctx context.Context, tokenHash string) (*ResetTokenRecord, error)
	Consume(ctx context.Context, tokenHash string) (*ResetTokenRecord, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// PasswordHasher abstracts the password verifier scheme. Verify must run
// in time independent of where the first mismatching byte occurs.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// EmailDelivery receives the plaintext reset token for delivery to the
// account holder. The engine never logs or stores the plaintext itself.
type EmailDelivery interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// NoOpMailer is an [EmailDelivery] that silently discards all mail.
type NoOpMailer struct{}

// SendPasswordReset implements [EmailDelivery].
func (NoOpMailer) SendPasswordReset(context.Context, string, string, time.Time) error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
