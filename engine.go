package clinicauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"clinicauth/internal"
	"clinicauth/jwt"

	"github.com/google/uuid"
)

// Engine defines a public type used by clinicauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config        Config
	users         UserStore
	refreshTokens RefreshTokenStore
	resetTokens   ResetTokenStore
	passwordHash  PasswordHasher
	mailer        EmailDelivery
	audit         *auditDispatcher
	metrics       *Metrics
	jwtManager    *jwt.Manager
	now           func() time.Time
}

// rehasher is implemented by password hashers that can report outdated
// verifier parameters, such as [password.Argon2].
type rehasher interface {
	NeedsRehash(encodedHash string) (bool, error)
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Unknown email and wrong password are indistinguishable to the caller:
// both return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"reason": "unknown_email",
				}
			})
			return nil, ErrInvalidCredentials
		}
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}

	e.maybeRehashPassword(ctx, user, password)

	if e.config.Account.RevokeOnNewLogin {
		if _, err := e.refreshTokens.RevokeAllForUser(ctx, user.ID); err != nil {
			log.Print("clinicauth: pre-login revocation failed")
		} else {
			e.metricInc(MetricMassRevocation)
		}
	}

	result, err := e.issueSessionTokens(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, "", nil, nil)

	return result, nil
}

// LoginWithPreviousToken behaves like [Engine.Login] and additionally
// revokes the refresh token of the session being replaced. The previous
// token is handled best-effort: a malformed or unknown token never fails
// the login.
func (e *Engine) LoginWithPreviousToken(ctx context.Context, email, password, previousRefresh string) (*AuthResult, error) {
	if previousRefresh != "" {
		if err := e.Logout(ctx, previousRefresh); err != nil {
			log.Print("clinicauth: previous session revocation failed")
		}
	}
	return e.Login(ctx, email, password)
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Each refresh token is single-use: the presented token's record is
// conditionally revoked before a replacement pair is issued, so two
// concurrent refreshes of the same token produce exactly one winner.
// Presenting a token whose record is already revoked is treated as theft
// and revokes every refresh token the account holds.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e == nil || e.users == nil || e.refreshTokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return nil, ErrRefreshInvalid
	}

	record, err := e.refreshTokens.FindByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.ID, ErrRefreshInvalid, func() map[string]string {
				return map[string]string{
					"reason": "record_not_found",
				}
			})
			return nil, ErrRefreshInvalid
		}
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	if record.UserID != claims.Subject ||
		!internal.TokenHashEqual(record.TokenHash, internal.HashToken(refreshToken)) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.ID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "hash_mismatch",
			}
		})
		return nil, ErrRefreshInvalid
	}

	if record.Revoked {
		return nil, e.handleRefreshReuse(ctx, record)
	}

	if !e.now().Before(record.ExpiresAt) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, record.UserID, record.JTI, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "record_expired",
			}
		})
		return nil, ErrRefreshInvalid
	}

	user, err := e.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, record.UserID, record.JTI, ErrUserNotFound, func() map[string]string {
				return map[string]string{
					"reason": "user_missing",
				}
			})
			return nil, ErrRefreshInvalid
		}
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	if err := e.refreshTokens.Revoke(ctx, record.JTI); err != nil {
		switch {
		case errors.Is(err, ErrRecordRevoked):
			// Lost the race against a concurrent rotation of the same token.
			return nil, e.handleRefreshReuse(ctx, record)
		case errors.Is(err, ErrRecordNotFound):
			e.metricInc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		default:
			e.metricInc(MetricRefreshFailure)
			return nil, err
		}
	}

	result, err := e.issueSessionTokensWithClient(ctx, user, record.UserAgent, record.ClientIP)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, record.JTI, nil, nil)

	return result, nil
}

func (e *Engine) handleRefreshReuse(ctx context.Context, record *RefreshTokenRecord) error {
	e.metricInc(MetricRefreshReuseDetected)

	// The compromise response must not fail silently: when the store cannot
	// revoke the account's sessions the caller sees both failures.
	if _, err := e.refreshTokens.RevokeAllForUser(ctx, record.UserID); err != nil {
		log.Print("clinicauth: mass revocation after reuse detection failed")
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, record.UserID, record.JTI, ErrRefreshReuse, func() map[string]string {
			return map[string]string{
				"reason": "mass_revocation_failed",
			}
		})
		return errors.Join(ErrRefreshReuse, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}
	e.metricInc(MetricMassRevocation)

	e.emitAudit(ctx, auditEventRefreshReuseDetected, false, record.UserID, record.JTI, ErrRefreshReuse, nil)

	return ErrRefreshReuse
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout is best-effort: a malformed, unknown, or already-revoked token is
// not an error. Only backend unavailability is reported.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.refreshTokens == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefreshLenient(refreshToken)
	if err != nil {
		return nil
	}

	record, err := e.refreshTokens.FindByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if record.UserID != claims.Subject ||
		!internal.TokenHashEqual(record.TokenHash, internal.HashToken(refreshToken)) {
		return nil
	}

	if err := e.refreshTokens.Revoke(ctx, claims.ID); err != nil {
		if errors.Is(err, ErrRecordRevoked) || errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.Subject, claims.ID, nil, nil)

	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil || e.refreshTokens == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.refreshTokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	e.metricInc(MetricMassRevocation)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.Itoa(n),
		}
	})

	return n, nil
}

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// ValidateAccess is pure token verification: it never touches a store.
// Any verification failure maps to [ErrUnauthorized].
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*Identity, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}

	role := Role(claims.Role)
	if !role.Valid() {
		return nil, ErrUnauthorized
	}

	return &Identity{
		UserID: claims.Subject,
		Role:   role,
	}, nil
}

// CurrentUser resolves a verified access token to the live account record.
// A valid token whose account no longer exists yields [ErrUnauthorized].
func (e *Engine) CurrentUser(ctx context.Context, tokenStr string) (*UserSummary, error) {
	identity, err := e.ValidateAccess(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := e.users.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	summary := user.Summary()
	return &summary, nil
}

func (e *Engine) issueSessionTokens(ctx context.Context, user *User) (*AuthResult, error) {
	return e.issueSessionTokensWithClient(ctx, user, userAgentFromContext(ctx), clientIPFromContext(ctx))
}

func (e *Engine) issueSessionTokensWithClient(ctx context.Context, user *User, fallbackUA, fallbackIP string) (*AuthResult, error) {
	access, err := e.jwtManager.CreateAccess(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refresh, err := e.jwtManager.CreateRefresh(user.ID, jti)
	if err != nil {
		return nil, err
	}

	userAgent := userAgentFromContext(ctx)
	if userAgent == "" {
		userAgent = fallbackUA
	}
	clientIP := clientIPFromContext(ctx)
	if clientIP == "" {
		clientIP = fallbackIP
	}

	now := e.now()
	record := &RefreshTokenRecord{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		JTI:       jti,
		TokenHash: internal.HashToken(refresh),
		UserAgent: userAgent,
		ClientIP:  clientIP,
		ExpiresAt: now.Add(e.config.JWT.RefreshTTL),
		CreatedAt: now,
	}

	if err := e.refreshTokens.Save(ctx, record); err != nil {
		return nil, err
	}

	return &AuthResult{
		User: user.Summary(),
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
		},
	}, nil
}

func (e *Engine) maybeRehashPassword(ctx context.Context, user *User, plaintext string) {
	rh, ok := e.passwordHash.(rehasher)
	if !ok {
		return
	}

	needs, err := rh.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		log.Print("clinicauth: password rehash update failed")
	}
}
