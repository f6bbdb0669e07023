package clinicauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"clinicauth/internal"

	"github.com/google/uuid"
)

// ForgotPassword describes the forgotpassword operation and its observable behavior.
//
// ForgotPassword may return an error when input validation, dependency calls, or security checks fail.
// ForgotPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The caller cannot learn whether the email maps to an account: unknown
// addresses succeed silently after a small randomized delay so response
// timing does not betray enumeration either.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.users == nil || e.resetTokens == nil || e.mailer == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		return sleepEnumerationDelay(ctx)
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricPasswordResetRequest)
			e.emitAudit(ctx, auditEventPasswordResetRequest, true, "", "", nil, func() map[string]string {
				return map[string]string{
					"reason": "unknown_email",
				}
			})
			return sleepEnumerationDelay(ctx)
		}
		return err
	}

	token, err := internal.NewResetToken()
	if err != nil {
		return err
	}

	now := e.now()
	record := &ResetTokenRecord{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: internal.HashToken(token),
		ExpiresAt: now.Add(e.config.PasswordReset.TokenTTL),
		CreatedAt: now,
	}
	if err := e.resetTokens.Save(ctx, record); err != nil {
		return err
	}

	// Delivery is fire-and-forget: a mailer failure must not surface to the
	// caller or it becomes an enumeration signal.
	if err := e.mailer.SendPasswordReset(ctx, user.Email, token, record.ExpiresAt); err != nil {
		log.Print("clinicauth: password reset delivery failed")
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, record.ID, nil, nil)

	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The reset token is consumed before the password changes, so a token is
// honored at most once even under concurrent confirmation attempts. A
// successful reset revokes every refresh token the account holds.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil || e.users == nil || e.resetTokens == nil || e.refreshTokens == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	if len(newPassword) < e.config.Password.MinLength {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "password_too_short",
			}
		})
		return ErrPasswordPolicy
	}
	if token == "" {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return ErrPasswordResetInvalid
	}

	record, err := e.resetTokens.Consume(ctx, internal.HashToken(token))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricPasswordResetConfirmFailure)
			e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", "", ErrPasswordResetInvalid, func() map[string]string {
				return map[string]string{
					"reason": "token_unknown",
				}
			})
			return ErrPasswordResetInvalid
		}
		e.metricInc(MetricPasswordResetConfirmFailure)
		return err
	}

	if !e.now().Before(record.ExpiresAt) {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, record.UserID, record.ID, ErrPasswordResetInvalid, func() map[string]string {
			return map[string]string{
				"reason": "token_expired",
			}
		})
		return ErrPasswordResetInvalid
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return ErrPasswordPolicy
	}

	if err := e.users.UpdatePasswordHash(ctx, record.UserID, newHash); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricPasswordResetConfirmFailure)
			e.emitAudit(ctx, auditEventPasswordResetConfirm, false, record.UserID, record.ID, ErrUserNotFound, func() map[string]string {
				return map[string]string{
					"reason": "user_missing",
				}
			})
			return ErrPasswordResetInvalid
		}
		e.metricInc(MetricPasswordResetConfirmFailure)
		return err
	}

	if _, err := e.resetTokens.RevokeAllForUser(ctx, record.UserID); err != nil {
		log.Print("clinicauth: stale reset token cleanup failed")
	}

	// The password changed but the old sessions are still alive: that is an
	// infrastructure failure the caller must see, not a quiet success.
	if _, err := e.refreshTokens.RevokeAllForUser(ctx, record.UserID); err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, record.UserID, record.ID, ErrStoreUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "session_revocation_failed",
			}
		})
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metricInc(MetricMassRevocation)

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, record.UserID, record.ID, nil, nil)

	return nil
}

func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
