package clinicauth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// When [AccountConfig].AutoLogin is enabled the returned result carries a
// freshly issued token pair; otherwise the token fields are empty and the
// caller is expected to follow up with [Engine.Login].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountCreationInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid_email",
			}
		})
		return nil, ErrAccountCreationInvalid
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountCreationInvalid, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "empty_name",
			}
		})
		return nil, ErrAccountCreationInvalid
	}
	if len(req.Password) < e.config.Password.MinLength {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "password_too_short",
			}
		})
		return nil, ErrPasswordPolicy
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}
	if !role.Valid() || !e.config.roleAllowed(role) {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountRoleInvalid, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "role_invalid",
				"role":   string(role),
			}
		})
		return nil, ErrAccountRoleInvalid
	}

	passwordHash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}

	now := e.now()
	created, err := e.users.Create(ctx, &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "store_create_failed",
			}
		})
		return nil, err
	}

	result := &AuthResult{User: created.Summary()}

	if e.config.Account.AutoLogin {
		issued, err := e.issueSessionTokens(ctx, created)
		if err != nil {
			e.emitAudit(ctx, auditEventAccountCreationSuccess, false, created.ID, "", err, func() map[string]string {
				return map[string]string{
					"email":  email,
					"reason": "auto_login_failed",
				}
			})
			return result, err
		}
		result = issued
	}

	req.Password = ""
	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, created.ID, "", nil, func() map[string]string {
		return map[string]string{
			"email": email,
			"role":  string(created.Role),
		}
	})
	return result, nil
}
