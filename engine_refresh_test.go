package clinicauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRefreshRotatesTokenPair(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "doctor@example.com", RoleDoctor)
	first := env.login(t, "doctor@example.com")

	second, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Fatal("refresh must issue a new refresh token")
	}
	if second.User.ID != user.ID {
		t.Fatalf("user id = %q, want %q", second.User.ID, user.ID)
	}

	identity, err := env.engine.ValidateAccess(context.Background(), second.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if identity.UserID != user.ID {
		t.Fatalf("identity user = %q, want %q", identity.UserID, user.ID)
	}

	if got := env.counter(MetricRefreshSuccess); got != 1 {
		t.Fatalf("refresh success counter = %d, want 1", got)
	}
}

func TestRefreshReplayRevokesAllSessions(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	first := env.login(t, "doctor@example.com")

	second, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Replaying the consumed token is treated as theft.
	if _, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("replay err = %v, want ErrRefreshReuse", err)
	}
	if got := env.counter(MetricRefreshReuseDetected); got != 1 {
		t.Fatalf("reuse counter = %d, want 1", got)
	}

	// The legitimate successor was swept up in the mass revocation.
	if _, err := env.engine.Refresh(context.Background(), second.Tokens.RefreshToken); err == nil {
		t.Fatal("expected successor token to be revoked after reuse detection")
	}
}

func TestRefreshConcurrentUseHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := env.engine.Refresh(context.Background(), result.Tokens.RefreshToken)
			errs <- err
		}()
	}

	winners := 0
	for i := 0; i < attempts; i++ {
		if err := <-errs; err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.engine.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	if _, err := env.engine.Refresh(context.Background(), result.Tokens.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	env.clock.Advance(env.engine.config.JWT.RefreshTTL + time.Minute)

	if _, err := env.engine.Refresh(context.Background(), result.Tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRefreshWhenUserDeleted(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	env.users.delete(user.ID)

	if _, err := env.engine.Refresh(context.Background(), result.Tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRefreshCarriesClientMetadataForward(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	ctx = WithUserAgent(ctx, "clinic-app/1.0")

	result, err := env.engine.Login(ctx, "doctor@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Refresh without client context falls back to the original record.
	rotated, err := env.engine.Refresh(context.Background(), result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	claims, err := env.engine.jwtManager.ParseRefresh(rotated.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh: %v", err)
	}
	record, err := env.engine.refreshTokens.FindByJTI(context.Background(), claims.ID)
	if err != nil {
		t.Fatalf("FindByJTI: %v", err)
	}
	if record.ClientIP != "203.0.113.9" {
		t.Fatalf("client ip = %q, want carried-forward value", record.ClientIP)
	}
	if record.UserAgent != "clinic-app/1.0" {
		t.Fatalf("user agent = %q, want carried-forward value", record.UserAgent)
	}
}

func TestRefreshReplayIndistinguishableFromInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	first := env.login(t, "doctor@example.com")

	if _, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// A replayed token must fail the same way a malformed or expired one
	// does; only the host matching on the narrower sentinel sees the
	// difference.
	_, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken)
	if !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("replay err = %v, want ErrRefreshInvalid", err)
	}
	if !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("replay err = %v, want ErrRefreshReuse", err)
	}
}

func TestRefreshReuseReportsRevocationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	first := env.login(t, "doctor@example.com")

	if _, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	env.engine.refreshTokens = &revokeAllFailingStore{RefreshTokenStore: env.engine.refreshTokens}

	_, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken)
	if !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("replay err = %v, want ErrRefreshReuse", err)
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("replay err = %v, want ErrStoreUnavailable alongside the reuse failure", err)
	}
	if got := env.counter(MetricMassRevocation); got != 0 {
		t.Fatalf("mass revocation counter = %d, want 0 when the fan-out failed", got)
	}
}
