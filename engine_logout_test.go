package clinicauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	if err := env.engine.Logout(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// A logged-out token presents as a revoked record.
	if _, err := env.engine.Refresh(context.Background(), result.Tokens.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("refresh after logout err = %v, want ErrRefreshReuse", err)
	}
	if got := env.counter(MetricLogout); got != 1 {
		t.Fatalf("logout counter = %d, want 1", got)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	if err := env.engine.Logout(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	if err := env.engine.Logout(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestLogoutToleratesGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	if err := env.engine.Logout(context.Background(), "not-a-jwt"); err != nil {
		t.Fatalf("Logout with garbage token: %v", err)
	}
}

func TestLogoutToleratesExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "doctor@example.com", RoleDoctor)
	result := env.login(t, "doctor@example.com")

	env.clock.Advance(env.engine.config.JWT.RefreshTTL + time.Minute)

	if err := env.engine.Logout(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout with expired token: %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "doctor@example.com", RoleDoctor)

	first := env.login(t, "doctor@example.com")
	second := env.login(t, "doctor@example.com")
	third := env.login(t, "doctor@example.com")

	n, err := env.engine.LogoutAll(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("revoked = %d, want 3", n)
	}

	for _, result := range []*AuthResult{first, second, third} {
		if _, err := env.engine.Refresh(context.Background(), result.Tokens.RefreshToken); err == nil {
			t.Fatal("expected refresh to fail after LogoutAll")
		}
	}
	if got := env.counter(MetricMassRevocation); got != 1 {
		t.Fatalf("mass revocation counter = %d, want 1", got)
	}
}

func TestLogoutAllWithNoSessions(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "doctor@example.com", RoleDoctor)

	n, err := env.engine.LogoutAll(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 0 {
		t.Fatalf("revoked = %d, want 0", n)
	}
}
