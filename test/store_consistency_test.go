//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"

	"clinicauth"
)

func TestStoreConsistencyLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, cleanup := newIntegrationEngine(t)
	defer cleanup()

	res := registerAccount(t, engine, "logout@clinic.example")

	if err := engine.Logout(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("first Logout failed: %v", err)
	}
	if err := engine.Logout(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}

	if _, err := engine.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, clinicauth.ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse after logout, got %v", err)
	}
}

func TestStoreConsistencyLogoutAllCountsSessions(t *testing.T) {
	ctx := context.Background()
	engine, cleanup := newIntegrationEngine(t)
	defer cleanup()

	res := registerAccount(t, engine, "sessions@clinic.example")
	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, "sessions@clinic.example", "integration-password"); err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
	}

	n, err := engine.LogoutAll(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked sessions, got %d", n)
	}

	again, err := engine.LogoutAll(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("second LogoutAll failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no sessions left, got %d", again)
	}
}
