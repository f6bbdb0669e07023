//go:build integration
// +build integration

package test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"clinicauth"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationEngine(t *testing.T) (*clinicauth.Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := clinicauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("integration-access-secret-0123456")
	cfg.JWT.RefreshSecret = []byte("integration-refresh-secret-012345")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := clinicauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(newTestUserStore()).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func registerAccount(t *testing.T, engine *clinicauth.Engine, email string) *clinicauth.AuthResult {
	t.Helper()
	res, err := engine.Register(context.Background(), clinicauth.RegisterRequest{
		Name:     "Integration Doctor",
		Email:    email,
		Password: "integration-password",
		Role:     clinicauth.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return res
}

type testUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*clinicauth.User
	byEmail map[string]*clinicauth.User
}

func newTestUserStore() *testUserStore {
	return &testUserStore{
		byID:    make(map[string]*clinicauth.User),
		byEmail: make(map[string]*clinicauth.User),
	}
}

func (s *testUserStore) FindByEmail(ctx context.Context, email string) (*clinicauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, clinicauth.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *testUserStore) FindByID(ctx context.Context, id string) (*clinicauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, clinicauth.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *testUserStore) Create(ctx context.Context, user *clinicauth.User) (*clinicauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return nil, clinicauth.ErrDuplicateEmail
	}
	clone := *user
	s.byID[clone.ID] = &clone
	s.byEmail[clone.Email] = &clone
	out := clone
	return &out, nil
}

func (s *testUserStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return clinicauth.ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}
