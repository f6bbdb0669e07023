package clinicauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
	testPassword      = "correct horse battery staple"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    map[string]*User{},
		byEmail: map[string]*User{},
	}
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memUserStore) Create(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return nil, ErrDuplicateEmail
	}
	clone := *user
	s.byID[clone.ID] = &clone
	s.byEmail[clone.Email] = &clone
	out := clone
	return &out, nil
}

func (s *memUserStore) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *memUserStore) delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[userID]; ok {
		delete(s.byEmail, user.Email)
		delete(s.byID, userID)
	}
}

type recordingMailer struct {
	mu    sync.Mutex
	sends []sentReset
}

type sentReset struct {
	email string
	token string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sentReset{email: email, token: token})
	return nil
}

func (m *recordingMailer) last() (sentReset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		return sentReset{}, false
	}
	return m.sends[len(m.sends)-1], true
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

type testEnv struct {
	engine *Engine
	users  *memUserStore
	mailer *recordingMailer
	clock  *testClock
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newTestClock()
	users := newMemUserStore()
	mailer := &recordingMailer{}

	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte(testAccessSecret)
	cfg.JWT.RefreshSecret = []byte(testRefreshSecret)
	// Cheap parameters keep the argon2 work factor out of test runtime.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(users).
		WithMailer(mailer).
		WithClock(clock.Now).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine: engine,
		users:  users,
		mailer: mailer,
		clock:  clock,
		redis:  mr,
	}
}

func (env *testEnv) registerUser(t *testing.T, email string, role Role) *User {
	t.Helper()

	hash, err := env.engine.passwordHash.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	now := env.clock.Now()
	user, err := env.users.Create(context.Background(), &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		Role:         role,
		PasswordHash: hash,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return user
}

func (env *testEnv) login(t *testing.T, email string) *AuthResult {
	t.Helper()

	result, err := env.engine.Login(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return result
}

func (env *testEnv) counter(id MetricID) uint64 {
	return env.engine.MetricsSnapshot().Counters[id]
}

// revokeAllFailingStore delegates everything except the revocation fan-out,
// which always reports an unavailable backend.
type revokeAllFailingStore struct {
	RefreshTokenStore
}

func (s *revokeAllFailingStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	return 0, errors.New("redis: connection refused")
}
