package credcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hollis-labs/credcore/internal"
)

// testKey is 32 bytes of deterministic key material for token tests.
var testKey = []byte("0123456789abcdef0123456789abcdef")

// testClock is a mutable fixed clock shared between the engine and tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockAccountStore is an in-test AccountStore with the same CAS and
// uniqueness contracts as the real stores, plus failure injection.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	emails   map[string]string

	// updateHook runs before each Update; a non-nil return is surfaced
	// instead of performing the write.
	updateHook func(attempt int) error
	updates    int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts: make(map[string]*Account),
		emails:   make(map[string]string),
	}
}

func (s *mockAccountStore) Create(ctx context.Context, account *Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[account.NormalizedEmail]; taken {
		return "", ErrDuplicateEmail
	}

	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = internal.NewAccountID()
	}
	stored.Version = 1
	s.accounts[stored.ID] = stored
	s.emails[stored.NormalizedEmail] = stored.ID
	return stored.ID, nil
}

func (s *mockAccountStore) FindByID(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

func (s *mockAccountStore) FindByEmail(ctx context.Context, normalizedEmail string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[normalizedEmail]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

func (s *mockAccountStore) Update(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates++
	if s.updateHook != nil {
		if err := s.updateHook(s.updates); err != nil {
			return err
		}
	}

	current, ok := s.accounts[account.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if current.Version != account.Version {
		return ErrConcurrencyConflict
	}
	if owner, taken := s.emails[account.NormalizedEmail]; taken && owner != account.ID {
		return ErrDuplicateEmail
	}

	stored := account.Clone()
	stored.Version = current.Version + 1
	if current.NormalizedEmail != stored.NormalizedEmail {
		delete(s.emails, current.NormalizedEmail)
		s.emails[stored.NormalizedEmail] = stored.ID
	}
	s.accounts[stored.ID] = stored
	account.Version = stored.Version
	return nil
}

func (s *mockAccountStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(s.emails, acct.NormalizedEmail)
	delete(s.accounts, id)
	return nil
}

func (s *mockAccountStore) ListAll(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, *acct.Clone())
	}
	return out, nil
}

// raw returns the stored record without cloning, for assertions only.
func (s *mockAccountStore) raw(t *testing.T, id string) *Account {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %q not in store", id)
	}
	return acct
}

func testConfig() Config {
	cfg := defaultConfig()
	// Minimum argon2 parameters keep the test suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *mockAccountStore, *testClock) {
	t.Helper()

	store := newMockAccountStore()
	clock := newTestClock()

	engine, err := New().
		WithConfig(testConfig()).
		WithTokenKey(testKey).
		WithStore(store).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, store, clock
}

// mustCreate registers an account and returns its ID.
func mustCreate(t *testing.T, e *Engine, email, pw string) string {
	t.Helper()
	id, err := e.CreateAccount(context.Background(), email, pw)
	if err != nil {
		t.Fatalf("CreateAccount(%q) failed: %v", email, err)
	}
	return id
}
