package memstore

import (
	"context"
	"sync"

	credcore "github.com/hollis-labs/credcore"
	"github.com/hollis-labs/credcore/internal"
)

// Store is an in-memory [credcore.AccountStore] guarded by a single mutex.
// It is intended for tests and single-process deployments; records do not
// survive a restart.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*credcore.Account
	emails   map[string]string
}

// New returns an empty in-memory account store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*credcore.Account),
		emails:   make(map[string]string),
	}
}

// Create inserts the account, assigning an ID when the caller left it empty.
// The normalized-email uniqueness check and the insert happen under one lock,
// so two racing Creates for the same address cannot both succeed.
func (s *Store) Create(ctx context.Context, account *credcore.Account) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[account.NormalizedEmail]; taken {
		return "", credcore.ErrDuplicateEmail
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

// FindByID returns a copy of the account or [credcore.ErrAccountNotFound].
func (s *Store) FindByID(ctx context.Context, id string) (*credcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, credcore.ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// FindByEmail looks up an account by its normalized email.
func (s *Store) FindByEmail(ctx context.Context, normalizedEmail string) (*credcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[normalizedEmail]
	if !ok {
		return nil, credcore.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

// Update writes the account back if account.Version still matches the stored
// record, bumping the stored version by one. A stale version fails with
// [credcore.ErrConcurrencyConflict]; a normalized email claimed by a
// different account fails with [credcore.ErrDuplicateEmail].
func (s *Store) Update(ctx context.Context, account *credcore.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return credcore.ErrAccountNotFound
	}
	if current.Version != account.Version {
		return credcore.ErrConcurrencyConflict
	}
	if owner, taken := s.emails[account.NormalizedEmail]; taken && owner != account.ID {
		return credcore.ErrDuplicateEmail
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

// Delete removes the account and its email index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return credcore.ErrAccountNotFound
	}

	delete(s.emails, acct.NormalizedEmail)
	delete(s.accounts, id)
	return nil
}

// ListAll returns a snapshot copy of every account, in no particular order.
func (s *Store) ListAll(ctx context.Context) ([]credcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]credcore.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, *acct.Clone())
	}
	return out, nil
}
