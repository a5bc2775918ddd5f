package credcore

import (
	"context"

	"github.com/hollis-labs/credcore/token"
)

// TokenPurpose scopes a minted token to exactly one lifecycle operation.
//
//	Docs: docs/tokens.md
type TokenPurpose = token.Purpose

const (
	// PurposeEmailConfirmation is an exported constant or variable used by the account engine.
	PurposeEmailConfirmation = token.PurposeEmailConfirmation
	// PurposePasswordReset is an exported constant or variable used by the account engine.
	PurposePasswordReset = token.PurposePasswordReset
	// PurposeEmailChange is an exported constant or variable used by the account engine.
	PurposeEmailChange = token.PurposeEmailChange
)

// Account is the full account record held by an [AccountStore]. Email is the
// case-preserved display value; NormalizedEmail is the uniqueness key.
// SecurityStamp versions every outstanding token: rotating it invalidates them
// all. Version is the optimistic-concurrency counter owned by the store.
type Account struct {
	ID              string
	Email           string
	NormalizedEmail string
	UserName        string
	PasswordHash    string
	PhoneNumber     string
	EmailConfirmed  bool
	SecurityStamp   string
	Version         uint64
}

// Clone returns a deep copy so store implementations never hand out aliased records.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// AccountStore is the persistence interface that callers must implement (or
// take from store/memstore, store/redistore) to integrate credcore with their
// database. Implementations must enforce two contracts:
//
//   - Create and Update reject a normalized email already held by another
//     account with [ErrDuplicateEmail]; the check and write are atomic.
//   - Update compares the caller's Version against the stored one and fails
//     with [ErrConcurrencyConflict] instead of silently overwriting.
//
//	Docs: docs/store.md
type AccountStore interface {
	Create(ctx context.Context, account *Account) (string, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, normalizedEmail string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]Account, error)
}

// AccountInfo is the plain data record returned by read operations. It never
// exposes the password hash or the security stamp.
type AccountInfo struct {
	ID             string
	Email          string
	UserName       string
	PhoneNumber    string
	EmailConfirmed bool
}

func infoFromAccount(acct *Account) AccountInfo {
	return AccountInfo{
		ID:             acct.ID,
		Email:          acct.Email,
		UserName:       acct.UserName,
		PhoneNumber:    acct.PhoneNumber,
		EmailConfirmed: acct.EmailConfirmed,
	}
}
