package credcore

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/hollis-labs/credcore/internal"
	"github.com/hollis-labs/credcore/password"
)

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateAccount(ctx context.Context, email, plaintext string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if !validEmail(email) {
		return "", ErrInvalidEmail
	}
	if err := e.checkPasswordPolicy(plaintext); err != nil {
		return "", err
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return "", ErrWeakPassword
	}

	acct := &Account{
		Email:           email,
		NormalizedEmail: internal.NormalizeEmail(email),
		UserName:        email,
		PasswordHash:    hash,
		EmailConfirmed:  false,
		SecurityStamp:   internal.NewSecurityStamp(),
	}

	id, err := e.store.Create(ctx, acct)
	if err != nil {
		mapped := mapStoreError(err)
		if errors.Is(mapped, ErrDuplicateEmail) {
			e.metricInc(MetricAccountDuplicate)
		}
		return "", mapped
	}

	e.metricInc(MetricAccountCreated)
	return id, nil
}

// ValidateCredentials describes the validatecredentials operation and its observable behavior.
//
// ValidateCredentials may return an error when input validation, dependency calls, or security checks fail.
// ValidateCredentials does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateCredentials(ctx context.Context, email, plaintext string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}()
	}
	if email == "" || plaintext == "" {
		e.metricInc(MetricLoginFailure)
		return "", ErrInvalidCredentials
	}

	acct, err := e.store.FindByEmail(ctx, internal.NormalizeEmail(email))
	if err != nil {
		mapped := mapStoreError(err)
		if !errors.Is(mapped, ErrAccountNotFound) {
			return "", mapped
		}
		// Burn a verification against the decoy hash so an unknown email
		// costs the same as a wrong password.
		_, _ = e.passwordHash.Verify(plaintext, e.decoyHash)
		e.metricInc(MetricLoginFailure)
		return "", ErrInvalidCredentials
	}

	result, err := e.passwordHash.Verify(plaintext, acct.PasswordHash)
	if err != nil || result == password.NoMatch {
		e.metricInc(MetricLoginFailure)
		return "", ErrInvalidCredentials
	}

	if result == password.MatchNeedsRehash && e.config.Password.UpgradeOnLogin {
		// Rehash update is best-effort and must not block successful login.
		if err := e.upgradePasswordHash(ctx, acct.ID, plaintext); err != nil {
			log.Print("credcore: password hash upgrade update failed")
		} else {
			e.metricInc(MetricPasswordRehashed)
		}
	}

	e.metricInc(MetricLoginSuccess)
	return acct.ID, nil
}

func (e *Engine) upgradePasswordHash(ctx context.Context, accountID, plaintext string) error {
	upgraded, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return err
	}

	// The stamp is untouched: a parameter upgrade does not change the
	// credential and must not invalidate outstanding tokens.
	_, err = e.updateWithRetry(ctx, accountID, func(acct *Account) (bool, error) {
		result, verr := e.passwordHash.Verify(plaintext, acct.PasswordHash)
		if verr != nil || result != password.MatchNeedsRehash {
			return false, nil
		}
		acct.PasswordHash = upgraded
		return true, nil
	})
	return err
}

// GetAccount describes the getaccount operation and its observable behavior.
//
// GetAccount may return an error when input validation, dependency calls, or security checks fail.
// GetAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (*AccountInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	acct, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	info := infoFromAccount(acct)
	return &info, nil
}

// ListAccounts describes the listaccounts operation and its observable behavior.
//
// ListAccounts may return an error when input validation, dependency calls, or security checks fail.
// ListAccounts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListAccounts(ctx context.Context) ([]AccountInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	accounts, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}

	infos := make([]AccountInfo, 0, len(accounts))
	for i := range accounts {
		infos = append(infos, infoFromAccount(&accounts[i]))
	}
	return infos, nil
}

// UpdatePhoneNumber describes the updatephonenumber operation and its observable behavior.
//
// UpdatePhoneNumber may return an error when input validation, dependency calls, or security checks fail.
// UpdatePhoneNumber does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdatePhoneNumber(ctx context.Context, accountID, phoneNumber string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	// Phone is not a security-sensitive field: no token is required and the
	// security stamp is left alone, so outstanding tokens stay valid.
	updated := false
	_, err := e.updateWithRetry(ctx, accountID, func(acct *Account) (bool, error) {
		if strings.EqualFold(acct.PhoneNumber, phoneNumber) {
			return false, nil
		}
		acct.PhoneNumber = phoneNumber
		updated = true
		return true, nil
	})
	if err != nil {
		return err
	}

	if updated {
		e.metricInc(MetricPhoneUpdated)
	}
	return nil
}

// DeleteAccount describes the deleteaccount operation and its observable behavior.
//
// DeleteAccount may return an error when input validation, dependency calls, or security checks fail.
// DeleteAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteAccount(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.store.Delete(ctx, accountID); err != nil {
		return mapStoreError(err)
	}

	e.metricInc(MetricAccountDeleted)
	return nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
