package credcore

import (
	"context"
	"strings"

	"github.com/hollis-labs/credcore/internal"
)

// ConfirmEmail describes the confirmemail operation and its observable behavior.
//
// ConfirmEmail may return an error when input validation, dependency calls, or security checks fail.
// ConfirmEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// An already-confirmed account succeeds idempotently without consulting the
// token. A successful confirmation rotates the security stamp, so the same
// token cannot confirm twice.
func (e *Engine) ConfirmEmail(ctx context.Context, accountID, tok string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	confirmed := false
	_, err := e.updateWithRetry(ctx, accountID, func(acct *Account) (bool, error) {
		if acct.EmailConfirmed {
			return false, nil
		}
		if err := e.checkToken(acct, tok, PurposeEmailConfirmation, ""); err != nil {
			return false, err
		}
		acct.EmailConfirmed = true
		e.rotateStamp(acct)
		confirmed = true
		return true, nil
	})
	if err != nil {
		return err
	}

	if confirmed {
		e.metricInc(MetricEmailConfirmed)
	}
	return nil
}

// RequestEmailChange describes the requestemailchange operation and its observable behavior.
//
// RequestEmailChange may return an error when input validation, dependency calls, or security checks fail.
// RequestEmailChange does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It mints an EmailChange token carrying the normalized new address as its
// payload. When the account already holds that address (case-insensitively)
// the call is a no-op and returns an empty token.
func (e *Engine) RequestEmailChange(ctx context.Context, accountID, newEmail string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if !validEmail(newEmail) {
		return "", ErrInvalidEmail
	}

	acct, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return "", mapStoreError(err)
	}

	normalized := internal.NormalizeEmail(newEmail)
	if acct.NormalizedEmail == normalized {
		return "", nil
	}

	tok, err := e.tokens.Mint(acct.ID, PurposeEmailChange, normalized, acct.SecurityStamp, e.config.Token.EmailChangeTTL)
	if err != nil {
		return "", ErrInvalidToken
	}

	e.metricInc(MetricTokenIssued)
	e.metricInc(MetricEmailChangeRequested)
	return tok, nil
}

// ApplyEmailChange describes the applyemailchange operation and its observable behavior.
//
// ApplyEmailChange may return an error when input validation, dependency calls, or security checks fail.
// ApplyEmailChange does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The token's payload must equal newEmail's normalized form; a token minted
// for one address cannot apply a different one. The store rejects the write
// with ErrDuplicateEmail if another account claimed the address meanwhile.
func (e *Engine) ApplyEmailChange(ctx context.Context, accountID, tok, newEmail string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if !validEmail(newEmail) {
		return ErrInvalidEmail
	}

	normalized := internal.NormalizeEmail(newEmail)
	applied := false
	_, err := e.updateWithRetry(ctx, accountID, func(acct *Account) (bool, error) {
		if err := e.checkToken(acct, tok, PurposeEmailChange, normalized); err != nil {
			return false, err
		}
		if acct.NormalizedEmail == normalized && strings.EqualFold(acct.Email, newEmail) {
			return false, nil
		}
		acct.Email = newEmail
		acct.NormalizedEmail = normalized
		acct.UserName = newEmail
		e.rotateStamp(acct)
		applied = true
		return true, nil
	})
	if err != nil {
		return err
	}

	if applied {
		e.metricInc(MetricEmailChangeApplied)
	}
	return nil
}
