package credcore

import (
	"context"

	"github.com/hollis-labs/credcore/internal"
)

// IssueToken describes the issuetoken operation and its observable behavior.
//
// IssueToken may return an error when input validation, dependency calls, or security checks fail.
// IssueToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// payload carries the new address for PurposeEmailChange and must be empty
// for every other purpose. The token is bound to the account's current
// security stamp; any later stamp rotation invalidates it.
func (e *Engine) IssueToken(ctx context.Context, accountID string, purpose TokenPurpose, payload string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	ttl := e.config.Token.TTLFor(purpose)
	if ttl <= 0 {
		return "", ErrInvalidToken
	}
	if purpose == PurposeEmailChange {
		if !validEmail(payload) {
			return "", ErrInvalidEmail
		}
		// The token carries the normalized form so ApplyEmailChange matches
		// it regardless of the caller's casing.
		payload = internal.NormalizeEmail(payload)
	} else if payload != "" {
		return "", ErrInvalidToken
	}

	acct, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return "", mapStoreError(err)
	}

	tok, err := e.tokens.Mint(acct.ID, purpose, payload, acct.SecurityStamp, ttl)
	if err != nil {
		return "", ErrInvalidToken
	}

	e.metricInc(MetricTokenIssued)
	return tok, nil
}

// InvalidateTokens describes the invalidatetokens operation and its observable behavior.
//
// InvalidateTokens may return an error when input validation, dependency calls, or security checks fail.
// InvalidateTokens does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It rotates the account's security stamp, which silently invalidates every
// outstanding token for the account regardless of purpose.
func (e *Engine) InvalidateTokens(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	_, err := e.updateWithRetry(ctx, accountID, func(acct *Account) (bool, error) {
		e.rotateStamp(acct)
		return true, nil
	})
	return err
}

// checkToken validates tok against the account's current stamp and maps every
// failure onto the undifferentiated ErrInvalidToken.
func (e *Engine) checkToken(acct *Account, tok string, purpose TokenPurpose, payload string) error {
	if err := e.tokens.Validate(tok, acct.ID, purpose, payload, acct.SecurityStamp); err != nil {
		e.metricInc(MetricTokenRejected)
		return ErrInvalidToken
	}
	return nil
}
