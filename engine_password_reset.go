package credcore

import "context"

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The caller is responsible for delivering the returned token out of band.
func (e *Engine) RequestPasswordReset(ctx context.Context, accountID string) (string, error) {
	return e.IssueToken(ctx, accountID, PurposePasswordReset, "")
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The new password is checked against policy before the token is consulted,
// so a weak password surfaces ErrWeakPassword even with a bad token. A
// successful reset rotates the security stamp, invalidating every
// outstanding token for the account.
func (e *Engine) ResetPassword(ctx context.Context, accountID, tok, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	encoded, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return ErrWeakPassword
	}

	_, err = e.updateWithRetry(ctx, accountID, func(acct *Account) (bool, error) {
		if err := e.checkToken(acct, tok, PurposePasswordReset, ""); err != nil {
			return false, err
		}
		acct.PasswordHash = encoded
		e.rotateStamp(acct)
		return true, nil
	})
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	return nil
}
