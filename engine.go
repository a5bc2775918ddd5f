package credcore

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/hollis-labs/credcore/internal"
	"github.com/hollis-labs/credcore/password"
	"github.com/hollis-labs/credcore/token"
)

// Engine defines a public type used by credcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	store        AccountStore
	passwordHash *password.Argon2
	tokens       *token.Engine
	metrics      *Metrics
	clock        func() time.Time

	// decoyHash is verified against when an email is unknown so that
	// ValidateCredentials costs the same whether or not the account exists.
	decoyHash string
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.passwordHash != nil && e.tokens != nil
}

// mapStoreError keeps the taxonomy closed: known sentinels and context
// cancellation pass through, everything else becomes ErrStoreUnavailable.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrConcurrencyConflict),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (e *Engine) checkPasswordPolicy(pw string) error {
	policy := e.config.Policy
	if len(pw) < policy.MinLength {
		return ErrWeakPassword
	}

	var hasDigit, hasUpper, hasLower, hasSymbol bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		default:
			hasSymbol = true
		}
	}

	if policy.RequireDigit && !hasDigit {
		return ErrWeakPassword
	}
	if policy.RequireUpper && !hasUpper {
		return ErrWeakPassword
	}
	if policy.RequireLower && !hasLower {
		return ErrWeakPassword
	}
	if policy.RequireSymbol && !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}

// updateWithRetry runs a read-mutate-write cycle against the store, retrying
// a bounded number of times on optimistic-concurrency conflicts. mutate runs
// against a fresh read each attempt, so token checks inside it always see the
// current security stamp. A nil error from mutate with changed == false
// short-circuits without writing.
func (e *Engine) updateWithRetry(ctx context.Context, accountID string, mutate func(acct *Account) (changed bool, err error)) (*Account, error) {
	for attempt := 0; attempt < e.config.Store.MaxConflictRetries; attempt++ {
		acct, err := e.store.FindByID(ctx, accountID)
		if err != nil {
			return nil, mapStoreError(err)
		}

		changed, err := mutate(acct)
		if err != nil {
			return nil, err
		}
		if !changed {
			return acct, nil
		}

		err = e.store.Update(ctx, acct)
		if err == nil {
			return acct, nil
		}
		if errors.Is(err, ErrConcurrencyConflict) {
			e.metricInc(MetricConflictRetry)
			continue
		}
		return nil, mapStoreError(err)
	}

	return nil, ErrConcurrencyConflict
}

func (e *Engine) rotateStamp(acct *Account) {
	acct.SecurityStamp = internal.NewSecurityStamp()
	e.metricInc(MetricStampRotated)
}
