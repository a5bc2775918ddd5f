package credcore

import "errors"

var (
	// ErrDuplicateEmail is an exported constant or variable used by the account engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccountNotFound is an exported constant or variable used by the account engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials is an exported constant or variable used by the account engine.
	// It is returned uniformly for unknown emails and wrong passwords so callers
	// cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is an exported constant or variable used by the account engine.
	ErrWeakPassword = errors.New("password violates policy")
	// ErrInvalidEmail is an exported constant or variable used by the account engine.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidToken is an exported constant or variable used by the account engine.
	// It covers tampering, wrong purpose, wrong payload, stale stamp, and expiry
	// without differentiation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrConcurrencyConflict is an exported constant or variable used by the account engine.
	// It is retryable: the account changed between read and write.
	ErrConcurrencyConflict = errors.New("account modified concurrently")
	// ErrStoreUnavailable is an exported constant or variable used by the account engine.
	// It is retryable: the backing store failed transiently.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the account engine.
	ErrEngineNotReady = errors.New("engine not fully initialized")
)
