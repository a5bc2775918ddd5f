package credcore

import (
	"errors"
	"time"
)

// Config defines a public type used by credcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Password PasswordConfig
	Policy   PasswordPolicyConfig
	Token    TokenConfig
	Store    StoreConfig
	Metrics  MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by credcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// PasswordPolicyConfig defines a public type used by credcore APIs.
//
// PasswordPolicyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordPolicyConfig struct {
	MinLength     int
	RequireDigit  bool
	RequireUpper  bool
	RequireLower  bool
	RequireSymbol bool
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by credcore APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// Key is the server-held MAC key. It must be at least 32 bytes and is
	// never defaulted; supply it from configuration, not code.
	Key []byte

	ConfirmationTTL time.Duration
	ResetTTL        time.Duration
	EmailChangeTTL  time.Duration
}

// TTLFor describes the ttlfor operation and its observable behavior.
func (c TokenConfig) TTLFor(purpose TokenPurpose) time.Duration {
	switch purpose {
	case PurposeEmailConfirmation:
		return c.ConfirmationTTL
	case PurposePasswordReset:
		return c.ResetTTL
	case PurposeEmailChange:
		return c.EmailChangeTTL
	default:
		return 0
	}
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by credcore APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	// MaxConflictRetries bounds how many times a mutation is re-read and
	// re-applied after ErrConcurrencyConflict before the conflict surfaces.
	MaxConflictRetries int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by credcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Policy: PasswordPolicyConfig{
			MinLength:     10,
			RequireDigit:  true,
			RequireUpper:  false,
			RequireLower:  false,
			RequireSymbol: false,
		},
		Token: TokenConfig{
			ConfirmationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
			EmailChangeTTL:  time.Hour,
		},
		Store: StoreConfig{
			MaxConflictRetries: 4,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Token.Key != nil {
		out.Token.Key = make([]byte, len(cfg.Token.Key))
		copy(out.Token.Key, cfg.Token.Key)
	}
	return out
}

func validateEngineConfig(cfg Config) error {
	if len(cfg.Token.Key) < 32 {
		return errors.New("token key must be at least 32 bytes")
	}
	if cfg.Token.ConfirmationTTL <= 0 || cfg.Token.ResetTTL <= 0 || cfg.Token.EmailChangeTTL <= 0 {
		return errors.New("token validity windows must be positive")
	}
	if cfg.Policy.MinLength < 1 {
		return errors.New("password policy min length must be >= 1")
	}
	if cfg.Store.MaxConflictRetries < 1 {
		return errors.New("store conflict retries must be >= 1")
	}
	return nil
}
