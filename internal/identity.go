package internal

import (
	"strings"

	"github.com/google/uuid"
)

// NewAccountID returns a fresh opaque account identifier.
func NewAccountID() string {
	return uuid.NewString()
}

// NewSecurityStamp returns a fresh stamp value. Stamps are compared for
// equality only; a new value invalidates every token minted under the old one.
func NewSecurityStamp() string {
	return uuid.NewString()
}

// NormalizeEmail produces the canonical uniqueness key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToUpper(strings.TrimSpace(email))
}
