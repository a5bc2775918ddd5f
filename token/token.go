package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const (
	recordVersionV1 byte = 1
	minKeyLength         = 32
	macSize              = sha256.Size
	maxFieldLength       = 65535
)

// ErrInvalid is the single error returned for every validation failure:
// tampering, wrong purpose, wrong payload, stale stamp, and expiry.
// Callers never learn which check failed.
var ErrInvalid = errors.New("invalid token")

// Purpose scopes a token to exactly one operation type.
//
// Purpose instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Purpose uint8

const (
	// PurposeEmailConfirmation is an exported constant or variable used by the account engine.
	PurposeEmailConfirmation Purpose = iota + 1
	// PurposePasswordReset is an exported constant or variable used by the account engine.
	PurposePasswordReset
	// PurposeEmailChange is an exported constant or variable used by the account engine.
	PurposeEmailChange
)

// String describes the string operation and its observable behavior.
func (p Purpose) String() string {
	switch p {
	case PurposeEmailConfirmation:
		return "email_confirmation"
	case PurposePasswordReset:
		return "password_reset"
	case PurposeEmailChange:
		return "email_change"
	default:
		return "unknown"
	}
}

func (p Purpose) known() bool {
	switch p {
	case PurposeEmailConfirmation, PurposePasswordReset, PurposeEmailChange:
		return true
	default:
		return false
	}
}

type record struct {
	AccountID string
	Purpose   Purpose
	Payload   string
	Stamp     string
	ExpiresAt int64
}

// Engine mints and validates stateless, purpose-bound tokens. Validity is
// recomputed from account state at verification time; no token is ever stored.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	key []byte
	now func() time.Time
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(key []byte, now func() time.Time) (*Engine, error) {
	if len(key) < minKeyLength {
		return nil, errors.New("token key must be at least 32 bytes")
	}
	if now == nil {
		now = time.Now
	}

	owned := make([]byte, len(key))
	copy(owned, key)

	return &Engine{key: owned, now: now}, nil
}

// Mint describes the mint operation and its observable behavior.
//
// Mint may return an error when input validation, dependency calls, or security checks fail.
// Mint does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Mint(accountID string, purpose Purpose, payload, stamp string, ttl time.Duration) (string, error) {
	if accountID == "" {
		return "", errors.New("token account id must not be empty")
	}
	if !purpose.known() {
		return "", errors.New("unknown token purpose")
	}
	if stamp == "" {
		return "", errors.New("token stamp must not be empty")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	encoded, err := encodeRecord(&record{
		AccountID: accountID,
		Purpose:   purpose,
		Payload:   payload,
		Stamp:     stamp,
		ExpiresAt: e.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(encoded)
	signed := mac.Sum(encoded)

	return base64.RawURLEncoding.EncodeToString(signed), nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(tok, accountID string, purpose Purpose, payload, stamp string) error {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return ErrInvalid
	}
	if len(raw) <= macSize {
		return ErrInvalid
	}

	encoded := raw[:len(raw)-macSize]
	providedMAC := raw[len(raw)-macSize:]

	mac := hmac.New(sha256.New, e.key)
	mac.Write(encoded)
	if !hmac.Equal(mac.Sum(nil), providedMAC) {
		return ErrInvalid
	}

	rec, err := decodeRecord(encoded)
	if err != nil {
		return ErrInvalid
	}

	// Field comparisons are constant time so a forged token reveals nothing
	// about which claim was wrong.
	ok := subtle.ConstantTimeCompare([]byte(rec.AccountID), []byte(accountID)) == 1
	ok = subtle.ConstantTimeCompare([]byte(rec.Payload), []byte(payload)) == 1 && ok
	ok = subtle.ConstantTimeCompare([]byte(rec.Stamp), []byte(stamp)) == 1 && ok
	ok = rec.Purpose == purpose && ok
	if !ok {
		return ErrInvalid
	}

	if e.now().Unix() > rec.ExpiresAt {
		return ErrInvalid
	}

	return nil
}

func encodeRecord(rec *record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	buf.WriteByte(byte(rec.Purpose))

	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{rec.AccountID, rec.Payload, rec.Stamp} {
		if len(field) > maxFieldLength {
			return nil, errors.New("token record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errors.New("invalid token record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	rec := &record{Purpose: Purpose(purpose)}
	if !rec.Purpose.known() {
		return nil, errors.New("invalid token record purpose")
	}

	if err := binary.Read(reader, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return nil, err
	}

	fields := [3]*string{&rec.AccountID, &rec.Payload, &rec.Stamp}
	for _, field := range fields {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}

		value := make([]byte, length)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}
		*field = string(value)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing token record bytes")
	}

	return rec, nil
}
