package redistore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	credcore "github.com/hollis-labs/credcore"
	"github.com/hollis-labs/credcore/internal"
)

const (
	accountRecordVersionV1 = 1

	flagEmailConfirmed = 1 << 0

	// maxTxRetries bounds WATCH/MULTI retries on key contention before the
	// failure is surfaced as a concurrency conflict.
	maxTxRetries = 5
)

// Store is a Redis-backed [credcore.AccountStore]. Accounts are stored as
// versioned binary records under one key per account, with a separate
// normalized-email index key enforcing uniqueness.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a store writing under the given key prefix ("cc" when empty).
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "cc"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) accountKey(id string) string {
	return s.prefix + ":acct:" + id
}

func (s *Store) emailKey(normalizedEmail string) string {
	return s.prefix + ":email:" + normalizedEmail
}

// Create inserts the account, assigning an ID when the caller left it empty.
// The uniqueness check on the normalized-email index and the two writes run
// in one WATCH/MULTI transaction, so two racing Creates for the same address
// resolve to exactly one winner and a backend failure leaves neither key
// behind.
func (s *Store) Create(ctx context.Context, account *credcore.Account) (string, error) {
	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = internal.NewAccountID()
	}
	stored.Version = 1

	encoded, err := encodeAccount(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
	}

	emailKey := s.emailKey(stored.NormalizedEmail)

	txn := func(tx *redis.Tx) error {
		_, err := tx.Get(ctx, emailKey).Result()
		if err == nil {
			return credcore.ErrDuplicateEmail
		}
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, emailKey, stored.ID, 0)
			pipe.Set(ctx, s.accountKey(stored.ID), encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.redis.Watch(ctx, txn, emailKey)
		if errors.Is(err, redis.TxFailedErr) {
			// A racing Create touched the index key; the re-read either
			// sees the winner (duplicate) or an aborted loser (free).
			continue
		}
		if err != nil {
			return "", mapTxError(err)
		}
		return stored.ID, nil
	}
	return "", credcore.ErrConcurrencyConflict
}

// FindByID returns the account or [credcore.ErrAccountNotFound].
func (s *Store) FindByID(ctx context.Context, id string) (*credcore.Account, error) {
	data, err := s.redis.Get(ctx, s.accountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, credcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
	}

	acct, err := decodeAccount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
	}
	return acct, nil
}

// FindByEmail resolves the normalized-email index and loads the account.
func (s *Store) FindByEmail(ctx context.Context, normalizedEmail string) (*credcore.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(normalizedEmail)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, credcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
	}
	return s.FindByID(ctx, id)
}

// Update writes the account back inside a WATCH/MULTI transaction keyed on
// the record and the target email index. A stale caller Version fails with
// [credcore.ErrConcurrencyConflict]; an address owned by another account
// fails with [credcore.ErrDuplicateEmail]. On success the caller's Version
// is bumped to the stored one.
func (s *Store) Update(ctx context.Context, account *credcore.Account) error {
	acctKey := s.accountKey(account.ID)
	nextEmailKey := s.emailKey(account.NormalizedEmail)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, acctKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return credcore.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}

		current, err := decodeAccount(data)
		if err != nil {
			return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}
		if current.Version != account.Version {
			return credcore.ErrConcurrencyConflict
		}

		emailChanged := current.NormalizedEmail != account.NormalizedEmail
		if emailChanged {
			owner, err := tx.Get(ctx, nextEmailKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
			}
			if err == nil && owner != account.ID {
				return credcore.ErrDuplicateEmail
			}
		}

		next := account.Clone()
		next.Version = current.Version + 1
		encoded, err := encodeAccount(next)
		if err != nil {
			return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, acctKey, encoded, 0)
			if emailChanged {
				pipe.Set(ctx, nextEmailKey, next.ID, 0)
				pipe.Del(ctx, s.emailKey(current.NormalizedEmail))
			}
			return nil
		})
		if err != nil {
			return err
		}

		account.Version = next.Version
		return nil
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.redis.Watch(ctx, txn, acctKey, nextEmailKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return mapTxError(err)
	}
	return credcore.ErrConcurrencyConflict
}

// Delete removes the account record and its email index entry atomically.
func (s *Store) Delete(ctx context.Context, id string) error {
	acctKey := s.accountKey(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, acctKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return credcore.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}

		acct, err := decodeAccount(data)
		if err != nil {
			return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, acctKey)
			pipe.Del(ctx, s.emailKey(acct.NormalizedEmail))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.redis.Watch(ctx, txn, acctKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return mapTxError(err)
	}
	return credcore.ErrConcurrencyConflict
}

// ListAll scans every account key and decodes the records. The scan is not a
// point-in-time snapshot; accounts created or deleted mid-scan may or may not
// appear.
func (s *Store) ListAll(ctx context.Context) ([]credcore.Account, error) {
	var out []credcore.Account

	iter := s.redis.Scan(ctx, 0, s.prefix+":acct:*", 128).Iterator()
	for iter.Next(ctx) {
		data, err := s.redis.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}

		acct, err := decodeAccount(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
		}
		out = append(out, *acct)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
	}
	return out, nil
}

func mapTxError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, credcore.ErrAccountNotFound),
		errors.Is(err, credcore.ErrDuplicateEmail),
		errors.Is(err, credcore.ErrConcurrencyConflict),
		errors.Is(err, credcore.ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", credcore.ErrStoreUnavailable, err)
	}
}

func encodeAccount(acct *credcore.Account) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(accountRecordVersionV1)

	var flags byte
	if acct.EmailConfirmed {
		flags |= flagEmailConfirmed
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, acct.Version); err != nil {
		return nil, err
	}

	for _, field := range []string{
		acct.ID,
		acct.Email,
		acct.NormalizedEmail,
		acct.UserName,
		acct.PasswordHash,
		acct.PhoneNumber,
		acct.SecurityStamp,
	} {
		if len(field) > 65535 {
			return nil, errors.New("account field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeAccount(data []byte) (*credcore.Account, error) {
	buf := bytes.NewReader(data)

	version, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != accountRecordVersionV1 {
		return nil, fmt.Errorf("unsupported account record version %d", version)
	}

	flags, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}

	var acct credcore.Account
	acct.EmailConfirmed = flags&flagEmailConfirmed != 0

	if err := binary.Read(buf, binary.BigEndian, &acct.Version); err != nil {
		return nil, err
	}

	for _, field := range []*string{
		&acct.ID,
		&acct.Email,
		&acct.NormalizedEmail,
		&acct.UserName,
		&acct.PasswordHash,
		&acct.PhoneNumber,
		&acct.SecurityStamp,
	} {
		var n uint16
		if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(buf, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if buf.Len() != 0 {
		return nil, errors.New("trailing bytes in account record")
	}
	return &acct, nil
}
