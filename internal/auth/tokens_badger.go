// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes. The user index lets DeleteUser revoke without a full scan.
const (
	tokenKeyPrefix     = "token:"
	tokenUserKeyPrefix = "token_user:"
)

// BadgerTokenStore persists tokens in BadgerDB with native TTL expiry.
type BadgerTokenStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadgerTokenStore opens the store at path. An empty path keeps the
// data in memory.
func OpenBadgerTokenStore(path string) (*BadgerTokenStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for tokens: %w", err)
	}
	return &BadgerTokenStore{db: db, now: time.Now}, nil
}

func tokenKey(purpose Purpose, hash string) []byte {
	return []byte(tokenKeyPrefix + string(purpose) + ":" + hash)
}

func tokenUserPrefix(purpose Purpose, userID string) []byte {
	return []byte(tokenUserKeyPrefix + string(purpose) + ":" + userID + ":")
}

// Put stores token for ttl.
func (s *BadgerTokenStore) Put(_ context.Context, purpose Purpose, token, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	hash := hashToken(token)
	data, err := json.Marshal(tokenRecord{UserID: userID, Purpose: purpose, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(tokenKey(purpose, hash), data).WithTTL(ttl)); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		userKey := append(tokenUserPrefix(purpose, userID), hash...)
		if err := txn.SetEntry(badger.NewEntry(userKey, nil).WithTTL(ttl)); err != nil {
			return fmt.Errorf("set token index: %w", err)
		}
		return nil
	})
}

// Get returns the user that holds token.
func (s *BadgerTokenStore) Get(_ context.Context, purpose Purpose, token string) (string, error) {
	var rec tokenRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(purpose, hashToken(token)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return "", err
	}
	// Badger expiry has second granularity.
	if rec.expired(s.now()) {
		return "", ErrTokenNotFound
	}
	return rec.UserID, nil
}

// Take reads and deletes token in one transaction. A transaction that
// loses the race to another Take sees ErrConflict and reports the token as
// gone.
func (s *BadgerTokenStore) Take(_ context.Context, purpose Purpose, token string) (string, error) {
	hash := hashToken(token)
	key := tokenKey(purpose, hash)

	var rec tokenRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
		if err := txn.Delete(append(tokenUserPrefix(purpose, rec.UserID), hash...)); err != nil {
			return fmt.Errorf("delete token index: %w", err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	if rec.expired(s.now()) {
		return "", ErrTokenNotFound
	}
	return rec.UserID, nil
}

// Delete revokes token and its index entry.
func (s *BadgerTokenStore) Delete(ctx context.Context, purpose Purpose, token string) error {
	userID, err := s.Get(ctx, purpose, token)
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	hash := hashToken(token)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(tokenKey(purpose, hash)); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
		if err := txn.Delete(append(tokenUserPrefix(purpose, userID), hash...)); err != nil {
			return fmt.Errorf("delete token index: %w", err)
		}
		return nil
	})
}

// DeleteUser revokes every token of purpose held by userID.
func (s *BadgerTokenStore) DeleteUser(_ context.Context, purpose Purpose, userID string) (int, error) {
	prefix := tokenUserPrefix(purpose, userID)

	var hashes []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			hashes = append(hashes, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list user tokens: %w", err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, h := range hashes {
			if err := txn.Delete(tokenKey(purpose, h)); err != nil {
				return err
			}
			if err := txn.Delete(append(tokenUserPrefix(purpose, userID), h...)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete user tokens: %w", err)
	}
	return len(hashes), nil
}

// Close closes the database.
func (s *BadgerTokenStore) Close() error {
	return s.db.Close()
}

// OpenTokenStore returns the store selected by kind ("badger" or "memory").
func OpenTokenStore(kind, path string) (TokenStore, error) {
	switch kind {
	case "memory":
		return NewMemoryTokenStore(), nil
	case "badger", "":
		return OpenBadgerTokenStore(path)
	default:
		return nil, fmt.Errorf("unknown token store %q", kind)
	}
}
