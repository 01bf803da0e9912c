// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenStore keeps tokens in process. Tokens are lost on restart.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenRecord
	now    func() time.Time
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]tokenRecord), now: time.Now}
}

func memoryKey(purpose Purpose, token string) string {
	return string(purpose) + ":" + hashToken(token)
}

// Put stores token.
func (s *MemoryTokenStore) Put(_ context.Context, purpose Purpose, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[memoryKey(purpose, token)] = tokenRecord{UserID: userID, Purpose: purpose, ExpiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns the owner of token. Expired entries are dropped.
func (s *MemoryTokenStore) Get(_ context.Context, purpose Purpose, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(purpose, token)
	rec, ok := s.tokens[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	if rec.expired(s.now()) {
		delete(s.tokens, key)
		return "", ErrTokenNotFound
	}
	return rec.UserID, nil
}

// Take returns the owner of token and removes it under the lock.
func (s *MemoryTokenStore) Take(_ context.Context, purpose Purpose, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(purpose, token)
	rec, ok := s.tokens[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(s.tokens, key)
	if rec.expired(s.now()) {
		return "", ErrTokenNotFound
	}
	return rec.UserID, nil
}

// Delete revokes token.
func (s *MemoryTokenStore) Delete(_ context.Context, purpose Purpose, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, memoryKey(purpose, token))
	return nil
}

// DeleteUser revokes all tokens of purpose held by userID.
func (s *MemoryTokenStore) DeleteUser(_ context.Context, purpose Purpose, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, rec := range s.tokens {
		if rec.Purpose == purpose && rec.UserID == userID {
			delete(s.tokens, key)
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *MemoryTokenStore) Close() error {
	return nil
}
