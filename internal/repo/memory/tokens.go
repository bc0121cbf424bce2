package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/recipehub/internal/auth"
)

type tokenEntry struct {
	userID    string
	expiresAt time.Time // zero: no expiry
}

type TokensRepo struct {
	mu     sync.Mutex
	byHash map[string]tokenEntry
	byUser map[string]string // user id -> hash
	now    func() time.Time
}

func NewTokensRepo() *TokensRepo {
	return &TokensRepo{
		byHash: make(map[string]tokenEntry),
		byUser: make(map[string]string),
		now:    time.Now,
	}
}

func (r *TokensRepo) Save(_ context.Context, userID, tokenHash string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byHash, prev)
	}

	e := tokenEntry{userID: userID}
	if ttl > 0 {
		e.expiresAt = r.now().Add(ttl)
	}

	r.byHash[tokenHash] = e
	r.byUser[userID] = tokenHash
	return nil
}

func (r *TokensRepo) UserIDByHash(_ context.Context, tokenHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byHash[tokenHash]
	if !ok {
		return "", auth.ErrTokenNotFound
	}
	if !e.expiresAt.IsZero() && r.now().After(e.expiresAt) {
		delete(r.byHash, tokenHash)
		delete(r.byUser, e.userID)
		return "", auth.ErrTokenNotFound
	}

	return e.userID, nil
}

func (r *TokensRepo) DeleteForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.byUser[userID]; ok {
		delete(r.byHash, h)
		delete(r.byUser, userID)
	}
	return nil
}
