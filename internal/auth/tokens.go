package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/recipehub/internal/apperr"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenStore keeps at most one active token hash per user.
type TokenStore interface {
	// Save replaces any previous token of userID. ttl 0 means no expiry.
	Save(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
	// UserIDByHash returns ErrTokenNotFound for unknown or replaced hashes.
	UserIDByHash(ctx context.Context, tokenHash string) (string, error)
	DeleteForUser(ctx context.Context, userID string) error
}

type TokenIssuer struct {
	jwt   *Manager
	store TokenStore
}

func NewTokenIssuer(m *Manager, store TokenStore) *TokenIssuer {
	return &TokenIssuer{jwt: m, store: store}
}

func (i *TokenIssuer) Issue(ctx context.Context, userID string) (string, error) {
	raw, err := i.jwt.Generate(userID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := i.store.Save(ctx, userID, i.jwt.Hash(raw), i.jwt.ttl); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	return raw, nil
}

// Resolve maps a presented token to its user id. Any failure is reported as
// apperr.ErrUnauthorized; store outages surface as internal errors.
func (i *TokenIssuer) Resolve(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", apperr.ErrUnauthorized
	}

	claims, err := i.jwt.ParseAndValidate(raw)
	if err != nil {
		return "", apperr.ErrUnauthorized
	}

	userID, err := i.store.UserIDByHash(ctx, i.jwt.Hash(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", apperr.ErrUnauthorized
		}
		return "", apperr.Internal("token lookup failed", err)
	}

	if userID != claims.Subject {
		return "", apperr.ErrUnauthorized
	}

	return userID, nil
}

func (i *TokenIssuer) Revoke(ctx context.Context, userID string) error {
	return i.store.DeleteForUser(ctx, userID)
}
