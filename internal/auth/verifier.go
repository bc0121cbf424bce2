package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/domain/user"
	"github.com/geocoder89/recipehub/internal/security"
)

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// Verifier checks email/password pairs. Every rejection is the same
// apperr.ErrInvalidCredentials so callers cannot tell an unknown email from a
// wrong password.
type Verifier struct {
	users  UserLookup
	hasher security.PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewVerifier(users UserLookup, hasher security.PasswordHasher) *Verifier {
	return &Verifier{users: users, hasher: hasher}
}

func (v *Verifier) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return user.User{}, apperr.ErrInvalidCredentials
	}

	u, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn the same bcrypt time as a real comparison
			v.hasher.Verify(v.dummy(), password)
			return user.User{}, apperr.ErrInvalidCredentials
		}
		return user.User{}, apperr.Internal("credential lookup failed", err)
	}

	if !v.hasher.Verify(u.PasswordHash, password) || !u.IsActive {
		return user.User{}, apperr.ErrInvalidCredentials
	}

	return u, nil
}

func (v *Verifier) dummy() string {
	v.dummyOnce.Do(func() {
		h, err := v.hasher.Hash(strings.Repeat("x", 16))
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
