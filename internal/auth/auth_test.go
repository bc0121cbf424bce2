package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/auth"
	"github.com/geocoder89/recipehub/internal/domain/user"
	"github.com/geocoder89/recipehub/internal/repo/memory"
	"github.com/geocoder89/recipehub/internal/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestManager_GenerateAndParse(t *testing.T) {
	m := auth.NewManager("secret", 0)

	raw, err := m.Generate("u1")
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Nil(t, claims.ExpiresAt)

	_, err = auth.NewManager("other", 0).ParseAndValidate(raw)
	assert.Error(t, err)

	assert.Equal(t, m.Hash(raw), m.Hash(raw))
	assert.NotEqual(t, raw, m.Hash(raw))
}

func TestManager_RejectsExpiredAndForeignTokens(t *testing.T) {
	m := auth.NewManager("secret", time.Minute)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		TokenType: "api",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "j",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	raw, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ParseAndValidate(raw)
	assert.Error(t, err)

	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		TokenType:        "refresh",
		RegisteredClaims: jwt.RegisteredClaims{ID: "j", Subject: "u1"},
	})
	raw, err = wrongType.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ParseAndValidate(raw)
	assert.Error(t, err)
}

func TestTokenIssuer_SingleActiveToken(t *testing.T) {
	issuer := auth.NewTokenIssuer(auth.NewManager("secret", 0), memory.NewTokensRepo())
	ctx := context.Background()

	first, err := issuer.Issue(ctx, "u1")
	require.NoError(t, err)

	id, err := issuer.Resolve(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	second, err := issuer.Issue(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = issuer.Resolve(ctx, first)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = issuer.Resolve(ctx, second)
	assert.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, "u1"))
	_, err = issuer.Resolve(ctx, second)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokenIssuer_ResolveGarbage(t *testing.T) {
	issuer := auth.NewTokenIssuer(auth.NewManager("secret", 0), memory.NewTokensRepo())

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := issuer.Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, "token %q", raw)
	}
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, string, time.Duration) error {
	return errors.New("down")
}
func (failingStore) UserIDByHash(context.Context, string) (string, error) {
	return "", errors.New("down")
}
func (failingStore) DeleteForUser(context.Context, string) error { return nil }

func TestTokenIssuer_StoreErrors(t *testing.T) {
	m := auth.NewManager("secret", 0)
	issuer := auth.NewTokenIssuer(m, failingStore{})

	_, err := issuer.Issue(context.Background(), "u1")
	assert.Error(t, err)

	raw, _ := m.Generate("u1")
	_, err = issuer.Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func seedVerifier(t *testing.T) (*auth.Verifier, *memory.UsersRepo) {
	t.Helper()

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	users := memory.NewUsersRepo()

	hash, err := hasher.Hash("testpass123")
	require.NoError(t, err)

	_, err = users.Create(context.Background(), user.User{
		ID: "u1", Email: "test@example.com", PasswordHash: hash, IsActive: true,
	})
	require.NoError(t, err)

	hash2, _ := hasher.Hash("testpass123")
	_, err = users.Create(context.Background(), user.User{
		ID: "u2", Email: "off@example.com", PasswordHash: hash2, IsActive: false,
	})
	require.NoError(t, err)

	return auth.NewVerifier(users, hasher), users
}

func TestVerifier_Authenticate(t *testing.T) {
	v, _ := seedVerifier(t)
	ctx := context.Background()

	u, err := v.Authenticate(ctx, "test@EXAMPLE.com", "testpass123")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "test@example.com", "badpass"},
		{"unknown email", "nobody@example.com", "testpass123"},
		{"inactive", "off@example.com", "testpass123"},
		{"blank", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Authenticate(ctx, tt.email, tt.password)
			assert.Same(t, apperr.ErrInvalidCredentials, err)
		})
	}
}
