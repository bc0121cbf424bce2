// Package identity owns user accounts: creation, profile edits and
// password changes. Only bcrypt hashes are ever stored.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/recipehub/internal/apperr"
	"github.com/geocoder89/recipehub/internal/domain/user"
	"github.com/geocoder89/recipehub/internal/security"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
}

type Service struct {
	users  UserStore
	hasher security.PasswordHasher
	log    *slog.Logger
}

func NewService(users UserStore, hasher security.PasswordHasher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, hasher: hasher, log: log}
}

func (s *Service) CreateUser(ctx context.Context, email, password string, opts user.CreateOptions) (user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" {
		return user.User{}, apperr.Invalid("email", "required", "Users must have an email address.")
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(opts.Name),
		IsActive:     opts.Active(),
		IsStaff:      opts.IsStaff,
		IsSuperuser:  opts.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, apperr.Invalid("email", "unique", "user with this email already exists.")
		}
		return user.User{}, apperr.Internal("create user", err)
	}

	s.log.InfoContext(ctx, "user created", "user_id", created.ID, "superuser", created.IsSuperuser)
	return created, nil
}

func (s *Service) CreateSuperuser(ctx context.Context, email, password string) (user.User, error) {
	return s.CreateUser(ctx, email, password, user.CreateOptions{IsStaff: true, IsSuperuser: true})
}

// EnsureSuperuser creates the admin account once. An existing account with
// that email is left as is.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	_, err = s.CreateUser(ctx, email, password, user.CreateOptions{Name: name, IsStaff: true, IsSuperuser: true})
	if errors.Is(err, apperr.ErrValidation) {
		// lost a race with another instance
		return nil
	}
	return err
}

func (s *Service) Get(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.NotFound("user not found")
		}
		return user.User{}, apperr.Internal("get user", err)
	}
	return u, nil
}

func (s *Service) SetPassword(ctx context.Context, userID, password string) error {
	_, err := s.UpdateProfile(ctx, userID, nil, &password)
	return err
}

// UpdateProfile changes the name and/or password. Nil arguments are left alone.
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, password *string) (user.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	if name != nil {
		u.Name = strings.TrimSpace(*name)
	}
	if password != nil {
		hash, err := s.hashPassword(*password)
		if err != nil {
			return user.User{}, err
		}
		u.PasswordHash = hash
	}

	updated, err := s.users.Update(ctx, u)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.NotFound("user not found")
		}
		return user.User{}, apperr.Internal("update user", err)
	}

	return updated, nil
}

// hashPassword checks the bcrypt byte limit up front; validator's max counts
// runes, so multibyte passwords can pass binding and still be too long.
func (s *Service) hashPassword(password string) (string, error) {
	if len(password) > security.MaxPasswordBytes {
		return "", tooLong()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return "", tooLong()
		}
		return "", apperr.Internal("hash password", err)
	}
	return hash, nil
}

func tooLong() error {
	return apperr.Invalid("password", "max", fmt.Sprintf("Ensure this field has no more than %d bytes.", security.MaxPasswordBytes))
}
