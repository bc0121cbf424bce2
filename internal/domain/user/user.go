package user

import (
	"errors"
	"strings"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	IsActive     bool      `json:"-"`
	IsStaff      bool      `json:"-"`
	IsSuperuser  bool      `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// CreateOptions lists the optional fields accepted at user creation.
// A nil IsActive means active.
type CreateOptions struct {
	Name        string
	IsActive    *bool
	IsStaff     bool
	IsSuperuser bool
}

func (o CreateOptions) Active() bool {
	if o.IsActive == nil {
		return true
	}
	return *o.IsActive
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

// NormalizeEmail trims the address and lower-cases its domain part. The local
// part is kept as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// Profile is the public view returned by /users/ and /users/me/.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u User) Profile() Profile {
	return Profile{Email: u.Email, Name: u.Name}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Name     string `json:"name" binding:"omitempty,max=255"`
}

type UpdateMeRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Password *string `json:"password" binding:"omitempty,min=6,max=72"`
}

type TokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
