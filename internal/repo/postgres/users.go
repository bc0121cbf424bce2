package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/recipehub/internal/domain/user"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, name, is_active, is_staff, is_superuser, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := observe(r.prom, "users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.IsActive, u.IsStaff, u.IsSuperuser, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
}

// Update persists name, password hash and flags. Email and id never change.
func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	return r.queryUser(ctx, "users.update",
		`UPDATE users
		SET name = $2,
			password_hash = $3,
			is_active = $4,
			is_staff = $5,
			is_superuser = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Name, u.PasswordHash, u.IsActive, u.IsStaff, u.IsSuperuser,
	)
}

// queryUser runs a single-row user query. A miss is reported as
// user.ErrNotFound without counting as a DB error.
func (r *UsersRepo) queryUser(ctx context.Context, op, sql string, args ...any) (user.User, error) {
	var u user.User
	var lookupErr error

	err := observe(r.prom, op, func() error {
		u, lookupErr = scanUser(r.pool.QueryRow(ctx, sql, args...))
		if errors.Is(lookupErr, user.ErrNotFound) {
			return nil
		}
		return lookupErr
	})
	if err != nil {
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if lookupErr != nil {
		return user.User{}, lookupErr
	}

	return u, nil
}
