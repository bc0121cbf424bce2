package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/recipehub/internal/auth"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokensRepo keeps one auth_tokens row per user. Expiry is carried by the
// token's own exp claim, so ttl is not stored.
type TokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *TokensRepo {
	return &TokensRepo{pool: pool, prom: prom}
}

func (r *TokensRepo) Save(ctx context.Context, userID, tokenHash string, _ time.Duration) error {
	err := observe(r.prom, "tokens.save", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO auth_tokens (user_id, token_hash, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id)
			DO UPDATE SET token_hash = EXCLUDED.token_hash, created_at = EXCLUDED.created_at
		`, userID, tokenHash)
		return err
	})
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *TokensRepo) UserIDByHash(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	var missing bool

	err := observe(r.prom, "tokens.lookup", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT user_id FROM auth_tokens WHERE token_hash = $1`,
			tokenHash,
		).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	if missing {
		return "", auth.ErrTokenNotFound
	}

	return userID, nil
}

func (r *TokensRepo) DeleteForUser(ctx context.Context, userID string) error {
	return observe(r.prom, "tokens.delete", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID)
		return err
	})
}
