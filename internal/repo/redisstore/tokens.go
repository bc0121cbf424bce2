// Package redisstore keeps bearer token hashes in Redis.
//
// Layout:
//
//	token:<hash>     -> user id
//	user:<id>:token  -> hash
//
// Both keys share the token's ttl (none when ttl is 0).
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/recipehub/internal/auth"
	"github.com/redis/go-redis/v9"
)

type TokensRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewTokensRepo(rdb *redis.Client, prefix string) *TokensRepo {
	return &TokensRepo{rdb: rdb, prefix: prefix}
}

func (r *TokensRepo) hashKey(hash string) string  { return r.prefix + "token:" + hash }
func (r *TokensRepo) userKey(userID string) string { return r.prefix + "user:" + userID + ":token" }

// saveAttempts bounds WATCH retries; each retry means another Save for the
// same user committed in between.
const saveAttempts = 16

// Save makes tokenHash the user's only token. The previous hash is read under
// WATCH so two racing logins cannot both keep a live token.
func (r *TokensRepo) Save(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	userKey := r.userKey(userID)

	swap := func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read previous token: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prev != "" {
				pipe.Del(ctx, r.hashKey(prev))
			}
			pipe.Set(ctx, r.hashKey(tokenHash), userID, ttl)
			pipe.Set(ctx, userKey, tokenHash, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < saveAttempts; i++ {
		err := r.rdb.Watch(ctx, swap, userKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		return nil
	}

	return fmt.Errorf("save token: %w", redis.TxFailedErr)
}

func (r *TokensRepo) UserIDByHash(ctx context.Context, tokenHash string) (string, error) {
	userID, err := r.rdb.Get(ctx, r.hashKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrTokenNotFound
		}
		return "", fmt.Errorf("lookup token: %w", err)
	}
	return userID, nil
}

func (r *TokensRepo) DeleteForUser(ctx context.Context, userID string) error {
	prev, err := r.rdb.Get(ctx, r.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read token: %w", err)
	}

	return r.rdb.Del(ctx, r.hashKey(prev), r.userKey(userID)).Err()
}
