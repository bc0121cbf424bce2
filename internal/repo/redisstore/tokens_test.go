package redisstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/recipehub/internal/auth"
	"github.com/geocoder89/recipehub/internal/redisclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*TokensRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisclient.New(redisclient.Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))

	return NewTokensRepo(client.Raw(), "test:"), mr
}

func TestTokensRepo_SaveReplacesPrevious(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "h1", 0))
	require.NoError(t, repo.Save(ctx, "u1", "h2", 0))

	assert.False(t, mr.Exists("test:token:h1"))

	_, err := repo.UserIDByHash(ctx, "h1")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	id, err := repo.UserIDByHash(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}

func TestTokensRepo_ConcurrentSavesKeepOneToken(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "h0", 0))

	const logins = 8
	var wg sync.WaitGroup
	errs := make(chan error, logins)
	for i := 1; i <= logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Save(ctx, "u1", fmt.Sprintf("h%d", i), 0)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var live []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "test:token:") {
			live = append(live, k)
		}
	}
	require.Len(t, live, 1, "live token keys: %v", live)

	current, err := mr.Get("test:user:u1:token")
	require.NoError(t, err)
	assert.Equal(t, "test:token:"+current, live[0])
}

func TestTokensRepo_TTL(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "h1", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:token:h1"))

	mr.FastForward(2 * time.Minute)

	_, err := repo.UserIDByHash(ctx, "h1")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestTokensRepo_DeleteForUser(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteForUser(ctx, "nobody"))

	require.NoError(t, repo.Save(ctx, "u1", "h1", 0))
	require.NoError(t, repo.DeleteForUser(ctx, "u1"))

	assert.False(t, mr.Exists("test:token:h1"))
	assert.False(t, mr.Exists("test:user:u1:token"))
}
