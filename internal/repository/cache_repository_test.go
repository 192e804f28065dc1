package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client), mr
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ledger:dash:all", map[string]int{"count": 3}, time.Minute))

	var out map[string]int
	require.NoError(t, repo.Get(ctx, "ledger:dash:all", &out))
	assert.Equal(t, 3, out["count"])

	mr.FastForward(2 * time.Minute)
	err := repo.Get(ctx, "ledger:dash:all", &out)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ledger:dash:all", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "ledger:dash:branch:b-1", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "other:key", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "ledger:dash:*"))

	assert.False(t, mr.Exists("ledger:dash:all"))
	assert.False(t, mr.Exists("ledger:dash:branch:b-1"))
	assert.True(t, mr.Exists("other:key"))
}

func TestCacheRepositoryDeleteByPatternSpansScanPages(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	for i := 0; i < 3*scanBatch+7; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("ledger:dash:branch:b-%d", i), "{}"))
	}
	require.NoError(t, mr.Set("ledger:report:2024", "{}"))

	require.NoError(t, repo.DeleteByPattern(ctx, "ledger:dash:*"))

	assert.Equal(t, []string{"ledger:report:2024"}, mr.Keys())
}

func TestCacheRepositoryPing(t *testing.T) {
	repo, mr := newCacheRepo(t)
	require.NoError(t, repo.PingContext(context.Background()))

	mr.Close()
	assert.Error(t, repo.PingContext(context.Background()))
}

func TestCacheRepositoryNilClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil)
	var out int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
	assert.Error(t, repo.PingContext(context.Background()))
	assert.NoError(t, repo.Close())
}
