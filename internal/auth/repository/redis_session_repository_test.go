package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisSessionRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisSessionRepository(client)
}

func redisSessionFor(digestChar, hashChar string, ttl time.Duration) *authDomain.Session {
	now := time.Now().UTC()
	return &authDomain.Session{
		TokenHash:      strings.Repeat(hashChar, 64),
		IdentityDigest: strings.Repeat(digestChar, 64),
		OriginIP:       "10.0.0.1",
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

func TestRedisSessionRepository_CreateAndGet(t *testing.T) {
	mr, repo := setupRedis(t)
	ctx := context.Background()
	session := redisSessionFor("b", "a", time.Hour)

	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.GetByTokenHash(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, session.IdentityDigest, got.IdentityDigest)
	assert.Equal(t, session.OriginIP, got.OriginIP)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Millisecond)

	ttl := mr.TTL(sessionKey(session.TokenHash))
	assert.Greater(t, ttl, 59*time.Minute)

	members, err := mr.Members(identityKey(session.IdentityDigest))
	require.NoError(t, err)
	assert.Equal(t, []string{session.TokenHash}, members)

	mr.FastForward(time.Hour + time.Second)
	_, err = repo.GetByTokenHash(ctx, session.TokenHash)
	assert.ErrorIs(t, err, authDomain.ErrSessionNotFound)
}

func TestRedisSessionRepository_CorruptValue(t *testing.T) {
	mr, repo := setupRedis(t)
	hash := strings.Repeat("a", 64)
	require.NoError(t, mr.Set(sessionKey(hash), "{not json"))

	_, err := repo.GetByTokenHash(context.Background(), hash)
	assert.ErrorIs(t, err, authDomain.ErrCorruptSession)

	deleted, err := repo.Delete(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestRedisSessionRepository_Delete(t *testing.T) {
	mr, repo := setupRedis(t)
	ctx := context.Background()
	session := redisSessionFor("b", "a", time.Hour)
	require.NoError(t, repo.Create(ctx, session))

	deleted, err := repo.Delete(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists(sessionKey(session.TokenHash)))

	deleted, err = repo.Delete(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisSessionRepository_DeleteAllFor(t *testing.T) {
	_, repo := setupRedis(t)
	ctx := context.Background()
	first := redisSessionFor("b", "a", time.Hour)
	second := redisSessionFor("b", "c", time.Hour)
	other := redisSessionFor("d", "e", time.Hour)
	for _, s := range []*authDomain.Session{first, second, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	live, err := repo.HasLiveFor(ctx, first.IdentityDigest, time.Now())
	require.NoError(t, err)
	assert.True(t, live)

	n, err := repo.DeleteAllFor(ctx, first.IdentityDigest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	live, err = repo.HasLiveFor(ctx, first.IdentityDigest, time.Now())
	require.NoError(t, err)
	assert.False(t, live)

	live, err = repo.HasLiveFor(ctx, other.IdentityDigest, time.Now())
	require.NoError(t, err)
	assert.True(t, live)

	n, err = repo.DeleteAllFor(ctx, first.IdentityDigest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

// afterListHook runs fn once, right after the first SMEMBERS reply.
type afterListHook struct {
	fired bool
	fn    func(ctx context.Context)
}

func (h *afterListHook) BeforeProcess(ctx context.Context, _ redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *afterListHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	if !h.fired && cmd.Name() == "smembers" {
		h.fired = true
		h.fn(ctx)
	}
	return nil
}

func (h *afterListHook) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *afterListHook) AfterProcessPipeline(context.Context, []redis.Cmder) error {
	return nil
}

func TestRedisSessionRepository_DeleteAllForKeepsConcurrentSession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRedisSessionRepository(client)
	ctx := context.Background()

	listed := redisSessionFor("b", "a", time.Hour)
	late := redisSessionFor("b", "c", time.Hour)
	require.NoError(t, repo.Create(ctx, listed))

	// Another instance creates a session between the listing and the delete.
	client.AddHook(&afterListHook{fn: func(ctx context.Context) {
		require.NoError(t, repo.Create(ctx, late))
	}})

	n, err := repo.DeleteAllFor(ctx, listed.IdentityDigest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	members, err := mr.Members(identityKey(late.IdentityDigest))
	require.NoError(t, err)
	assert.Equal(t, []string{late.TokenHash}, members)

	n, err = repo.DeleteAllFor(ctx, late.IdentityDigest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, mr.Exists(sessionKey(late.TokenHash)))
}

func TestRedisSessionRepository_SweepAndCount(t *testing.T) {
	mr, repo := setupRedis(t)
	ctx := context.Background()
	short := redisSessionFor("b", "a", time.Minute)
	long := redisSessionFor("b", "c", time.Hour)
	require.NoError(t, repo.Create(ctx, short))
	require.NoError(t, repo.Create(ctx, long))

	count, err := repo.CountActive(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	mr.FastForward(2 * time.Minute)

	count, err = repo.CountActive(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	pruned, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	members, err := mr.Members(identityKey(long.IdentityDigest))
	require.NoError(t, err)
	assert.Equal(t, []string{long.TokenHash}, members)
}

func TestRedisSessionRepository_Unavailable(t *testing.T) {
	mr, repo := setupRedis(t)
	mr.Close()

	err := repo.Create(context.Background(), redisSessionFor("b", "a", time.Hour))
	assert.Error(t, err)

	_, err = repo.GetByTokenHash(context.Background(), strings.Repeat("a", 64))
	require.Error(t, err)
	assert.NotErrorIs(t, err, authDomain.ErrSessionNotFound)

	assert.Error(t, repo.Ping(context.Background()))
}

func TestRedisSessionRepository_IndexNeverShrinks(t *testing.T) {
	mr, repo := setupRedis(t)
	ctx := context.Background()
	long := redisSessionFor("b", "a", time.Hour)
	short := redisSessionFor("b", "c", time.Minute)
	require.NoError(t, repo.Create(ctx, long))
	require.NoError(t, repo.Create(ctx, short))

	mr.FastForward(2 * time.Minute)

	live, err := repo.HasLiveFor(ctx, long.IdentityDigest, time.Now())
	require.NoError(t, err)
	assert.True(t, live)
}
