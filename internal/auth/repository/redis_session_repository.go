package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

const (
	sessionKeyPrefix  = "session:"
	identityKeyPrefix = "identity_sessions:"
	scanBatch         = 500
)

type redisSession struct {
	TokenHash      string    `json:"token_hash"`
	IdentityDigest string    `json:"identity_digest"`
	OriginIP       string    `json:"origin_ip"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// RedisSessionRepository implements Session persistence for Redis.
//
// Each session is a JSON string under session:<hash> that expires with the
// session. identity_sessions:<digest> is a set of the identity's token hashes;
// members whose session key is gone are pruned lazily and by DeleteExpired.
type RedisSessionRepository struct {
	client *redis.Client
}

func sessionKey(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

func identityKey(identityDigest string) string {
	return identityKeyPrefix + identityDigest
}

// Create stores a new Session with its expiry and indexes it under its identity.
func (r *RedisSessionRepository) Create(ctx context.Context, session *authDomain.Session) error {
	data, err := json.Marshal(redisSession{
		TokenHash:      session.TokenHash,
		IdentityDigest: session.IdentityDigest,
		OriginIP:       session.OriginIP,
		CreatedAt:      session.CreatedAt.UTC(),
		ExpiresAt:      session.ExpiresAt.UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session")
	}

	idx := identityKey(session.IdentityDigest)

	// The index must outlive every session it lists; never shorten its expiry.
	extendIndex := true
	if ttl, err := r.client.PTTL(ctx, idx).Result(); err == nil && ttl > 0 {
		extendIndex = time.Now().Add(ttl).Before(session.ExpiresAt)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.TokenHash), data, 0)
		pipe.ExpireAt(ctx, sessionKey(session.TokenHash), session.ExpiresAt)
		pipe.SAdd(ctx, idx, session.TokenHash)
		if extendIndex {
			pipe.ExpireAt(ctx, idx, session.ExpiresAt)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByTokenHash retrieves a Session by token hash. Returns ErrSessionNotFound if absent
// and ErrCorruptSession if the stored value cannot be decoded or validated.
func (r *RedisSessionRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*authDomain.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	var doc redisSession
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(authDomain.ErrCorruptSession, err.Error())
	}

	session := &authDomain.Session{
		TokenHash:      doc.TokenHash,
		IdentityDigest: doc.IdentityDigest,
		OriginIP:       doc.OriginIP,
		CreatedAt:      doc.CreatedAt,
		ExpiresAt:      doc.ExpiresAt,
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a Session and reports whether it existed.
func (r *RedisSessionRepository) Delete(ctx context.Context, tokenHash string) (bool, error) {
	session, err := r.GetByTokenHash(ctx, tokenHash)
	if err != nil && !errors.Is(err, authDomain.ErrSessionNotFound) && !errors.Is(err, authDomain.ErrCorruptSession) {
		return false, err
	}

	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, sessionKey(tokenHash))
		if session != nil {
			pipe.SRem(ctx, identityKey(session.IdentityDigest), tokenHash)
		}
		return nil
	})
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete session")
	}
	return del.Val() > 0, nil
}

// DeleteAllFor removes every Session of an identity digest.
func (r *RedisSessionRepository) DeleteAllFor(ctx context.Context, identityDigest string) (int64, error) {
	idx := identityKey(identityDigest)

	hashes, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to list identity sessions")
	}

	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	members := make([]interface{}, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, sessionKey(h))
		members = append(members, h)
	}

	// Only the listed hashes leave the index; a session created meanwhile keeps its entry.
	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, idx, members...)
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete sessions")
	}
	return del.Val(), nil
}

// HasLiveFor reports whether any indexed Session of the identity still exists.
// Redis expires session keys on its own, so an existing key is a live session.
func (r *RedisSessionRepository) HasLiveFor(
	ctx context.Context,
	identityDigest string,
	_ time.Time,
) (bool, error) {
	hashes, err := r.client.SMembers(ctx, identityKey(identityDigest)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to list identity sessions")
	}
	if len(hashes) == 0 {
		return false, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, sessionKey(h))
	}
	n, err := r.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check live session")
	}
	return n > 0, nil
}

// DeleteExpired prunes index entries whose session key Redis has already expired
// and returns how many were pruned.
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64

	iter := r.client.Scan(ctx, 0, identityKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		idx := iter.Val()
		hashes, err := r.client.SMembers(ctx, idx).Result()
		if err != nil {
			return pruned, apperrors.Wrap(err, "failed to list identity sessions")
		}
		for _, h := range hashes {
			exists, err := r.client.Exists(ctx, sessionKey(h)).Result()
			if err != nil {
				return pruned, apperrors.Wrap(err, "failed to check session")
			}
			if exists > 0 {
				continue
			}
			if err := r.client.SRem(ctx, idx, h).Err(); err != nil {
				return pruned, apperrors.Wrap(err, "failed to prune session index")
			}
			pruned++
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, apperrors.Wrap(err, "failed to scan session indexes")
	}
	return pruned, nil
}

// CountActive returns the number of session keys currently stored.
func (r *RedisSessionRepository) CountActive(ctx context.Context, _ time.Time) (int64, error) {
	var count int64

	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, apperrors.Wrap(err, "failed to count sessions")
	}
	return count, nil
}

// Ping checks the Redis connection.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// NewRedisSessionRepository creates a new Redis Session repository.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}
