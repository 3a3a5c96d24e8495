package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the shared fast store consulted by the token/session
// layer: live refresh-token jtis (a jti missing from the store is considered
// revoked) and explicitly revoked access tokens.
type RevocationStore interface {
	PutRefreshJTI(ctx context.Context, jti, userID string, ttl time.Duration) error
	RefreshJTIExists(ctx context.Context, jti string) (bool, error)
	DeleteRefreshJTI(ctx context.Context, jti string) error

	RevokeAccessToken(ctx context.Context, token string, ttl time.Duration) error
	IsAccessTokenRevoked(ctx context.Context, token string) (bool, error)
}

const (
	refreshJTIKey    = "refresh:jti:%s"
	revokedAccessKey = "revoked_token:%s"
)

// RedisRevocationStore implements RevocationStore on a shared Redis instance,
// so revocation is visible to every server process.
type RedisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) PutRefreshJTI(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(refreshJTIKey, jti), userID, ttl).Err()
}

func (s *RedisRevocationStore) RefreshJTIExists(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, fmt.Sprintf(refreshJTIKey, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) DeleteRefreshJTI(ctx context.Context, jti string) error {
	return s.client.Del(ctx, fmt.Sprintf(refreshJTIKey, jti)).Err()
}

func (s *RedisRevocationStore) RevokeAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to track
	}
	return s.client.Set(ctx, fmt.Sprintf(revokedAccessKey, token), "1", ttl).Err()
}

func (s *RedisRevocationStore) IsAccessTokenRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, fmt.Sprintf(revokedAccessKey, token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
