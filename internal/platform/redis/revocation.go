package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "rctrack:trl:jti:"

// TokenDenylist is a Redis-backed token revocation list shared by every instance.
// The identity service (or an operator) revokes a token by jti; RequireAuth consults it.
type TokenDenylist struct {
	client *redis.Client
}

func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

// RevokeToken marks jti as revoked until ttl elapses (normally the token's remaining lifetime).
func (d *TokenDenylist) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	return d.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

// IsTokenRevoked implements auth.TokenRevocationChecker.
func (d *TokenDenylist) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := d.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
