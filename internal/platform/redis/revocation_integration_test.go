//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformredis "rctrack/internal/platform/redis"
	"rctrack/pkg/testutil/containers"
)

type TokenDenylistSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	denylist *platformredis.TokenDenylist
}

func TestTokenDenylistSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(TokenDenylistSuite))
}

func (s *TokenDenylistSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.denylist = platformredis.NewTokenDenylist(s.redis.Client)
}

func (s *TokenDenylistSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *TokenDenylistSuite) TestRevokeAndCheck() {
	ctx := context.Background()

	revoked, err := s.denylist.IsTokenRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.denylist.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err = s.denylist.IsTokenRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *TokenDenylistSuite) TestRevocationExpires() {
	ctx := context.Background()
	s.Require().NoError(s.denylist.RevokeToken(ctx, "jti-2", 50*time.Millisecond))

	s.Eventually(func() bool {
		revoked, err := s.denylist.IsTokenRevoked(ctx, "jti-2")
		return err == nil && !revoked
	}, 2*time.Second, 25*time.Millisecond)
}

func (s *TokenDenylistSuite) TestEmptyJTIIsNeverRevoked() {
	revoked, err := s.denylist.IsTokenRevoked(context.Background(), "")
	s.Require().NoError(err)
	s.False(revoked)
}
