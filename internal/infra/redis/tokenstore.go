package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apphubio/api/pkg/logger"
)

const (
	prefixBlacklist    = "blacklist"
	prefixRefreshToken = "refresh"
)

// TokenStore holds live auth token state: a jti blacklist for revoked
// access tokens and the set of valid refresh token hashes per user.
// Refresh tokens are stored hashed so a Redis dump cannot be replayed.
type TokenStore struct {
	client *Client
	logger *logger.Logger
}

func NewTokenStore(client *Client, log *logger.Logger) (*TokenStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	return &TokenStore{client: client, logger: log}, nil
}

func blacklistKey(jti string) string {
	return prefixBlacklist + ":" + jti
}

func refreshKey(userID, tokenHash string) string {
	return prefixRefreshToken + ":" + userID + ":" + tokenHash
}

// refreshSetKey names the per-user set of active refresh token hashes,
// which makes revoke-all possible without a scan.
func refreshSetKey(userID string) string {
	return prefixRefreshToken + ":" + userID + ":all"
}

// BlacklistToken marks an access token revoked until it would have
// expired anyway. The entry evicts itself via TTL.
func (ts *TokenStore) BlacklistToken(ctx context.Context, jti string, expiry time.Duration) error {
	if jti == "" {
		return errors.New("jti is required")
	}
	if expiry <= 0 {
		return errors.New("expiry must be positive")
	}

	if err := ts.client.client.Set(ctx, blacklistKey(jti), "1", expiry).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	ts.logger.Debug("token blacklisted", "jti", jti, "expiry", expiry)
	return nil
}

// IsBlacklisted reports whether an access token was revoked.
func (ts *TokenStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, errors.New("jti is required")
	}

	exists, err := ts.client.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return exists > 0, nil
}

// StoreRefreshToken records a refresh token hash for the user. The key and
// the membership set are written in one transaction.
func (ts *TokenStore) StoreRefreshToken(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	if userID == "" {
		return errors.New("userID is required")
	}
	if tokenHash == "" {
		return errors.New("tokenHash is required")
	}
	if ttl <= 0 {
		return errors.New("TTL must be positive")
	}

	pipe := ts.client.client.TxPipeline()
	pipe.Set(ctx, refreshKey(userID, tokenHash), "1", ttl)
	pipe.SAdd(ctx, refreshSetKey(userID), tokenHash)
	pipe.Expire(ctx, refreshSetKey(userID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	ts.logger.Debug("refresh token stored", "user_id", userID)
	return nil
}

// ValidateRefreshToken reports whether the hash is still active for the user.
func (ts *TokenStore) ValidateRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	if userID == "" {
		return false, errors.New("userID is required")
	}
	if tokenHash == "" {
		return false, errors.New("tokenHash is required")
	}

	exists, err := ts.client.client.Exists(ctx, refreshKey(userID, tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("validate refresh token: %w", err)
	}
	return exists > 0, nil
}

// RevokeRefreshToken invalidates a single refresh token.
func (ts *TokenStore) RevokeRefreshToken(ctx context.Context, userID, tokenHash string) error {
	if userID == "" {
		return errors.New("userID is required")
	}
	if tokenHash == "" {
		return errors.New("tokenHash is required")
	}

	pipe := ts.client.client.TxPipeline()
	pipe.Del(ctx, refreshKey(userID, tokenHash))
	pipe.SRem(ctx, refreshSetKey(userID), tokenHash)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	ts.logger.Debug("refresh token revoked", "user_id", userID)
	return nil
}

// RevokeAllRefreshTokens invalidates every session the user has. Called on
// logout-all, password change, and account deactivation.
func (ts *TokenStore) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID is required")
	}

	setKey := refreshSetKey(userID)

	members, err := ts.client.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("get refresh tokens: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	pipe := ts.client.client.TxPipeline()
	for _, member := range members {
		pipe.Del(ctx, refreshKey(userID, member))
	}
	pipe.Del(ctx, setKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}

	ts.logger.Info("all refresh tokens revoked", "user_id", userID, "count", len(members))
	return nil
}

// RotateRefreshToken swaps the old hash for the new one in a single
// transaction, so there is no window where both or neither are valid.
func (ts *TokenStore) RotateRefreshToken(ctx context.Context, userID, oldTokenHash, newTokenHash string, ttl time.Duration) error {
	if userID == "" {
		return errors.New("userID is required")
	}
	if oldTokenHash == "" {
		return errors.New("oldTokenHash is required")
	}
	if newTokenHash == "" {
		return errors.New("newTokenHash is required")
	}
	if ttl <= 0 {
		return errors.New("TTL must be positive")
	}

	setKey := refreshSetKey(userID)

	pipe := ts.client.client.TxPipeline()
	pipe.Del(ctx, refreshKey(userID, oldTokenHash))
	pipe.SRem(ctx, setKey, oldTokenHash)
	pipe.Set(ctx, refreshKey(userID, newTokenHash), "1", ttl)
	pipe.SAdd(ctx, setKey, newTokenHash)
	pipe.Expire(ctx, setKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	ts.logger.Debug("refresh token rotated", "user_id", userID)
	return nil
}
