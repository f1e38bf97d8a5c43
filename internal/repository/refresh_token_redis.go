package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "auth:refresh:"

// redisRefreshTokenStore keeps one Redis set per account. Members carry their
// own expiry (`<fingerprint>@<unix>`) so individual credentials age out even
// though set members have no per-member TTL; the key TTL is refreshed on every
// add so abandoned accounts clean themselves up.
type redisRefreshTokenStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRefreshTokenStore returns the Redis-backed store.
func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	return &redisRefreshTokenStore{client: client, now: time.Now}
}

func refreshKey(accountID string) string {
	return refreshKeyPrefix + accountID
}

func (s *redisRefreshTokenStore) Add(ctx context.Context, accountID, fingerprint string, ttl time.Duration) error {
	key := refreshKey(accountID)
	member := fmt.Sprintf("%s@%d", fingerprint, s.now().Add(ttl).Unix())

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh token add: %w", err)
	}
	return nil
}

func (s *redisRefreshTokenStore) Contains(ctx context.Context, accountID, fingerprint string) (bool, error) {
	members, err := s.client.SMembers(ctx, refreshKey(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("refresh token lookup: %w", err)
	}

	now := s.now().Unix()
	var expired []interface{}
	found := false
	for _, member := range members {
		fp, expiry, ok := splitMember(member)
		if !ok || expiry <= now {
			expired = append(expired, member)
			continue
		}
		if fp == fingerprint {
			found = true
		}
	}
	if len(expired) > 0 {
		_ = s.client.SRem(ctx, refreshKey(accountID), expired...).Err()
	}
	return found, nil
}

func (s *redisRefreshTokenStore) Remove(ctx context.Context, accountID, fingerprint string) error {
	members, err := s.client.SMembers(ctx, refreshKey(accountID)).Result()
	if err != nil {
		return fmt.Errorf("refresh token remove: %w", err)
	}
	var matches []interface{}
	for _, member := range members {
		if fp, _, ok := splitMember(member); ok && fp == fingerprint {
			matches = append(matches, member)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return s.client.SRem(ctx, refreshKey(accountID), matches...).Err()
}

func (s *redisRefreshTokenStore) RemoveAll(ctx context.Context, accountID string) error {
	return s.client.Del(ctx, refreshKey(accountID)).Err()
}

func (s *redisRefreshTokenStore) ListActive(ctx context.Context, accountID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, refreshKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("refresh token list: %w", err)
	}
	now := s.now().Unix()
	fingerprints := make([]string, 0, len(members))
	for _, member := range members {
		if fp, expiry, ok := splitMember(member); ok && expiry > now {
			fingerprints = append(fingerprints, fp)
		}
	}
	return fingerprints, nil
}

func splitMember(member string) (fingerprint string, expiry int64, ok bool) {
	idx := strings.LastIndexByte(member, '@')
	if idx < 0 {
		return "", 0, false
	}
	expiry, err := strconv.ParseInt(member[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return member[:idx], expiry, true
}
