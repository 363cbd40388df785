package util

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/telemed-review/config"
	"github.com/redis/go-redis/v9"
)

func sessionKey(token string) string { return fmt.Sprintf("session:%s", token) }

func accountSetKey(accountID uint) string { return fmt.Sprintf("account_sessions:%d", accountID) }

// CacheSession stores "accountID:role" under session:<token> until ttl elapses and
// records the token in the per-account set so a role change can evict it.
func CacheSession(ctx context.Context, token string, accountID uint, role string, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil || ttl <= 0 {
		return nil
	}
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(token), fmt.Sprintf("%d:%s", accountID, role), ttl)
	pipe.SAdd(ctx, accountSetKey(accountID), token)
	// The set lives at least as long as its longest-lived token.
	pipe.ExpireNX(ctx, accountSetKey(accountID), ttl)
	pipe.ExpireGT(ctx, accountSetKey(accountID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// LookupCachedSession resolves a token from Redis. ok is false on a cache miss, when
// Redis is not configured, or when the cached value is malformed.
func LookupCachedSession(ctx context.Context, token string) (accountID uint, role string, ok bool, err error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, "", false, nil
	}
	val, err := rdb.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}

	idPart, rolePart, found := strings.Cut(val, ":")
	if !found || rolePart == "" {
		return 0, "", false, nil
	}
	id, perr := strconv.ParseUint(idPart, 10, 64)
	if perr != nil || id == 0 {
		return 0, "", false, nil
	}
	return uint(id), rolePart, true, nil
}

// InvalidateAccountSessions deletes all session:<token> keys for the given account and
// removes the per-account set. Called after a role change so cached roles cannot go stale.
func InvalidateAccountSessions(ctx context.Context, accountID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	setKey := accountSetKey(accountID)
	members, err := rdb.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tok := range members {
		_ = rdb.Del(ctx, sessionKey(tok)).Err()
	}
	return rdb.Del(ctx, setKey).Err()
}
