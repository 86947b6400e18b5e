package util

import (
	"context"
	"fmt"

	"github.com/healplus/wound-care-api/config"
	"github.com/redis/go-redis/v9"
)

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// AddSessionToUserSet records the session token in the per-user Redis set so
// all of a professional's sessions can be invalidated together. The set
// carries no TTL; cleanup happens through RemoveSessionTokenFromUserSet or
// InvalidateUserSessions.
func AddSessionToUserSet(userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	key := userSessionsKey(userID)
	if err := rdb.SAdd(ctx, key, token).Err(); err != nil {
		return err
	}
	return rdb.Persist(ctx, key).Err()
}

const removeSessionScript = `
		local removed = redis.call('SREM', KEYS[1], ARGV[1])
		if removed > 0 then
			local count = redis.call('SCARD', KEYS[1])
			if count == 0 then
				redis.call('DEL', KEYS[1])
			end
		end
		return removed
	`

// RemoveSessionTokenFromUserSet drops one token from the per-user set,
// deleting the set when it empties. The removal and the emptiness check run
// atomically in a Lua script.
func RemoveSessionTokenFromUserSet(userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	return rdb.Eval(context.Background(), removeSessionScript, []string{userSessionsKey(userID)}, token).Err()
}

// InvalidateUserSessions deletes every cached session:<token> entry for the
// user along with the per-user set itself.
func InvalidateUserSessions(userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	key := userSessionsKey(userID)
	members, err := rdb.SMembers(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tok := range members {
		_ = rdb.Del(ctx, fmt.Sprintf("session:%s", tok)).Err()
	}
	return rdb.Del(ctx, key).Err()
}
