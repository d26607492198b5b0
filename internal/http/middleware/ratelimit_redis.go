package middleware

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared by every instance, using
// INCR and EXPIRE. Keys look like <key>:<window_seconds>.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	key = key + ":" + strconv.FormatInt(int64(window.Seconds()), 10)

	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if val == 1 {
		// first hit in this window
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return val <= int64(max), nil
}

// NewRedisClient connects to addr and pings it. A nil client and the ping
// error are returned when the server is unreachable.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
