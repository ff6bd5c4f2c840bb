package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes settlement requests that touch the same records. Each
// request locks its record keys under a unique token before opening the
// database transaction, so two buyers racing for the same listing never
// interleave.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getLockDuration returns the record lock TTL from environment variables or
// the default value. The TTL is a crash backstop: a settlement that dies
// without unlocking frees its records after this long.
func (r *Redis) getLockDuration() time.Duration {
	defaultDuration := 30 * time.Second

	lockTTLStr := os.Getenv("RECORD_LOCK_TTL_SECONDS")
	if lockTTLStr == "" {
		return defaultDuration
	}

	lockTTLSec, err := strconv.Atoi(lockTTLStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid RECORD_LOCK_TTL_SECONDS value '" + lockTTLStr + "', using default 30 seconds")
		return defaultDuration
	}

	return time.Duration(lockTTLSec) * time.Second
}

// LockRecord locks a single record key under the given token.
func (r *Redis) LockRecord(key, token string) (bool, error) {
	lockKey := "record_lock:" + key
	ok, err := r.Client.SetNX(context.Background(), lockKey, token, r.getLockDuration()).Result()
	return ok, err
}

// UnlockRecord releases a record only if it is still held under the same
// token. A lock that expired and was re-taken by another request is left
// alone.
func (r *Redis) UnlockRecord(key, token string) error {
	ctx := context.Background()
	lockKey := fmt.Sprintf("record_lock:%s", key)
	val, err := r.Client.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		return nil // already unlocked
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, lockKey).Result()
		return err
	}
	return nil
}

// LockRecords locks all keys or none: on any conflict the keys already taken
// are rolled back before returning.
func (r *Redis) LockRecords(keys []string, token string) (bool, error) {
	locked := []string{}
	for _, key := range keys {
		ok, err := r.LockRecord(key, token)
		if err != nil {
			for _, l := range locked {
				_ = r.UnlockRecord(l, token)
			}
			return false, err
		}
		if !ok {
			for _, l := range locked {
				_ = r.UnlockRecord(l, token)
			}
			return false, nil
		}
		locked = append(locked, key)
	}
	return true, nil
}

// UnlockRecords releases multiple records, returning the first error seen.
func (r *Redis) UnlockRecords(keys []string, token string) error {
	var firstErr error
	for _, key := range keys {
		err := r.UnlockRecord(key, token)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
