// Package cache keeps read-through copies of payment schedules in Redis and
// provides the distributed lock that keeps overdue scans single-flight.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/rental-billing/internal/domain"
)

const (
	scheduleKeyPrefix = "schedule:"
	versionKeyPrefix  = "schedule-version:"
)

// New creates a Redis client and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return client, nil
}

// ScheduleCache stores serialized schedules keyed by lease ID.
type ScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScheduleCache(client *redis.Client, ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{client: client, ttl: ttl}
}

func scheduleKey(leaseID string) string {
	return scheduleKeyPrefix + leaseID
}

func versionKey(leaseID string) string {
	return versionKeyPrefix + leaseID
}

// setScript stores the payload unless a newer version was already cached.
// The version key outlives Delete so a stale read-through cannot repopulate
// the cache after a write has been committed.
var setScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current > tonumber(ARGV[2]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)

// Get returns the cached schedule, or nil without error on a miss.
func (c *ScheduleCache) Get(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, scheduleKey(leaseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var schedule domain.PaymentSchedule
	if err := json.Unmarshal(payload, &schedule); err != nil {
		// unreadable entries are dropped so the next read repopulates them
		_ = c.client.Del(ctx, scheduleKey(leaseID)).Err()
		return nil, nil
	}
	return &schedule, nil
}

// Set caches schedule unless the cache already holds a newer Version of it.
func (c *ScheduleCache) Set(ctx context.Context, schedule *domain.PaymentSchedule) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	keys := []string{scheduleKey(schedule.LeaseID), versionKey(schedule.LeaseID)}
	return setScript.Run(ctx, c.client, keys, raw, schedule.Version, c.ttl.Milliseconds()).Err()
}

// Delete drops the cached schedule. The version marker is kept.
func (c *ScheduleCache) Delete(ctx context.Context, leaseID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, scheduleKey(leaseID)).Err()
}

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("cache: lock held by another process")

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out expiring locks backed by SET NX.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Lock is a held lock. Release is safe to call more than once.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes key for ttl or returns ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// Release frees the lock if it has not expired and been taken by someone else.
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil {
		return nil
	}
	return releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err()
}
