package jobs

import (
	"context"
	"sync"
	"time"

	"facility-backend/apperrors"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker hands out exclusive, expiring leases on a key. Acquire returns an
// error matching apperrors.ErrBusy when the key is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// ---------------- redis ----------------

// RedisLocker shares the lock between every process using the same redis.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(c *redis.Client) *RedisLocker {
	return &RedisLocker{client: c}
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lease can never release the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceError("acquire job lock", err)
	}
	if !ok {
		return nil, apperrors.ErrBusy
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	return apperrors.NewPersistenceError("release job lock", err)
}

// ---------------- in process ----------------

// LocalLocker is a Locker for a single process, used when no redis is
// configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localHold
	now  func() time.Time
}

type localHold struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localHold{}, now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if h, ok := l.held[key]; ok && (h.expires.IsZero() || now.Before(h.expires)) {
		return nil, apperrors.ErrBusy
	}
	h := localHold{token: uuid.NewString()}
	if ttl > 0 {
		h.expires = now.Add(ttl)
	}
	l.held[key] = h
	return &localLease{owner: l, key: key, token: h.token}, nil
}

type localLease struct {
	owner *LocalLocker
	key   string
	token string
}

func (l *localLease) Release(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if h, ok := l.owner.held[l.key]; ok && h.token == l.token {
		delete(l.owner.held, l.key)
	}
	return nil
}
