package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// releaseScript deletes the lock key only when it still holds our token, so
// a slow holder cannot release a lock that already expired and was re-acquired.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// DayLocker serializes completions per (user, day) with a Redis SET NX lock.
// It implements the command layer's DayLocker interface.
type DayLocker struct {
	cache         *Cache
	ttl           time.Duration
	retryInterval time.Duration
	log           *logger.Logger
}

// NewDayLocker creates a Redis-backed day locker.
func NewDayLocker(cache *Cache, log *logger.Logger) *DayLocker {
	if log == nil {
		log = logger.Default()
	}
	return &DayLocker{
		cache:         cache,
		ttl:           TTLDayLock,
		retryInterval: 25 * time.Millisecond,
		log:           log.With(logger.Component("day_locker")),
	}
}

// AcquireDayLock blocks until the lock for (user, day) is held or ctx expires.
// The returned release function is safe to call exactly once.
func (l *DayLocker) AcquireDayLock(ctx context.Context, userID shared.UserID, dayKey string) (func(), error) {
	key := fmt.Sprintf("%s%s:%s", PrefixDayLock, userID, dayKey)
	token := uuid.NewString()

	for {
		acquired, err := l.cache.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("day lock acquire: %w", err)
		}
		if acquired {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("day lock acquire: %w", ctx.Err())
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *DayLocker) release(key, token string) {
	// Detached context: the caller's ctx may already be cancelled by the
	// time the deferred release runs.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := redis.NewScript(releaseScript).Run(ctx, l.cache.Client(), []string{key}, token).Err(); err != nil {
		l.log.Warn("day lock release failed", logger.String("key", key), logger.Err(err))
	}
}

// InProcessDayLocker is a mutex-per-key fallback for deployments without
// Redis. Only serializes within one process.
type InProcessDayLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInProcessDayLocker creates an in-process day locker.
func NewInProcessDayLocker() *InProcessDayLocker {
	return &InProcessDayLocker{locks: make(map[string]*sync.Mutex)}
}

// AcquireDayLock locks the mutex for (user, day). Mutexes are never evicted;
// the key space is bounded by active users per day within one process
// lifetime, which is small enough not to matter.
func (l *InProcessDayLocker) AcquireDayLock(ctx context.Context, userID shared.UserID, dayKey string) (func(), error) {
	key := string(userID) + ":" + dayKey

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	locked := make(chan struct{})
	go func() {
		m.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		return m.Unlock, nil
	case <-ctx.Done():
		// The goroutine will eventually grab and must then release the
		// mutex nobody is waiting on.
		go func() {
			<-locked
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}
