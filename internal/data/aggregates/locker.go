package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// BoatLocker serializes writers of one boat. Holding the lock is an
// optimisation; the version check on write is what keeps the mirror correct.
type BoatLocker interface {
	Lock(ctx context.Context, boatID int64) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, int64) (func(), error) { return func() {}, nil }

// KeyedMutexLocker serializes boat writers inside one process.
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: map[int64]*keyedLock{}}
}

func (l *KeyedMutexLocker) Lock(ctx context.Context, boatID int64) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[boatID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[boatID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(boatID, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(boatID, kl, true) })
	}, nil
}

func (l *KeyedMutexLocker) release(boatID int64, kl *keyedLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, boatID)
	}
	l.mu.Unlock()
}

// RedisBoatLocker serializes boat writers across processes with a
// SET NX PX lease per boat.
type RedisBoatLocker struct {
	rdb  *redis.Client
	log  *logger.Logger
	ttl  time.Duration
	wait time.Duration
	poll time.Duration
}

type RedisLockerConfig struct {
	// TTL bounds how long a crashed holder can block a boat.
	TTL time.Duration
	// Wait bounds how long Lock polls before giving up on the lease.
	Wait time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ErrLockUnavailable is returned when the lease could not be taken in time.
var ErrLockUnavailable = errors.New("boat lock unavailable")

func NewRedisBoatLocker(rdb *redis.Client, log *logger.Logger, cfg RedisLockerConfig) *RedisBoatLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = cfg.TTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisBoatLocker{
		rdb:  rdb,
		log:  log.With("component", "RedisBoatLocker"),
		ttl:  cfg.TTL,
		wait: cfg.Wait,
		poll: 20 * time.Millisecond,
	}
}

func boatLockKey(boatID int64) string {
	return fmt.Sprintf("fleet:boat-lock:%d", boatID)
}

func (l *RedisBoatLocker) Lock(ctx context.Context, boatID int64) (func(), error) {
	key := boatLockKey(boatID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: boat %d", ErrLockUnavailable, boatID)
		}
		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return func() {
		// Released on a fresh context so a cancelled request still frees the lease.
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("boat lock release failed", "boat_id", boatID, "error", err)
		}
	}, nil
}
