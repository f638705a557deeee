package telegram

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers processed update ids so redelivered updates are skipped.
type Ledger interface {
	// Mark records updateID and reports whether it was seen for the first time.
	Mark(ctx context.Context, updateID int) (bool, error)
}

const defaultLedgerTTL = 24 * time.Hour

// MemoryLedger is a process-local Ledger with a retention window.
type MemoryLedger struct {
	mu     sync.Mutex
	seen   map[int]time.Time
	ttl    time.Duration
	now    func() time.Time
	marks  int
	gcEach int
}

// NewMemoryLedger keeps ids for ttl (a day when ttl <= 0).
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &MemoryLedger{
		seen:   make(map[int]time.Time),
		ttl:    ttl,
		now:    time.Now,
		gcEach: 1024,
	}
}

func (l *MemoryLedger) Mark(_ context.Context, updateID int) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.marks++
	if l.marks >= l.gcEach {
		for id, at := range l.seen {
			if now.Sub(at) >= l.ttl {
				delete(l.seen, id)
			}
		}
		l.marks = 0
	}

	if at, ok := l.seen[updateID]; ok && now.Sub(at) < l.ttl {
		return false, nil
	}
	l.seen[updateID] = now
	return true, nil
}

// Len reports how many ids are retained.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// RedisLedger shares the ledger between bot replicas with SETNX.
type RedisLedger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisLedger stores keys as <prefix><update id>.
func NewRedisLedger(client redis.Cmdable, prefix string, ttl time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "shopbot:update:"
	}
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &RedisLedger{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisLedger) Mark(ctx context.Context, updateID int) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+strconv.Itoa(updateID), 1, l.ttl).Result()
}
