package redisinfra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and pings it once.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func codeKey(userID int64, code string) string {
	return fmt.Sprintf("totp:used:%d:%s", userID, code)
}

// CodeGuard remembers TOTP codes that were already accepted so the same code
// cannot be replayed inside its validity window.
type CodeGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCodeGuard(client *redis.Client, ttl time.Duration) *CodeGuard {
	return &CodeGuard{client: client, ttl: ttl}
}

// Claim reports true the first time (userID, code) is seen within ttl.
func (g *CodeGuard) Claim(ctx context.Context, userID int64, code string) (bool, error) {
	ok, err := g.client.SetNX(ctx, codeKey(userID, code), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// MemoryGuard is the single-process CodeGuard used when no Redis address is
// configured.
type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, userID int64, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	key := codeKey(userID, code)
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}
